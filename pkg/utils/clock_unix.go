//go:build linux || darwin

package utils

import "golang.org/x/sys/unix"

func processTime() float64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_PROCESS_CPUTIME_ID, &ts); err != nil {
		var ru unix.Rusage
		if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
			return 0
		}
		return timevalSeconds(ru.Utime) + timevalSeconds(ru.Stime)
	}
	return float64(ts.Sec) + float64(ts.Nsec)/1e9
}

func timevalSeconds(tv unix.Timeval) float64 {
	return float64(tv.Sec) + float64(tv.Usec)/1e6
}
