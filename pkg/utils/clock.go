package utils

import "time"

var epoch = time.Now()

// Monotonic returns seconds elapsed on the monotonic clock since process start.
func Monotonic() float64 {
	return time.Since(epoch).Seconds()
}

// ProcessTime returns the CPU time (user + system) consumed by this process, in seconds.
func ProcessTime() float64 {
	return processTime()
}
