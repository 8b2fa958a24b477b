//go:build !linux && !darwin

package utils

import (
	"os"

	"github.com/shirou/gopsutil/v4/process"
)

func processTime() float64 {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	t, err := p.Times()
	if err != nil {
		return 0
	}
	return t.User + t.System
}
