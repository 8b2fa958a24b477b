package collecting

import "context"

// ProcessSampler reads resource usage of a single target process.
type ProcessSampler interface {
	PID() int32
	// MemoryPercent is the virtual memory size as a percentage of total physical memory.
	MemoryPercent(ctx context.Context) (float64, error)
	// CPUPercent is the utilization since the previous call; the first call returns 0.
	CPUPercent(ctx context.Context) (float64, error)
}

// GPUStats is one row of a GPU query.
type GPUStats struct {
	Index              int
	UtilizationPercent float64
	MemoryTotalMiB     float64
	MemoryUsedMiB      float64
}

// GPUSource queries per-GPU statistics from some backend.
type GPUSource interface {
	Name() string
	ListNames(ctx context.Context) ([]string, error)
	Query(ctx context.Context) ([]GPUStats, error)
	Close() error
}
