package collecting

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// ProcessCollector samples a target process through gopsutil.
type ProcessCollector struct {
	pid         int32
	proc        *process.Process
	totalMemory uint64
}

func NewProcessCollector(ctx context.Context, pid int32) (*ProcessCollector, error) {
	proc, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("failed to open process %d: %w", pid, err)
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read system memory: %w", err)
	}
	if vm.Total == 0 {
		return nil, fmt.Errorf("system reported zero total memory")
	}

	return &ProcessCollector{
		pid:         pid,
		proc:        proc,
		totalMemory: vm.Total,
	}, nil
}

func (c *ProcessCollector) PID() int32 { return c.pid }

func (c *ProcessCollector) MemoryPercent(ctx context.Context) (float64, error) {
	info, err := c.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read memory of process %d: %w", c.pid, err)
	}
	return 100 * float64(info.VMS) / float64(c.totalMemory), nil
}

func (c *ProcessCollector) CPUPercent(ctx context.Context) (float64, error) {
	pct, err := c.proc.PercentWithContext(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to read cpu of process %d: %w", c.pid, err)
	}
	return pct, nil
}
