package collecting

import (
	"context"
	"fmt"
)

// Manager assembles one tick of metric values from a target process and
// an optional GPU source. The metric set is fixed at construction.
type Manager struct {
	gpu      GPUSource
	gpuNames []string
	names    []string
}

// NewManager discovers the GPUs of gpu once; their count and order are
// fixed for the Manager's lifetime. A nil gpu means no GPU metrics.
func NewManager(ctx context.Context, gpu GPUSource) (*Manager, error) {
	if gpu == nil {
		gpu = NoGPU{}
	}

	gpuNames, err := gpu.ListNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list GPUs via %s: %w", gpu.Name(), err)
	}

	m := &Manager{
		gpu:      gpu,
		gpuNames: gpuNames,
		names:    make([]string, 0, 2+4*len(gpuNames)),
	}
	m.names = append(m.names, MetricCPUMemoryPercent, MetricCPUUtilPercent)
	for i := range gpuNames {
		m.names = append(m.names,
			fmt.Sprintf("gpu_util_percent_%d", i),
			fmt.Sprintf("gpu_memory_total_MiB_%d", i),
			fmt.Sprintf("gpu_memory_used_MiB_%d", i),
			fmt.Sprintf("gpu_memory_used_percent_%d", i),
		)
	}
	return m, nil
}

// MetricNames returns the metric names in column order.
func (m *Manager) MetricNames() []string {
	return append([]string(nil), m.names...)
}

func (m *Manager) GPUNames() []string {
	return append([]string(nil), m.gpuNames...)
}

func (m *Manager) GPUSourceName() string {
	return m.gpu.Name()
}

// Collect reads one value per metric name. Any failure is returned
// without retry.
func (m *Manager) Collect(ctx context.Context, proc ProcessSampler) ([]float64, error) {
	values := make([]float64, 0, len(m.names))

	memPct, err := proc.MemoryPercent(ctx)
	if err != nil {
		return nil, err
	}
	cpuPct, err := proc.CPUPercent(ctx)
	if err != nil {
		return nil, err
	}
	values = append(values, memPct, cpuPct)

	if len(m.gpuNames) == 0 {
		return values, nil
	}

	stats, err := m.gpu.Query(ctx)
	if err != nil {
		return nil, fmt.Errorf("gpu query via %s failed: %w", m.gpu.Name(), err)
	}
	if len(stats) != len(m.gpuNames) {
		return nil, fmt.Errorf("gpu query returned %d devices, expected %d", len(stats), len(m.gpuNames))
	}
	for _, g := range stats {
		values = append(values,
			g.UtilizationPercent,
			g.MemoryTotalMiB,
			g.MemoryUsedMiB,
			memoryUsedPercent(g.MemoryUsedMiB, g.MemoryTotalMiB),
		)
	}
	return values, nil
}

func (m *Manager) Close() error {
	return m.gpu.Close()
}

func memoryUsedPercent(used, total float64) float64 {
	if total == 0 {
		return 0
	}
	return 100 * used / total
}
