package collecting

import (
	"context"
	"os"
	"testing"
)

func BenchmarkProcessCollector_MemoryPercent(b *testing.B) {
	ctx := context.Background()
	c, err := NewProcessCollector(ctx, int32(os.Getpid()))
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.MemoryPercent(ctx)
	}
}

func BenchmarkProcessCollector_CPUPercent(b *testing.B) {
	ctx := context.Background()
	c, err := NewProcessCollector(ctx, int32(os.Getpid()))
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.CPUPercent(ctx)
	}
}

func BenchmarkManager_Collect(b *testing.B) {
	ctx := context.Background()
	m, err := NewManager(ctx, &fakeGPU{
		names: []string{"GPU 0", "GPU 1"},
		stats: []GPUStats{
			{Index: 0, UtilizationPercent: 10, MemoryTotalMiB: 200, MemoryUsedMiB: 50},
			{Index: 1, UtilizationPercent: 20, MemoryTotalMiB: 200, MemoryUsedMiB: 150},
		},
	})
	if err != nil {
		b.Fatal(err)
	}
	defer m.Close()
	proc := fixedProcess{mem: 1, cpu: 2}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Collect(ctx, proc)
	}
}

func BenchmarkParseGPUStats(b *testing.B) {
	out := []byte(smiQueryOutput)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		parseGPUStats(out)
	}
}
