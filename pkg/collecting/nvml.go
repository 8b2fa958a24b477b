package collecting

import (
	"context"
	"fmt"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"ResourceMonitor/pkg/utils"
)

// NVMLProbe queries GPUs through the NVML library.
type NVMLProbe struct {
	initialized bool
	devices     []nvml.Device
}

// NewNVMLProbe initializes NVML and resolves device handles once.
func NewNVMLProbe() (*NVMLProbe, error) {
	n := &NVMLProbe{}
	if err := n.init(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *NVMLProbe) Name() string { return "nvml" }

func (n *NVMLProbe) init() error {
	if n.initialized {
		return nil
	}
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return fmt.Errorf("failed to initialize NVML: %s", nvml.ErrorString(ret))
	}

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		nvml.Shutdown()
		return fmt.Errorf("failed to count NVIDIA devices: %s", nvml.ErrorString(ret))
	}

	n.devices = make([]nvml.Device, count)
	for i := 0; i < count; i++ {
		dev, ret := nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			nvml.Shutdown()
			return fmt.Errorf("nvml get handle index=%d failed: %s", i, nvml.ErrorString(ret))
		}
		n.devices[i] = dev
	}

	n.initialized = true
	return nil
}

func (n *NVMLProbe) Close() error {
	if n.initialized {
		n.initialized = false
		if ret := nvml.Shutdown(); ret != nvml.SUCCESS {
			return fmt.Errorf("nvml shutdown failed: %s", nvml.ErrorString(ret))
		}
	}
	return nil
}

func (n *NVMLProbe) ListNames(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(n.devices))
	for i, dev := range n.devices {
		name, ret := dev.GetName()
		if ret != nvml.SUCCESS {
			return nil, fmt.Errorf("nvml get name index=%d failed: %s", i, nvml.ErrorString(ret))
		}
		names = append(names, fmt.Sprintf("GPU %d: %s", i, name))
	}
	return names, nil
}

func (n *NVMLProbe) Query(_ context.Context) ([]GPUStats, error) {
	stats := make([]GPUStats, 0, len(n.devices))
	for i, dev := range n.devices {
		util, ret := dev.GetUtilizationRates()
		if ret != nvml.SUCCESS {
			return nil, fmt.Errorf("nvml utilization index=%d failed: %s", i, nvml.ErrorString(ret))
		}
		memInfo, ret := dev.GetMemoryInfo()
		if ret != nvml.SUCCESS {
			return nil, fmt.Errorf("nvml memory index=%d failed: %s", i, nvml.ErrorString(ret))
		}
		stats = append(stats, GPUStats{
			Index:              i,
			UtilizationPercent: float64(util.Gpu),
			MemoryTotalMiB:     float64(memInfo.Total) / utils.BytesPerMiB,
			MemoryUsedMiB:      float64(memInfo.Used) / utils.BytesPerMiB,
		})
	}
	return stats, nil
}
