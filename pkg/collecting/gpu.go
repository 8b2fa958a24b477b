package collecting

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ResourceMonitor/pkg/logutil"
	"ResourceMonitor/pkg/utils"
)

// NoGPU is the source used when no GPU backend is available.
type NoGPU struct{}

func (NoGPU) Name() string                                { return "none" }
func (NoGPU) ListNames(context.Context) ([]string, error) { return nil, nil }
func (NoGPU) Query(context.Context) ([]GPUStats, error)   { return nil, nil }
func (NoGPU) Close() error                                { return nil }

// DetectGPU resolves the GPU capability once. A backend that is absent
// yields NoGPU rather than an error; only an unknown backend name fails.
func DetectGPU(backend string) (GPUSource, error) {
	logger := logutil.GetLogger()

	switch backend {
	case utils.GPUBackendNone:
		return NoGPU{}, nil

	case utils.GPUBackendSMI:
		if path, ok := LookupSMI(); ok {
			return NewSMIProbe(path), nil
		}
		logger.Info("nvidia-smi not on PATH, GPU metrics disabled")
		return NoGPU{}, nil

	case utils.GPUBackendNVML:
		probe, err := NewNVMLProbe()
		if err != nil {
			logger.Info("NVML unavailable, GPU metrics disabled", zap.Error(err))
			return NoGPU{}, nil
		}
		return probe, nil

	case utils.GPUBackendAuto, "":
		if path, ok := LookupSMI(); ok {
			return NewSMIProbe(path), nil
		}
		if probe, err := NewNVMLProbe(); err == nil {
			return probe, nil
		}
		logger.Info("no GPU backend found, GPU metrics disabled")
		return NoGPU{}, nil
	}

	return nil, fmt.Errorf("unknown gpu backend: %s", backend)
}
