package utils

import "time"

const (
	DefaultInterval        = 200 * time.Millisecond
	DefaultSessionDuration = 5 * time.Second
	DefaultFormat          = "csv"
	EnvPrefix              = "MONITOR"
	TimeColumn             = "time"
	BytesPerMiB            = 1024 * 1024

	GPUBackendAuto = "auto"
	GPUBackendSMI  = "smi"
	GPUBackendNVML = "nvml"
	GPUBackendNone = "none"
)
