package collecting

import "time"

const (
	smiBinary        = "nvidia-smi"
	smiListFlag      = "-L"
	smiQueryFields   = "--query-gpu=index,utilization.gpu,memory.total,memory.used"
	smiQueryFormat   = "--format=csv,nounits"
	smiNoDevices     = "no devices were found"
	smiTimeout       = 5 * time.Second
	unavailableValue = "[n/a]"
	notSupported     = "[not supported]"

	MetricCPUMemoryPercent = "cpu_memory_percent"
	MetricCPUUtilPercent   = "cpu_util_percent"
)
