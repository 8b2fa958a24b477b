package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonotonicIncreases(t *testing.T) {
	a := Monotonic()
	time.Sleep(2 * time.Millisecond)
	b := Monotonic()
	assert.Greater(t, b, a)
}

func TestProcessTimeAdvancesUnderLoad(t *testing.T) {
	start := ProcessTime()
	deadline := time.Now().Add(50 * time.Millisecond)
	x := 0
	for time.Now().Before(deadline) {
		x++
	}
	assert.GreaterOrEqual(t, ProcessTime(), start)
	assert.Positive(t, x)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	GetFlags(fs, cfg)
	require.NoError(t, fs.Parse(nil))
	require.NoError(t, LoadConfig(fs, cfg))

	assert.Equal(t, DefaultInterval, cfg.Interval)
	assert.Equal(t, GPUBackendAuto, cfg.GPUBackend)
	assert.Equal(t, "csv", cfg.Format)
}

func TestLoadConfigFlagsAndEnv(t *testing.T) {
	t.Setenv("MONITOR_GPU", "none")
	t.Setenv("MONITOR_OUTPUT_DIR", "/tmp/sessions")

	cfg := NewConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	GetFlags(fs, cfg)
	require.NoError(t, fs.Parse([]string{"--interval", "50ms"}))
	require.NoError(t, LoadConfig(fs, cfg))

	assert.Equal(t, 50*time.Millisecond, cfg.Interval)
	assert.Equal(t, GPUBackendNone, cfg.GPUBackend)
	assert.Equal(t, "/tmp/sessions", cfg.OutputDir)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("interval: 1s\nformat: parquet\n"), 0644))

	cfg := NewConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	GetFlags(fs, cfg)
	require.NoError(t, fs.Parse([]string{"--config", path, "--format", "jsonl"}))
	require.NoError(t, LoadConfig(fs, cfg))

	assert.Equal(t, time.Second, cfg.Interval)
	assert.Equal(t, "jsonl", cfg.Format)

	fs = pflag.NewFlagSet("test", pflag.ContinueOnError)
	GetFlags(fs, NewConfig())
	require.NoError(t, fs.Parse([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}))
	assert.Error(t, LoadConfig(fs, NewConfig()))
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := NewConfig()
	cfg.Interval = 0
	assert.Error(t, cfg.Validate())

	cfg = NewConfig()
	cfg.GPUBackend = "rocm"
	assert.Error(t, cfg.Validate())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "0.25", FormatValue(0.25))
	assert.Equal(t, "12", FormatValue(int64(12)))
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "true", FormatValue(true))
}

func TestToFloat64Ok(t *testing.T) {
	f, ok := ToFloat64Ok("2.5")
	assert.True(t, ok)
	assert.Equal(t, 2.5, f)

	_, ok = ToFloat64Ok("gpu0")
	assert.False(t, ok)

	_, ok = ToFloat64Ok(nil)
	assert.False(t, ok)
}
