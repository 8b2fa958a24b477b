package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Interval        time.Duration
	GPUBackend      string
	Format          string
	OutputDir       string
	SessionDuration time.Duration
	LogLevel        string
	Development     bool
	GraphDir        string
	ConfigFile      string
}

func NewConfig() *Config {
	return &Config{
		Interval:        DefaultInterval,
		GPUBackend:      GPUBackendAuto,
		Format:          DefaultFormat,
		OutputDir:       ".",
		SessionDuration: DefaultSessionDuration,
		LogLevel:        "info",
	}
}

// GetFlags registers the config fields on fs using cfg's current values as defaults.
func GetFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "Sampling interval")
	fs.StringVar(&cfg.GPUBackend, "gpu", cfg.GPUBackend, "GPU backend: auto, smi, nvml, none")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "Session output format: csv, tsv, jsonl, parquet")
	fs.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Directory for session files")
	fs.DurationVar(&cfg.SessionDuration, "session-duration", cfg.SessionDuration, "Length of each demo session")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.BoolVar(&cfg.Development, "dev", cfg.Development, "Human readable development logging")
	fs.StringVar(&cfg.GraphDir, "graph-dir", cfg.GraphDir, "Render HTML charts of each session into this directory")
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "Config file (yaml, json or toml)")
}

// LoadConfig resolves cfg from parsed flags, MONITOR_* environment
// variables and the optional config file, in that order of precedence.
func LoadConfig(fs *pflag.FlagSet, cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg.Interval = v.GetDuration("interval")
	cfg.GPUBackend = strings.ToLower(v.GetString("gpu"))
	cfg.Format = strings.ToLower(v.GetString("format"))
	cfg.OutputDir = v.GetString("output-dir")
	cfg.SessionDuration = v.GetDuration("session-duration")
	cfg.LogLevel = v.GetString("log-level")
	cfg.Development = v.GetBool("dev")
	cfg.GraphDir = v.GetString("graph-dir")
	cfg.ConfigFile = v.GetString("config")

	return cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", c.Interval)
	}
	switch c.GPUBackend {
	case GPUBackendAuto, GPUBackendSMI, GPUBackendNVML, GPUBackendNone:
	default:
		return fmt.Errorf("unknown gpu backend: %s", c.GPUBackend)
	}
	switch c.Format {
	case "csv", "tsv", "jsonl", "json", "parquet":
	default:
		return fmt.Errorf("unknown output format: %s", c.Format)
	}
	if c.SessionDuration < 0 {
		return fmt.Errorf("session duration must not be negative, got %v", c.SessionDuration)
	}
	return nil
}
