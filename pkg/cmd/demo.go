package cmd

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ResourceMonitor/pkg/benchmark"
	"ResourceMonitor/pkg/collecting"
	"ResourceMonitor/pkg/graphing"
	"ResourceMonitor/pkg/logutil"
	"ResourceMonitor/pkg/sampling"
	"ResourceMonitor/pkg/utils"
)

var demoBlocks = []string{"train", "predict"}

func newDemoCmd(cfg *utils.Config) *cobra.Command {
	var benchmarkPath string

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run timed train and predict sessions against this process",
		Long: `demo samples its own process through two sessions, monitor_train and
monitor_predict, each lasting --session-duration while a synthetic CPU
workload runs. Each session is timed as a benchmark block, joined with the
summary statistics of its file, and the benchmark record is saved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if benchmarkPath == "" {
				benchmarkPath = filepath.Join(cfg.OutputDir, "benchmark.jsonl")
			}
			return runDemo(cmd.Context(), cfg, benchmarkPath)
		},
	}
	cmd.Flags().StringVar(&benchmarkPath, "benchmark", "", "Benchmark record output (default <output-dir>/benchmark.jsonl)")
	return cmd
}

func runDemo(ctx context.Context, cfg *utils.Config, benchmarkPath string) error {
	logger := logutil.GetLogger()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	gpu, err := collecting.DetectGPU(cfg.GPUBackend)
	if err != nil {
		return err
	}
	ctrl, err := sampling.Spawn(ctx, sampling.Config{
		Interval: cfg.Interval,
		Target:   sampling.SelfTarget,
		GPU:      gpu,
	})
	if err != nil {
		return err
	}

	record := benchmark.NewRecord()
	for _, name := range demoBlocks {
		path := sessionPath(cfg, name)

		record.StartTiming(name)
		if err := ctrl.StartSession(path); err != nil {
			return err
		}
		workload(ctx, cfg.SessionDuration)
		res, err := ctrl.StopSessionSync(ctx)
		if err != nil {
			return fmt.Errorf("session %s: %w", name, err)
		}
		block := record.EndTiming(name)

		if err := record.CalcSummaryStats(name, res.Path); err != nil {
			return err
		}
		logger.Info("session complete",
			zap.String("block", name),
			zap.String("path", res.Path),
			zap.Int("rows", res.Rows),
			zap.Float64("elapsed_duration", block.ElapsedDuration),
			zap.Float64("process_duration", block.ProcessDuration),
		)

		if cfg.GraphDir != "" {
			out := graphing.DefaultOutputPath(res.Path, cfg.GraphDir)
			if err := graphing.Render(res.Path, out); err != nil {
				return err
			}
			logger.Info("graphs written", zap.String("path", out))
		}
	}

	if err := ctrl.Shutdown(); err != nil {
		return err
	}
	if err := record.Save(benchmarkPath); err != nil {
		return fmt.Errorf("failed to save benchmark record: %w", err)
	}
	logger.Info("benchmark saved", zap.String("path", benchmarkPath), zap.String("record", record.ID))
	return nil
}

// workload keeps the CPU busy for d or until ctx is done.
func workload(ctx context.Context, d time.Duration) float64 {
	deadline := time.Now().Add(d)
	var acc float64
	for i := 0; time.Now().Before(deadline); i++ {
		if i%4096 == 0 && ctx.Err() != nil {
			break
		}
		acc += math.Sqrt(float64(i))
	}
	return acc
}
