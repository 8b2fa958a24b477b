// Package cmd implements the resmon command line.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"ResourceMonitor/pkg/exporting"
	"ResourceMonitor/pkg/logutil"
	"ResourceMonitor/pkg/utils"
)

// NewRootCmd builds the command tree around a fresh config.
func NewRootCmd() *cobra.Command {
	cfg := utils.NewConfig()

	root := &cobra.Command{
		Use:   "resmon",
		Short: "Sample process and GPU resource usage into session files",
		Long: `resmon samples CPU, memory and GPU usage of a target process at a fixed
interval and writes one time-indexed file per session.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := utils.LoadConfig(cmd.Flags(), cfg); err != nil {
				return err
			}
			return logutil.InitLogger(cfg.LogLevel, cfg.Development)
		},
	}
	utils.GetFlags(root.PersistentFlags(), cfg)

	root.AddCommand(
		newDemoCmd(cfg),
		newWorkerCmd(cfg),
		newSummaryCmd(),
		newGraphCmd(),
	)
	return root
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	_ = logutil.GetLogger().Sync()
	if err != nil {
		os.Exit(1)
	}
}

// sessionPath names the file of a session inside the output directory.
func sessionPath(cfg *utils.Config, name string) string {
	return filepath.Join(cfg.OutputDir, "monitor_"+name+exporting.GetExtension(cfg.Format))
}
