package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ResourceMonitor/pkg/collecting"
	"ResourceMonitor/pkg/sampling"
	"ResourceMonitor/pkg/utils"
)

func newWorkerCmd(cfg *utils.Config) *cobra.Command {
	var pid int32

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Serve the control protocol on stdin, sampling the parent process",
		Long: `worker reads control messages from stdin, one per line:

  start <path>   start a session that flushes to path
  stop           flush the current session
  exit           terminate

Each flush is acknowledged on stdout as "flushed <path> <rows>". Any other
message is a protocol violation and exits with status 1. Closing stdin is
equivalent to exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := sampling.ParentTarget
			if pid > 0 {
				target = sampling.PIDTarget(pid)
			}

			gpu, err := collecting.DetectGPU(cfg.GPUBackend)
			if err != nil {
				return err
			}
			ctrl, err := sampling.Spawn(cmd.Context(), sampling.Config{
				Interval: cfg.Interval,
				Target:   target,
				GPU:      gpu,
			})
			if err != nil {
				return err
			}
			return serveStdin(cmd, ctrl)
		},
	}
	cmd.Flags().Int32Var(&pid, "pid", 0, "Sample this pid instead of the parent process")
	return cmd
}

// serveStdin forwards stdin lines to the worker until it terminates or
// stdin is closed.
func serveStdin(cmd *cobra.Command, ctrl *sampling.Controller) error {
	acks := make(chan sampling.FlushResult, 16)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		out := cmd.OutOrStdout()
		for res := range acks {
			if res.Err == nil {
				fmt.Fprintf(out, "flushed %s %d\n", res.Path, res.Rows)
			}
		}
	}()
	finish := func(err error) error {
		close(acks)
		<-printed
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctrl.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctrl.Done():
			return finish(ctrl.Err())
		case line, ok := <-lines:
			if !ok {
				return finish(ctrl.Shutdown())
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := ctrl.Send(line, acks); err != nil {
				return finish(err)
			}
		}
	}
}
