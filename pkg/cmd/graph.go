package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ResourceMonitor/pkg/graphing"
	"ResourceMonitor/pkg/logutil"
)

func newGraphCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "graph <session-file>",
		Short: "Render HTML line charts of a session file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			if output == "" {
				output = graphing.DefaultOutputPath(input, filepath.Dir(input))
			}
			if err := graphing.Render(input, output); err != nil {
				return err
			}
			logutil.GetLogger().Info("graphs written", zap.String("input", input), zap.String("output", output))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output HTML file (default <session>_graphs.html next to the input)")
	return cmd
}
