package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ResourceMonitor/pkg/benchmark"
)

func newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <session-file>",
		Short: "Print max, min, mean and median of each metric in a session file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := benchmark.SummaryStats(args[0])
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "metric\tmax\tmin\tmean\tmedian")
			for _, cs := range summary {
				fmt.Fprintf(tw, "%s\t%.4g\t%.4g\t%.4g\t%.4g\n", cs.Column, cs.Max, cs.Min, cs.Mean, cs.Median)
			}
			return tw.Flush()
		},
	}
}
