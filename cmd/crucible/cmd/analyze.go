package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crucible-sandbox/crucible/pkg/profiler"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <log>",
	Short: "Recompute profile statistics from an existing sample log",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		samples, skipped, err := profiler.ReadLog(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		sum := profiler.Analyze(samples)
		sum.SkippedEntries = skipped

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(sum)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
