package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/crucible-sandbox/crucible/pkg/profiler"
	"github.com/crucible-sandbox/crucible/pkg/telemetry"
)

var (
	profileLog      string
	profileInterval time.Duration
	profileJSON     bool
	profileQuiet    bool
	profileSamples  bool
)

// profileCmd is what gets copied into containers to wrap the user's command;
// it passes the child's stdout/stderr through and mirrors its exit status.
var profileCmd = &cobra.Command{
	Use:   "profile -- <command> [args...]",
	Short: "Run a command while sampling its resident memory",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var logger telemetry.Logger = telemetry.NewNopLogger()
		if !profileQuiet {
			// Diagnostics go to stderr so the child's stdout stays clean.
			logger = telemetry.NewSlogAdapterTo(os.Stderr)
		}

		sup := &profiler.Supervisor{
			LogPath:  profileLog,
			Interval: profileInterval,
			Logger:   logger,
		}

		res, err := sup.Execute(cmd.Context(), profiler.CommandSpec{
			Path:  args[0],
			Args:  args[1:],
			Stdin: os.Stdin,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		fmt.Fprint(os.Stdout, res.Stdout)
		fmt.Fprint(os.Stderr, res.Stderr)

		if profileJSON {
			if !profileSamples {
				res.Samples = nil
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.Encode(res)
		} else if !profileQuiet {
			fmt.Fprintf(os.Stderr, "peak=%dKB integral=%.3fKB·s duration=%.3fs samples=%d\n",
				res.PeakMemoryKB, res.IntegralKBSec, res.DurationSeconds, res.SampleCount)
		}

		os.Exit(exitCode(res.ExitStatus))
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVar(&profileLog, "log", "mem_usage.log", "Sample log path")
	profileCmd.Flags().DurationVar(&profileInterval, "interval", profiler.DefaultInterval, "Polling interval")
	profileCmd.Flags().BoolVar(&profileJSON, "json", false, "Print the result as JSON")
	profileCmd.Flags().BoolVar(&profileQuiet, "quiet", false, "Suppress diagnostics and the summary line")
	profileCmd.Flags().BoolVar(&profileSamples, "samples", false, "Include raw samples in JSON output")
}
