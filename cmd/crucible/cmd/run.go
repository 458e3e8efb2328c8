package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/crucible-sandbox/crucible/pkg/domain"
)

var (
	runFile    string
	runLibs    []string
	runProfile bool
	runTimeout int
)

var runCmd = &cobra.Command{
	Use:   "run [language]",
	Short: "Submit code to the Crucible API",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		code, err := readCode(runFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		req := domain.ExecutionRequest{
			Language:       args[0],
			Code:           code,
			Libraries:      runLibs,
			Profile:        runProfile,
			TimeoutSeconds: runTimeout,
		}

		body, err := json.Marshal(req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling request: %v\n", err)
			os.Exit(1)
		}

		resp, err := doRequest(http.MethodPost, "/run", bytes.NewBuffer(body))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error submitting request: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Request failed with status %d: %s\n", resp.StatusCode, string(body))
			os.Exit(1)
		}

		var result domain.ExecutionResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			fmt.Fprintf(os.Stderr, "Error decoding response: %v\n", err)
			os.Exit(1)
		}

		fmt.Print(result.Stdout)
		fmt.Fprint(os.Stderr, result.Stderr)
		if runProfile {
			fmt.Fprintf(os.Stderr, "peak=%dKB integral=%.3fKB·s duration=%.3fs samples=%d\n",
				result.PeakMemoryKB, result.IntegralKBSec, result.DurationSeconds, result.SampleCount)
		}
		if result.ExitStatus != 0 {
			os.Exit(exitCode(result.ExitStatus))
		}
	},
}

// exitCode maps a child's reported status to a CLI exit code. Signal-killed
// children report -1, which os.Exit would surface as 255; use 1 instead.
func exitCode(status int) int {
	if status < 0 {
		return 1
	}
	return status
}

// readCode loads the program from a file, or stdin when path is "-" or empty.
func readCode(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read code from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "Code file to submit (default stdin)")
	runCmd.Flags().StringSliceVar(&runLibs, "lib", nil, "Library to install before running (repeatable)")
	runCmd.Flags().BoolVar(&runProfile, "profile", true, "Profile memory usage")
	runCmd.Flags().IntVar(&runTimeout, "timeout", 0, "Execution timeout in seconds (0 uses the server default)")
}
