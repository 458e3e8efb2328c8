package profiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crucible-sandbox/crucible/pkg/domain"
	"github.com/crucible-sandbox/crucible/pkg/telemetry"
)

// ErrSpawn marks a command that could not be started at all. It is the only
// condition that aborts an execution before a result exists; everything else
// degrades into a still-valid result.
var ErrSpawn = errors.New("spawn failure")

// CommandSpec describes the child process to supervise.
type CommandSpec struct {
	Path  string
	Args  []string
	Dir   string
	Env   []string
	Stdin io.Reader
}

// Supervisor owns one child process's full lifecycle: spawn, sample, wait,
// reap. One Supervisor instance handles exactly one child at a time; several
// supervisors may run in parallel as long as each gets its own LogPath.
type Supervisor struct {
	// LogPath is the per-execution sample log. Required.
	LogPath string
	// Interval between memory polls. Zero means DefaultInterval.
	Interval time.Duration
	Logger   telemetry.Logger
	Metrics  telemetry.Metrics
}

// Execute runs the command to completion, sampling its resident memory the
// whole time, and returns the captured output together with the profile
// statistics derived from the closed log.
//
// The ordering contract: the child is fully started before the sampler's
// first poll can observe it; the sampler is joined (and the log closed for
// writing) before the analyzer reads it. Cancelling ctx kills the child,
// which the sampler observes within one polling interval.
func (s *Supervisor) Execute(ctx context.Context, spec CommandSpec) (*domain.ExecutionResult, error) {
	logger := s.Logger
	if logger == nil {
		logger = telemetry.NewNopLogger()
	}
	metrics := s.Metrics
	if metrics == nil {
		metrics = telemetry.NewNopMetrics()
	}
	if s.LogPath == "" {
		return nil, fmt.Errorf("supervisor requires a sample log path")
	}

	w, err := NewLogWriter(s.LogPath)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Stdin = spec.Stdin
	cmd.Dir = spec.Dir
	if spec.Env != nil {
		cmd.Env = spec.Env
	}

	if err := cmd.Start(); err != nil {
		w.Close()
		os.Remove(s.LogPath) // spawn failure produces no log
		metrics.IncCounter("crucible_spawn_failures_total", 1)
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	started := time.Now()
	logger.Info(ctx, "Child started", map[string]any{"pid": cmd.Process.Pid, "path": spec.Path})

	sampler := &Sampler{
		PID:      int32(cmd.Process.Pid),
		Interval: s.Interval,
		Logger:   logger,
		Metrics:  metrics,
	}

	// Explicit stop signal for the sampler, on top of its own liveness
	// polling. Either one ends the loop.
	sctx, stopSampling := context.WithCancel(context.Background())
	defer stopSampling()

	var g errgroup.Group
	g.Go(func() error {
		return sampler.Run(sctx, w)
	})

	waitErr := cmd.Wait()
	stopSampling()

	// Two-way join: child exit observed above, sampler termination here.
	// Only then is the log complete and closed for writing.
	samplerErr := g.Wait()
	if cerr := w.Close(); cerr != nil {
		logger.Error(ctx, "Failed to close sample log", map[string]any{"error": cerr})
	}
	if samplerErr != nil {
		logger.Error(ctx, "Sampler could not write log", map[string]any{"error": samplerErr})
	}

	exit := cmd.ProcessState.ExitCode()
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		// Wait failed for a reason other than the child's own exit status
		// (for example an I/O error copying output). The child is reaped, so
		// keep going and report what we have.
		logger.Error(ctx, "Wait returned unexpected error", map[string]any{"error": waitErr})
	}

	samples, skipped, readErr := ReadLog(s.LogPath)
	if readErr != nil {
		logger.Error(ctx, "Failed to read sample log", map[string]any{"error": readErr})
	}

	sum := Analyze(samples)
	sum.SkippedEntries = skipped

	metrics.ObserveHistogram("crucible_execution_seconds", time.Since(started).Seconds())
	metrics.SetGauge("crucible_peak_memory_kb", float64(sum.PeakMemoryKB))

	res := &domain.ExecutionResult{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		ExitStatus: exit,
		Samples:    samples,
	}
	res.ApplySummary(sum)
	return res, nil
}
