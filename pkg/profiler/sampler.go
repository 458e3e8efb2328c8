package profiler

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/crucible-sandbox/crucible/pkg/domain"
	"github.com/crucible-sandbox/crucible/pkg/telemetry"
)

// DefaultInterval is the polling period between resident-memory reads.
const DefaultInterval = 100 * time.Microsecond

// memoryReader abstracts the per-pid RSS readout so tests can fake a process.
type memoryReader interface {
	ResidentKB() (int64, error)
}

type procReader struct {
	proc *process.Process
}

func newProcReader(pid int32) (*procReader, error) {
	p, err := process.NewProcess(pid)
	if err != nil {
		return nil, err
	}
	return &procReader{proc: p}, nil
}

func (r *procReader) ResidentKB() (int64, error) {
	mi, err := r.proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return int64(mi.RSS / 1024), nil
}

// Sampler polls one process's resident memory at a fixed interval and appends
// timestamped readings to the execution's log. It is the sole writer of that
// log. It stops on either signal, whichever comes first: the supervisor
// cancelling the context after the child exits, or its own liveness check
// failing.
type Sampler struct {
	PID      int32
	Interval time.Duration
	Logger   telemetry.Logger
	Metrics  telemetry.Metrics

	reader memoryReader // test seam; resolved from PID when nil
}

// Run polls until the context is cancelled or the process becomes unreadable.
// An unreadable process (already exited, or permission denied on its status)
// records a single zero-valued sample and ends the loop; it is never a
// failure of the overall execution, so Run returns nil for it. A non-nil
// return means the log itself could not be written.
func (s *Sampler) Run(ctx context.Context, w SampleWriter) error {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := s.Logger
	if logger == nil {
		logger = telemetry.NewNopLogger()
	}
	metrics := s.Metrics
	if metrics == nil {
		metrics = telemetry.NewNopMetrics()
	}

	// Monotonic clock: all timestamps are the start instant plus elapsed
	// monotonic time, so they are non-decreasing by construction.
	start := time.Now()
	stamp := func() int64 {
		return start.UnixNano() + int64(time.Since(start))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		kb, err := s.read()
		if err != nil {
			// Process gone or its status unreadable. Permission denied is
			// the same condition operationally but worth telling apart in
			// diagnostics.
			fields := map[string]any{"pid": s.PID, "error": err.Error()}
			if errors.Is(err, os.ErrPermission) {
				logger.Error(ctx, "Permission denied reading process memory", fields)
				metrics.IncCounter("crucible_sample_read_failures_total", 1,
					telemetry.Label{Key: "reason", Value: "permission"})
			} else {
				logger.Info(ctx, "Sampled process is gone", fields)
				metrics.IncCounter("crucible_sample_read_failures_total", 1,
					telemetry.Label{Key: "reason", Value: "gone"})
			}
			return w.Append(domain.Sample{Timestamp: stamp(), MemoryKB: 0})
		}

		if err := w.Append(domain.Sample{Timestamp: stamp(), MemoryKB: kb}); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Sampler) read() (int64, error) {
	if s.reader == nil {
		r, err := newProcReader(s.PID)
		if err != nil {
			return 0, err
		}
		s.reader = r
	}
	return s.reader.ResidentKB()
}
