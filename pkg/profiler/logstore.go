package profiler

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/crucible-sandbox/crucible/pkg/domain"
)

// SampleWriter is the sink side of the log store. The sampler is its sole
// writer for the lifetime of one execution.

type SampleWriter interface {
	Append(s domain.Sample) error
}

// LogWriter appends samples to an on-disk log, one record per line:
//
//	<timestamp_ns> <memory_kb>
//
// Records are never rewritten or reordered. The file is scoped to a single
// execution; callers pick a fresh path per run so parallel supervisors never
// collide.
type LogWriter struct {
	f *os.File
	w *bufio.Writer
}

func NewLogWriter(path string) (*LogWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open sample log: %w", err)
	}
	return &LogWriter{f: f, w: bufio.NewWriter(f)}, nil
}

func (l *LogWriter) Append(s domain.Sample) error {
	_, err := fmt.Fprintf(l.w, "%d %d\n", s.Timestamp, s.MemoryKB)
	return err
}

// Close flushes buffered samples and syncs the file. The log is closed for
// writing before analysis begins.
func (l *LogWriter) Close() error {
	if err := l.w.Flush(); err != nil {
		l.f.Close()
		return fmt.Errorf("failed to flush sample log: %w", err)
	}
	if err := l.f.Sync(); err != nil {
		l.f.Close()
		return fmt.Errorf("failed to sync sample log: %w", err)
	}
	return l.f.Close()
}

// ReadLog parses a closed log file. Malformed lines are skipped and counted
// rather than aborting the read; analysis proceeds on the valid entries.
func ReadLog(path string) ([]domain.Sample, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open sample log: %w", err)
	}
	defer f.Close()
	return ParseLog(f)
}

// ParseLog reads "<timestamp_ns> <memory_kb>" records line by line and
// returns the samples plus the count of corrupt lines it skipped.
func ParseLog(r io.Reader) ([]domain.Sample, int, error) {
	var samples []domain.Sample
	skipped := 0

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			skipped++
			continue
		}
		ts, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			skipped++
			continue
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || kb < 0 {
			skipped++
			continue
		}
		samples = append(samples, domain.Sample{Timestamp: ts, MemoryKB: kb})
	}
	if err := sc.Err(); err != nil {
		return samples, skipped, fmt.Errorf("failed to read sample log: %w", err)
	}
	return samples, skipped, nil
}

// MemoryLog is an in-memory SampleWriter for tests and diagnostics.
type MemoryLog struct {
	mu      sync.Mutex
	samples []domain.Sample
}

func NewMemoryLog() *MemoryLog { return &MemoryLog{} }

func (m *MemoryLog) Append(s domain.Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, s)
	return nil
}

func (m *MemoryLog) Samples() []domain.Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Sample, len(m.samples))
	copy(out, m.samples)
	return out
}
