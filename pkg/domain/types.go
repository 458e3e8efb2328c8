package domain

import (
	"time"
)

// IDs

type ExecutionID string

// Sample is a single resident-memory reading taken by the sampler.
// Timestamps are monotonic nanoseconds; samples are immutable once written
// and ordered by append order within one log.

type Sample struct {
	Timestamp int64 `json:"timestamp_ns"`
	MemoryKB  int64 `json:"memory_kb"`
}

// ProfileSummary is derived from a closed sample log. It is stateless and
// recomputable at any time from the same log.

type ProfileSummary struct {
	PeakMemoryKB   int64   `json:"peak_memory_kb"`
	IntegralKBSec  float64 `json:"integral_kb_seconds"`
	DurationNS     int64   `json:"duration_ns"`
	SampleCount    int     `json:"sample_count"`
	SkippedEntries int     `json:"skipped_entries,omitempty"`
}

func (s ProfileSummary) Duration() time.Duration {
	return time.Duration(s.DurationNS)
}

func (s ProfileSummary) DurationSeconds() float64 {
	return float64(s.DurationNS) / float64(time.Second)
}

// ExecutionRequest is what the gateway accepts from a caller.

type ExecutionRequest struct {
	ID             ExecutionID `json:"id,omitempty"`
	Language       string      `json:"lang"`
	Code           string      `json:"code"`
	Libraries      []string    `json:"libs,omitempty"`
	Profile        bool        `json:"profile"`
	TimeoutSeconds int         `json:"timeout_seconds,omitempty"`
	CreatedAt      time.Time   `json:"created_at,omitempty"`
}

// ExecutionResult is the unit returned to the caller: the child's captured
// output plus the profile statistics. A non-zero exit status is data here,
// not an error of the subsystem.

type ExecutionResult struct {
	ID              ExecutionID `json:"id,omitempty"`
	Stdout          string      `json:"stdout"`
	Stderr          string      `json:"stderr"`
	ExitStatus      int         `json:"exit_status"`
	PeakMemoryKB    int64       `json:"peak_memory_kb"`
	IntegralKBSec   float64     `json:"integral_kb_seconds"`
	DurationSeconds float64     `json:"duration_seconds"`
	SampleCount     int         `json:"sample_count"`
	SkippedEntries  int         `json:"skipped_entries,omitempty"`
	Samples         []Sample    `json:"samples,omitempty"`
}

// ApplySummary flattens a ProfileSummary into the result's caller-facing fields.
func (r *ExecutionResult) ApplySummary(sum ProfileSummary) {
	r.PeakMemoryKB = sum.PeakMemoryKB
	r.IntegralKBSec = sum.IntegralKBSec
	r.DurationSeconds = sum.DurationSeconds()
	r.SampleCount = sum.SampleCount
	r.SkippedEntries = sum.SkippedEntries
}
