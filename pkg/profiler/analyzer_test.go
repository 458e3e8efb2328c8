package profiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crucible-sandbox/crucible/pkg/domain"
)

func TestAnalyze_EmptyLog(t *testing.T) {
	sum := Analyze(nil)
	assert.Equal(t, int64(0), sum.PeakMemoryKB)
	assert.Equal(t, int64(0), sum.DurationNS)
	assert.Equal(t, float64(0), sum.IntegralKBSec)
	assert.Equal(t, 0, sum.SampleCount)
}

func TestAnalyze_SingleSample(t *testing.T) {
	sum := Analyze([]domain.Sample{{Timestamp: 1000, MemoryKB: 512}})
	assert.Equal(t, int64(512), sum.PeakMemoryKB)
	assert.Equal(t, int64(0), sum.DurationNS)
	assert.Equal(t, float64(0), sum.IntegralKBSec)
	assert.Equal(t, 1, sum.SampleCount)
}

func TestAnalyze_PeakAndDuration(t *testing.T) {
	samples := []domain.Sample{
		{Timestamp: 0, MemoryKB: 100},
		{Timestamp: 1_000_000_000, MemoryKB: 300},
		{Timestamp: 2_000_000_000, MemoryKB: 200},
	}
	sum := Analyze(samples)
	assert.Equal(t, int64(300), sum.PeakMemoryKB)
	assert.Equal(t, int64(2_000_000_000), sum.DurationNS)
	assert.Equal(t, 2.0, sum.DurationSeconds())
	assert.Equal(t, 3, sum.SampleCount)
}

func TestAnalyze_TrapezoidalIntegral(t *testing.T) {
	// 1s at an average of 200 KB, then 1s at an average of 250 KB.
	samples := []domain.Sample{
		{Timestamp: 0, MemoryKB: 100},
		{Timestamp: 1_000_000_000, MemoryKB: 300},
		{Timestamp: 2_000_000_000, MemoryKB: 200},
	}
	sum := Analyze(samples)
	assert.InDelta(t, 450.0, sum.IntegralKBSec, 1e-9)
}

func TestAnalyze_IntegralMonotoneUnderAppend(t *testing.T) {
	samples := []domain.Sample{{Timestamp: 0, MemoryKB: 10}}
	prev := Analyze(samples).IntegralKBSec
	for i := 1; i <= 50; i++ {
		samples = append(samples, domain.Sample{
			Timestamp: int64(i) * 10_000_000,
			MemoryKB:  int64((i * 37) % 400),
		})
		cur := Analyze(samples).IntegralKBSec
		assert.GreaterOrEqual(t, cur, prev)
		assert.GreaterOrEqual(t, cur, 0.0)
		prev = cur
	}
}

func TestAnalyze_NegativeDeltaContributesNothing(t *testing.T) {
	// A clock anomaly must never produce negative area.
	samples := []domain.Sample{
		{Timestamp: 2_000_000_000, MemoryKB: 100},
		{Timestamp: 1_000_000_000, MemoryKB: 100},
	}
	sum := Analyze(samples)
	assert.GreaterOrEqual(t, sum.IntegralKBSec, 0.0)
	assert.Equal(t, int64(0), sum.DurationNS)
}
