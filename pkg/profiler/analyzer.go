package profiler

import (
	"time"

	"github.com/crucible-sandbox/crucible/pkg/domain"
)

// Analyze derives summary statistics from a closed, ordered sample log.
//
// The memory-time integral uses the trapezoidal rule over consecutive sample
// pairs, reported in kilobyte-seconds. Pairs with a negative timestamp delta
// contribute nothing, so the integral never goes negative.
//
// Analyze is a pure function: it performs no I/O and is safe to re-run over
// the same log for diagnostics.
func Analyze(samples []domain.Sample) domain.ProfileSummary {
	sum := domain.ProfileSummary{SampleCount: len(samples)}
	if len(samples) == 0 {
		return sum
	}

	peak := samples[0].MemoryKB
	for _, s := range samples[1:] {
		if s.MemoryKB > peak {
			peak = s.MemoryKB
		}
	}
	sum.PeakMemoryKB = peak

	if len(samples) < 2 {
		return sum
	}

	duration := samples[len(samples)-1].Timestamp - samples[0].Timestamp
	if duration < 0 {
		duration = 0
	}
	sum.DurationNS = duration

	var integral float64 // kb·ns
	for i := 1; i < len(samples); i++ {
		dt := samples[i].Timestamp - samples[i-1].Timestamp
		if dt <= 0 {
			continue
		}
		integral += float64(samples[i-1].MemoryKB+samples[i].MemoryKB) / 2 * float64(dt)
	}
	sum.IntegralKBSec = integral / float64(time.Second)

	return sum
}
