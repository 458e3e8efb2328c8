package telemetry

import "context"

type Label struct {
	Key   string
	Value string
}

// Metrics is the minimal instrumentation surface the subsystem emits to.

type Metrics interface {
	IncCounter(name string, value float64, labels ...Label)
	ObserveHistogram(name string, value float64, labels ...Label)
	SetGauge(name string, value float64, labels ...Label)
}

// Logger is structured, context-aware logging. Implementations must be safe
// for concurrent use; the sampler logs from its own goroutine.

type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]any)
	Error(ctx context.Context, msg string, fields map[string]any)
}
