package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// SlogAdapter bridges the Logger interface to log/slog with a JSON handler.
type SlogAdapter struct {
	logger *slog.Logger
}

func NewSlogAdapter() *SlogAdapter {
	return NewSlogAdapterTo(os.Stdout)
}

// NewSlogAdapterTo writes JSON logs to w. The profile CLI uses stderr so the
// supervised child's stdout passes through untouched.
func NewSlogAdapterTo(w io.Writer) *SlogAdapter {
	return &SlogAdapter{
		logger: slog.New(slog.NewJSONHandler(w, nil)),
	}
}

func (l *SlogAdapter) Info(ctx context.Context, msg string, fields map[string]any) {
	l.logger.InfoContext(ctx, msg, attrs(fields)...)
}

func (l *SlogAdapter) Error(ctx context.Context, msg string, fields map[string]any) {
	l.logger.ErrorContext(ctx, msg, attrs(fields)...)
}

func attrs(fields map[string]any) []any {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}

// NopLogger discards everything. It is the default when a component's Logger
// field is left nil.
type NopLogger struct{}

func NewNopLogger() *NopLogger { return &NopLogger{} }

func (NopLogger) Info(ctx context.Context, msg string, fields map[string]any)  {}
func (NopLogger) Error(ctx context.Context, msg string, fields map[string]any) {}

type NopMetrics struct{}

func NewNopMetrics() *NopMetrics { return &NopMetrics{} }

func (NopMetrics) IncCounter(name string, value float64, labels ...Label)       {}
func (NopMetrics) ObserveHistogram(name string, value float64, labels ...Label) {}
func (NopMetrics) SetGauge(name string, value float64, labels ...Label)         {}
