package ports

import (
	"context"
	"io"
)

// Tracer is the entry point for recording units of work (one span per
// package pipeline during installation).
//
//go:generate go run go.uber.org/mock/mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks
type Tracer interface {
	// Start creates a new span.
	Start(ctx context.Context, name string) (context.Context, Span)
	// EmitPlan signals the set of packages about to be processed.
	EmitPlan(ctx context.Context, packages []string)
	// Close flushes the recording session.
	Close() error
}

// Span represents one unit of work. Writes become progress output attached
// to the span.
type Span interface {
	io.Writer
	// RecordError attaches a failure to the span.
	RecordError(err error)
	// End completes the span, failed if an error was recorded.
	End()
}
