package telemetry

import (
	"context"
	"strings"
	"sync"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
	"go.trai.ch/depot/internal/core/ports"
)

var _ ports.Tracer = (*Recorder)(nil)

// Recorder implements ports.Tracer using the progrock library: one vertex
// per span, rendered as live progress output.
type Recorder struct {
	w   progrock.Writer
	rec *progrock.Recorder
}

// New creates a Recorder with a default tape.
func New() *Recorder {
	return NewRecorder(progrock.NewTape())
}

// NewRecorder creates a Recorder with the given writer.
func NewRecorder(w progrock.Writer) *Recorder {
	return &Recorder{
		w:   w,
		rec: progrock.NewRecorder(w),
	}
}

// Start opens a vertex for one unit of work.
func (r *Recorder) Start(ctx context.Context, name string) (context.Context, ports.Span) {
	v := r.rec.Vertex(digest.FromString(name), name)
	return ctx, &vertexSpan{vertex: v}
}

// EmitPlan records the set of packages about to be processed as its own
// completed vertex.
func (r *Recorder) EmitPlan(_ context.Context, packages []string) {
	v := r.rec.Vertex(digest.FromString("plan"), "plan")
	_, _ = v.Stdout().Write([]byte(strings.Join(packages, "\n") + "\n"))
	v.Done(nil)
}

// Close flushes and closes the recording session.
func (r *Recorder) Close() error {
	if c, ok := r.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// vertexSpan implements ports.Span wrapping *progrock.VertexRecorder.
type vertexSpan struct {
	vertex *progrock.VertexRecorder

	mu  sync.Mutex
	err error
}

// Write forwards progress output to the vertex's stdout stream.
func (s *vertexSpan) Write(p []byte) (int, error) {
	return s.vertex.Stdout().Write(p)
}

// RecordError attaches a failure to the span; End reports it.
func (s *vertexSpan) RecordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// End completes the vertex, failed if an error was recorded.
func (s *vertexSpan) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vertex.Done(s.err)
}
