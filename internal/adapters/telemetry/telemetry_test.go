package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/depot/internal/adapters/telemetry"
)

func TestNoOpTracer(t *testing.T) {
	tracer := telemetry.NewNoOpTracer()

	ctx, span := tracer.Start(context.Background(), "install libA@1.0.0")
	require.NotNil(t, ctx)

	n, err := span.Write([]byte("progress"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	span.RecordError(errors.New("ignored"))
	span.End()

	tracer.EmitPlan(ctx, []string{"libA", "libB"})
	require.NoError(t, tracer.Close())
}

func TestRecorder_SpanLifecycle(t *testing.T) {
	rec := telemetry.New()

	ctx, span := rec.Start(context.Background(), "install libA@1.0.0")
	rec.EmitPlan(ctx, []string{"libA"})

	_, err := span.Write([]byte("fetching\n"))
	require.NoError(t, err)
	span.RecordError(errors.New("fetch failed"))
	span.End()

	require.NoError(t, rec.Close())
}
