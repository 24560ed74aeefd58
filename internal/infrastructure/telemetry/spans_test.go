package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartServiceSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	ctx, span := StartServiceSpan(context.Background(), "payment", "allocate_lump_sum",
		SpanAttrHouseID, "h-1", SpanAttrCount, 3, 42, "ignored")
	assert.NotEmpty(t, GetTraceID(ctx))
	SetAttributes(span, SpanAttrAmount, 150000.0)
	RecordError(span, errors.New("boom"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "payment.allocate_lump_sum", ended[0].Name())
	assert.Len(t, ended[0].Attributes(), 3)
	assert.Equal(t, codes.Error, ended[0].Status().Code)

	assert.Empty(t, GetTraceID(context.Background()))
}
