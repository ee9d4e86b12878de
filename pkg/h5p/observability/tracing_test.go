package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func attributeKey(k string) attribute.Key { return attribute.Key(k) }

// setupTracingTest installs a test tracer provider with an in-memory exporter.
func setupTracingTest(t *testing.T) *tracetest.InMemoryExporter {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	tracer = otel.Tracer("h5pruntime")

	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		tracer = otel.Tracer("h5pruntime")
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down tracer provider: %v", err)
		}
	})
	return exporter
}

func TestStartInstanceSpan(t *testing.T) {
	exporter := setupTracingTest(t)

	_, span := NewSpanManager().StartInstanceSpan(context.Background(), "H5P.Column 1.16", 12)
	require.NotNil(t, span)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "h5p.instantiate", spans[0].Name)

	attrs := map[attribute.Key]attribute.Value{}
	for _, a := range spans[0].Attributes {
		attrs[a.Key] = a.Value
	}
	assert.Equal(t, "H5P.Column 1.16", attrs["h5p.library"].AsString())
	assert.Equal(t, int64(12), attrs["h5p.content_id"].AsInt64())
}

func TestNestedInstanceSpans(t *testing.T) {
	exporter := setupTracingTest(t)

	ctx, parent := StartInstanceSpan(context.Background(), "H5P.Column 1.16", 1)
	_, child := StartInstanceSpan(ctx, "H5P.TrueFalse 1.8", 1)
	child.End()
	parent.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}

func TestEndSpanWithError(t *testing.T) {
	exporter := setupTracingTest(t)

	_, span := StartInstanceSpan(context.Background(), "Bad", 0)
	EndSpanWithError(span, errors.New("unknown library"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "unknown library", spans[0].Status.Description)

	assert.NotPanics(t, func() { EndSpanWithError(nil, nil) })
}

func TestAddSpanEvent(t *testing.T) {
	exporter := setupTracingTest(t)

	ctx, span := StartInstanceSpan(context.Background(), "H5P.Column 1.16", 1)
	AddSpanEvent(ctx, "attached", attribute.Bool("standalone", true))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "attached", spans[0].Events[0].Name)
}
