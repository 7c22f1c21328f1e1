package otelx

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceContextRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	tc := CaptureTraceContext(ctx)
	if tc.Parent != "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01" {
		t.Fatalf("unexpected traceparent %q", tc.Parent)
	}

	restored := trace.SpanContextFromContext(tc.Restore(context.Background()))
	if restored.TraceID() != traceID || !restored.IsRemote() {
		t.Fatalf("expected remote parent with trace %s, got %+v", traceID, restored)
	}
}

func TestZeroTraceContextLeavesContextAlone(t *testing.T) {
	ctx := context.Background()
	if got := CaptureTraceContext(ctx); !got.IsZero() {
		t.Fatalf("expected no trace context, got %+v", got)
	}
	if (TraceContext{}).Restore(ctx) != ctx {
		t.Fatal("expected the same context back")
	}
}
