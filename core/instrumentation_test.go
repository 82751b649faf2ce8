package host

import (
	"sync"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var (
	recorderOnce sync.Once
	recorder     *tracetest.SpanRecorder
)

// spanRecorder installs a recording tracer provider once for the package.
// The package tracer delegates to whichever provider is set first.
func spanRecorder() *tracetest.SpanRecorder {
	recorderOnce.Do(func() {
		recorder = tracetest.NewSpanRecorder()
		otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	})
	return recorder
}

func endedSpan(t *testing.T, name, activityID string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, span := range spanRecorder().Ended() {
		if span.Name() != name {
			continue
		}
		for _, attr := range span.Attributes() {
			if attr.Key == "activity.id" && attr.Value.AsString() == activityID {
				return span
			}
		}
	}
	t.Fatalf("expected an ended %s span for activity %s", name, activityID)
	return nil
}

func TestCreateWithoutViewIsNotASpanError(t *testing.T) {
	spanRecorder()
	h := newTestHost(t)

	if err := h.activity.Create(t.Context(), LaunchURLIntent("room"), nil); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	span := endedSpan(t, "activity.create", h.activity.ID())
	if span.Status().Code != codes.Unset {
		t.Fatalf("expected unset status, got %v", span.Status())
	}
	if len(span.Events()) != 0 {
		t.Fatalf("expected no recorded errors, got %v", span.Events())
	}
	acquired := attribute.Bool("view.acquired", false)
	for _, attr := range span.Attributes() {
		if attr == acquired {
			return
		}
	}
	t.Fatalf("expected view.acquired=false attribute, got %v", span.Attributes())
}

func TestCreateTwiceMarksSpanAsError(t *testing.T) {
	spanRecorder()
	h := newTestHost(t)
	h.create(t, nil)

	if err := h.activity.Create(t.Context(), nil, h.view); err == nil {
		t.Fatalf("expected second create to fail")
	}

	var failed int
	for _, span := range spanRecorder().Ended() {
		if span.Name() == "activity.create" && span.Status().Code == codes.Error {
			failed++
		}
	}
	if failed == 0 {
		t.Fatalf("expected a failed activity.create span")
	}
}
