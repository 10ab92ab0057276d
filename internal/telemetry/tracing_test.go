package telemetry

import (
	"context"
	"math"
	"testing"

	"github.com/calendify/server/internal/config"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// restoreGlobals puts back the tracer provider and propagator InitTracing replaces.
func restoreGlobals(t *testing.T) {
	t.Helper()
	prevProvider := otel.GetTracerProvider()
	prevPropagator := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevProvider)
		otel.SetTextMapPropagator(prevPropagator)
	})
}

func TestInitTracingDisabled(t *testing.T) {
	restoreGlobals(t)
	before := otel.GetTracerProvider()

	shutdown, err := InitTracing(context.Background(), config.TracingConfig{Enabled: false, SampleRate: 5}, "test")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
	require.Same(t, before, otel.GetTracerProvider())
}

func TestInitTracingNoneExporter(t *testing.T) {
	tests := []struct {
		name        string
		rate        float64
		wantSampled bool
	}{
		{name: "always", rate: 1, wantSampled: true},
		{name: "never", rate: 0, wantSampled: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreGlobals(t)

			shutdown, err := InitTracing(context.Background(), config.TracingConfig{
				Enabled:     true,
				Exporter:    "none",
				ServiceName: "calendify-test",
				SampleRate:  tt.rate,
			}, "test")
			require.NoError(t, err)

			_, span := StartSpan(context.Background(), "unit")
			require.Equal(t, tt.wantSampled, span.SpanContext().IsSampled())
			span.End()

			require.NoError(t, shutdown(context.Background()))
		})
	}
}

func TestInitTracingRejectsBadConfig(t *testing.T) {
	restoreGlobals(t)

	_, err := InitTracing(context.Background(), config.TracingConfig{Enabled: true, Exporter: "none", SampleRate: 2}, "test")
	require.ErrorContains(t, err, "invalid sample rate")

	_, err = InitTracing(context.Background(), config.TracingConfig{Enabled: true, Exporter: "none", SampleRate: math.NaN()}, "test")
	require.ErrorContains(t, err, "invalid sample rate")

	_, err = InitTracing(context.Background(), config.TracingConfig{Enabled: true, Exporter: "zipkin", SampleRate: 1}, "test")
	require.ErrorContains(t, err, "unsupported exporter")
}

func TestNewSamplerFollowsParent(t *testing.T) {
	sampler, err := newSampler(0)
	require.NoError(t, err)
	require.Contains(t, sampler.Description(), "ParentBased")

	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01},
		SpanID:     trace.SpanID{0x02},
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	result := sampler.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: trace.ContextWithRemoteSpanContext(context.Background(), parent),
		TraceID:       parent.TraceID(),
		Name:          "GET /api/events",
	})
	require.Equal(t, sdktrace.RecordAndSample, result.Decision)
}

func TestStartSpan(t *testing.T) {
	restoreGlobals(t)
	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))

	_, span := StartSpan(context.Background(), "events.Create", attribute.String("notification.type", "add"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	require.Equal(t, "events.Create", ended[0].Name())
	require.Equal(t, trace.SpanKindInternal, ended[0].SpanKind())
	require.Equal(t, instrumentationName, ended[0].InstrumentationScope().Name)
	require.Contains(t, ended[0].Attributes(), attribute.String("notification.type", "add"))
}
