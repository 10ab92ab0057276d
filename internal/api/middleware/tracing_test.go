package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exporter
}

func spanAttr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, attr := range attrs {
		if string(attr.Key) == key {
			return attr.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracing(t *testing.T) {
	exporter := withRecorder(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	})
	handler := CorrelationID(testLogger())(Tracing(mux))

	req := httptest.NewRequest(http.MethodGet, "/api/events?type=notifications", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	span := spans[0]
	require.Equal(t, "GET /api/events", span.Name)
	require.Equal(t, codes.Unset, span.Status.Code)

	method, ok := spanAttr(span.Attributes, "http.method")
	require.True(t, ok)
	require.Equal(t, "GET", method.AsString())

	route, ok := spanAttr(span.Attributes, "http.route")
	require.True(t, ok)
	require.Equal(t, "/api/events", route.AsString())

	status, ok := spanAttr(span.Attributes, "http.status_code")
	require.True(t, ok)
	require.Equal(t, int64(200), status.AsInt64())

	size, ok := spanAttr(span.Attributes, "http.response_content_length")
	require.True(t, ok)
	require.Equal(t, int64(2), size.AsInt64())

	requestID, ok := spanAttr(span.Attributes, "request_id")
	require.True(t, ok)
	require.Equal(t, "req-123", requestID.AsString())
}

func TestTracingUnmatchedRouteNamedByMethod(t *testing.T) {
	exporter := withRecorder(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) {})

	Tracing(mux).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin/1234", nil))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "GET", spans[0].Name)
	_, ok := spanAttr(spans[0].Attributes, "http.route")
	require.False(t, ok)
}

func TestTracingStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   codes.Code
	}{
		{name: "client error", status: http.StatusBadRequest, want: codes.Unset},
		{name: "server error", status: http.StatusInternalServerError, want: codes.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter := withRecorder(t)

			handler := Tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/events", nil))

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			require.Equal(t, tt.want, spans[0].Status.Code)

			status, ok := spanAttr(spans[0].Attributes, "http.status_code")
			require.True(t, ok)
			require.Equal(t, int64(tt.status), status.AsInt64())
		})
	}
}

func TestTracingContinuesIncomingTrace(t *testing.T) {
	exporter := withRecorder(t)
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	Tracing(http.NotFoundHandler()).ServeHTTP(httptest.NewRecorder(), req)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext.TraceID().String())
	require.Equal(t, "00f067aa0ba902b7", spans[0].Parent.SpanID().String())
}
