package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestRequestLoggingCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := CorrelationID(logger)(RequestLogging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, GetRequestID(r.Context()))
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Invalid request method"}`))
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/events", nil))

	requestID := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, requestID)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "request", entry["message"])
	require.Equal(t, "PATCH", entry["method"])
	require.Equal(t, float64(http.StatusBadRequest), entry["status"])
	require.Equal(t, requestID, entry["request_id"])
}

func TestCorrelationIDKeepsIncomingHeader(t *testing.T) {
	handler := CorrelationID(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "upstream-id", GetRequestID(r.Context()))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, "upstream-id", rec.Header().Get("X-Request-ID"))
}

func TestRequestLoggingFallsBackWithoutCorrelationID(t *testing.T) {
	var buf bytes.Buffer

	handler := RequestLogging(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "/healthz", entry["path"])
	require.NotContains(t, entry, "request_id")
}

func TestLoggerFromContext(t *testing.T) {
	var stored, fallback bytes.Buffer
	ctx := zerolog.New(&stored).WithContext(context.Background())

	l := LoggerFromContext(ctx, zerolog.New(&fallback))
	l.Info().Msg("stored")
	require.Contains(t, stored.String(), "stored")
	require.Empty(t, fallback.String())

	l = LoggerFromContext(context.Background(), zerolog.New(&fallback))
	l.Info().Msg("fallback")
	require.Contains(t, fallback.String(), "fallback")
}
