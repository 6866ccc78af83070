package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	method string
	code   int
}

func (o *recordingObserver) ObserveRequest(method string, code int) {
	o.method = method
	o.code = code
}

func TestRequestLogger_EchoesCorrelationID(t *testing.T) {
	var seen string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationID(r.Context())
		w.WriteHeader(http.StatusCreated)
	})
	var buf bytes.Buffer
	obs := &recordingObserver{}
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	req := httptest.NewRequest(http.MethodPost, "/conversations", nil)
	req.Header.Set("x-correlation-id", "corr-123")
	rec := httptest.NewRecorder()
	RequestLogger(logger, obs)(h).ServeHTTP(rec, req)

	require.Equal(t, "corr-123", seen)
	require.Equal(t, "corr-123", rec.Header().Get(CorrelationHeader))
	require.Equal(t, http.MethodPost, obs.method)
	require.Equal(t, http.StatusCreated, obs.code)
	require.Contains(t, buf.String(), `"correlation_id":"corr-123"`)
	require.Contains(t, buf.String(), `"status":201`)
}

func TestRequestLogger_AssignsCorrelationID(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	obs := &recordingObserver{}

	rec := httptest.NewRecorder()
	RequestLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), obs)(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.NotEmpty(t, rec.Header().Get(CorrelationHeader))
	require.Equal(t, http.StatusOK, obs.code)
}
