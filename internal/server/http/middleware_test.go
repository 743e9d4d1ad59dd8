package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/oa-metasearch/internal/federation"
	"github.com/helixir/oa-metasearch/internal/observability"
	"github.com/helixir/oa-metasearch/internal/search"
	"github.com/helixir/oa-metasearch/internal/search/memory"
)

func TestCorrelationIDMiddleware(t *testing.T) {
	var seen string
	h := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = observability.CorrelationIDFromContext(r.Context())
	}))

	t.Run("echoes caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(correlationHeader, "req-42")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "req-42", rec.Header().Get(correlationHeader))
		assert.Equal(t, "req-42", seen)
	})

	t.Run("generates when missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		id := rec.Header().Get(correlationHeader)
		assert.Len(t, id, 36)
		assert.Equal(t, id, seen)
	})

	t.Run("replaces oversized id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(correlationHeader, strings.Repeat("x", 129))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Len(t, rec.Header().Get(correlationHeader), 36)
	})
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t)

	t.Run("preflight from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/search", nil)
		req.Header.Set("Origin", "https://ui.example.org")
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://ui.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), correlationHeader)
	})

	t.Run("other origin gets no headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestAllowedOrigin_Wildcard(t *testing.T) {
	s := &Server{cors: []string{"*"}}
	assert.Equal(t, "*", s.allowedOrigin("https://anywhere.example"))
	assert.Empty(t, s.allowedOrigin(""))
}

func TestAccessLogMiddleware_RecordsRoutePattern(t *testing.T) {
	metrics := observability.NewMetrics("httpserver_test")
	logger := zerolog.Nop()
	index := search.Instrument(memory.New(), "oa_records", logger, nil)
	resolver := federation.NewService(index, nil, nil, federation.Config{}, logger, nil)
	srv := NewServer(Config{}, index, resolver, nil, logger, metrics)

	for _, target := range []string{"/api/paper/arxiv:1", "/api/paper/arxiv:2", "/nope"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		require.NotEqual(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("/api/paper/{id}", "404")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("unmatched", "404")))
}
