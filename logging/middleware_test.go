package logging

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func newCapturingLogger() (*slog.Logger, *strings.Builder) {
	var out strings.Builder
	logger := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, &out
}

// TestLoggingMiddlewareSkipsQuietPaths verifies that /health and /metrics are not logged
func TestLoggingMiddlewareSkipsQuietPaths(t *testing.T) {
	logger, out := newCapturingLogger()
	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/health", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			out.Reset()
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))

			if rr.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", rr.Code)
			}
			if out.String() != "" {
				t.Errorf("expected no logs for %s, got: %s", path, out.String())
			}
		})
	}
}

func TestLoggingMiddlewareRecordsRequest(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"success logged at info", http.StatusOK, "level=INFO"},
		{"client error logged at warn", http.StatusConflict, "level=WARN"},
		{"server error logged at error", http.StatusServiceUnavailable, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, out := newCapturingLogger()
			handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("body"))
			}))

			req := httptest.NewRequest(http.MethodGet, "/Drug_Search/0/Acu?size=compact", nil)
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-42"))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			logs := out.String()
			for _, want := range []string{
				tt.wantLevel,
				"request_id=req-42",
				"path=/Drug_Search/0/Acu",
				`query="size=compact"`,
				"bytes_written=4",
			} {
				if !strings.Contains(logs, want) {
					t.Errorf("expected log to contain %q, got: %s", want, logs)
				}
			}
		})
	}
}

func TestLoggingMiddlewareUnknownRequestID(t *testing.T) {
	logger, out := newCapturingLogger()
	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(out.String(), "request_id=unknown") {
		t.Errorf("expected request_id=unknown, got: %s", out.String())
	}
}
