package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/log"
)

func TestMiddleware_RequestIDAndLogger(t *testing.T) {
	m := NewMiddleware(nil, func(*http.Request) string { return "1.2.3.4" })

	var seenID string
	var seenLogger *log.Logger
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		seenLogger = log.FromContext(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/finance/category", nil))

	if !strings.HasPrefix(seenID, "req_") {
		t.Errorf("request id = %q, want req_ prefix", seenID)
	}
	if got := rec.Header().Get(HeaderRequestID); got != seenID {
		t.Errorf("response header = %q, want %q", got, seenID)
	}
	if seenLogger == nil || seenLogger.Component() != log.ComponentTrace {
		t.Errorf("request logger not placed on context")
	}
}

func TestMiddleware_HonoursUpstreamID(t *testing.T) {
	m := NewMiddleware(nil, nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		header string
		keep   bool
	}{
		{"abc-123", true},
		{"bad id with spaces", false},
		{strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(HeaderRequestID, tt.header)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		got := rec.Header().Get(HeaderRequestID)
		if (got == tt.header) != tt.keep {
			t.Errorf("header %q: got %q, keep=%v", tt.header, got, tt.keep)
		}
	}
}

func TestMiddleware_Metrics(t *testing.T) {
	m := NewMiddleware(nil, nil)
	codes := []int{http.StatusOK, http.StatusNotFound, http.StatusInternalServerError, http.StatusOK}
	for _, code := range codes {
		code := code
		h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}

	got := m.GetMetrics()
	if got.TotalRequests != 4 || got.ClientErrors != 1 || got.ServerErrors != 1 {
		t.Errorf("metrics = %+v", got)
	}
	if got.AverageResponseTime < 0 {
		t.Errorf("average response time = %d", got.AverageResponseTime)
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := GetRequestID(r.Context()); id != "" {
		t.Errorf("GetRequestID() = %q, want empty", id)
	}
}
