package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogFieldsToSliceIsOrdered(t *testing.T) {
	got := NewFields().WithUser("u1").WithComponent("http").WithOperation(OpCreate).ToSlice()
	want := []any{FieldComponent, "http", FieldOperation, OpCreate, FieldUserID, "u1"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ToSlice()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLoggerAddsComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: "app", Handler: slog.NewTextHandler(&buf, nil)}).WithComponent("finance")
	logger.Info("hello", "k", "v")

	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=finance") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestFromContext(t *testing.T) {
	if l := FromContext(context.Background()); l.Component() != "unknown" {
		t.Fatalf("expected fallback logger, got %q", l.Component())
	}

	var buf bytes.Buffer
	logger := New(Config{Component: "http", Handler: slog.NewTextHandler(&buf, nil)})
	req := httptest.NewRequest("GET", "/", nil)
	ctx := context.WithValue(req.Context(), LoggerContextKey, logger)
	if FromContext(ctx) != logger {
		t.Fatalf("expected logger from context")
	}

	NewStructuredLogger(logger).LogError(ctx, "boom", errors.New("bad"), ComponentHTTP, OpRead, nil)
	if !strings.Contains(buf.String(), "error=bad") {
		t.Fatalf("expected error field, got %q", buf.String())
	}
}
