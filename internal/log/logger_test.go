package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentSettings, Output: &buf})

	l.InfoContext(context.Background(), "Settings updated", FieldUserID, "u1")
	out := buf.String()
	if !strings.Contains(out, "component=settings") || !strings.Contains(out, "user_id=u1") {
		t.Fatalf("unexpected output: %s", out)
	}

	buf.Reset()
	l.WithComponent(ComponentCurrency).LogError(context.Background(), "Conversion failed",
		errors.New("boom"), OpConvert, NewFields().WithConversion("USD", "EUR", 0))
	out = buf.String()
	for _, want := range []string{"component=currency", "error=boom", "operation=convert", "from_currency=USD"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestForUsesInstalledDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() {
		defaultLogger.Store(nil)
		slog.SetDefault(prev)
	})

	var buf bytes.Buffer
	SetDefault(New(Config{Level: slog.LevelInfo, Component: ComponentApp, Output: &buf}))

	For(ComponentWorker).InfoContext(context.Background(), "Ledger mirrored", FieldCount, 3)
	out := buf.String()
	if !strings.Contains(out, "component=worker") || strings.Contains(out, "component=app") {
		t.Fatalf("component should be replaced, got: %s", out)
	}
	if !strings.Contains(out, "count=3") {
		t.Fatalf("unexpected output: %s", out)
	}
}
