package util

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")
	logger.Info("hidden")
	logger.Warn("shown", "owner", "alice")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, "owner=alice") {
		t.Fatalf("expected owner attr in %q", out)
	}
}

func TestLogErrorUsesDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(NewLogger(&buf, "info"))
	t.Cleanup(func() { slog.SetDefault(prev) })

	LogError("ignored", nil)
	if buf.Len() != 0 {
		t.Fatalf("nil error should not log")
	}
	LogError("publish failed", errors.New("boom"))
	if !strings.Contains(buf.String(), "publish failed") {
		t.Fatalf("expected context in %q", buf.String())
	}
}

func TestPtrDeref(t *testing.T) {
	p := Ptr(42)
	if Deref(p) != 42 {
		t.Fatalf("Deref(Ptr(42)) = %d", Deref(p))
	}
	var nilPtr *string
	if Deref(nilPtr) != "" {
		t.Fatalf("Deref(nil) should be zero value")
	}
}

func TestDataDirHonorsXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	if got := DataDir("timekeep"); got != filepath.Join("/xdg/data", "timekeep") {
		t.Fatalf("DataDir = %q", got)
	}
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	if got := ConfigDir("timekeep"); got != filepath.Join("/xdg/config", "timekeep") {
		t.Fatalf("ConfigDir = %q", got)
	}
}
