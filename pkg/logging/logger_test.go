package logging

import (
	"log/slog"
	"testing"
)

func TestNewLevels(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for level, want := range cases {
		logger := New(level)
		if logger == nil || logger.Logger == nil {
			t.Fatalf("New(%q) returned nil logger", level)
		}
		if !logger.Enabled(nil, want) {
			t.Errorf("New(%q): expected level %v enabled", level, want)
		}
	}
}

func TestWithReturnsWrappedLogger(t *testing.T) {
	logger := Default().With("component", "test")
	if logger == nil || logger.Logger == nil {
		t.Fatal("With returned nil logger")
	}
}

func TestNewTextFormat(t *testing.T) {
	logger := NewText("debug")
	if logger == nil {
		t.Fatal("NewText returned nil")
	}
	if !logger.Enabled(nil, slog.LevelDebug) {
		t.Error("expected debug enabled")
	}
}
