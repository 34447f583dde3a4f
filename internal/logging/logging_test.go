package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/memelens/memelens/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"Error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetupWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "memelens.log")
	logger, closer, err := Setup(config.LoggingConfig{File: path, Level: "warn"}, nil)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	logger.Info("dropped")
	logger.Warn("image fetch failed", "index", 2)
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %s", len(lines), data)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if rec["msg"] != "image fetch failed" || rec["index"] != float64(2) {
		t.Errorf("record = %v", rec)
	}
}

func TestSetupTee(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.log")
	var tee bytes.Buffer
	logger, closer, err := Setup(config.LoggingConfig{File: path, Level: "debug"}, &tee)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer closer.Close()

	logger.With("component", "server").Debug("client connected")

	if !strings.Contains(tee.String(), "client connected") || !strings.Contains(tee.String(), "component=server") {
		t.Errorf("tee output = %q", tee.String())
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"component":"server"`) {
		t.Errorf("file output = %q", data)
	}
}

func TestNullLogger(t *testing.T) {
	NullLogger().Error("nothing happens")
}
