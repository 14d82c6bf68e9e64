package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/svemuri1602/air-quality-dashboard/internal/config"
)

func TestNew_prodWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "prod", LogLevel: config.LogLevel(slog.LevelInfo)}

	logger := newWithWriter(&buf, cfg, "1.2.3", "aqdash")
	logger.Info("dataset loaded", "dataset", "indoor")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	for key, want := range map[string]string{
		"msg":     "dataset loaded",
		"app":     "aqdash",
		"version": "1.2.3",
		"env":     "prod",
		"dataset": "indoor",
	} {
		if rec[key] != want {
			t.Errorf("%s = %v; want %q", key, rec[key], want)
		}
	}
}

func TestNew_levelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "prod", LogLevel: config.LogLevel(slog.LevelWarn)}

	logger := newWithWriter(&buf, cfg, "1.2.3", "aqdash")
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn record missing: %q", out)
	}
}

func TestNew_devUsesTextHandler(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "dev", LogLevel: config.LogLevel(slog.LevelDebug)}

	logger := newWithWriter(&buf, cfg, "dev", "aqdash")
	logger.Debug("fetching", "dataset", "outdoor")

	out := buf.String()
	if !strings.Contains(out, "fetching") || !strings.Contains(out, "dataset=outdoor") {
		t.Errorf("dev output = %q; want message and dataset attr", out)
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("dev output looks like JSON: %q", out)
	}
}
