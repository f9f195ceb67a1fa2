package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nnetctl/internal/config"
)

func TestConsoleHandlerFormatsComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))
	logger = NewComponentLogger(logger, "trainer")

	logger.Info("iteration complete", Int("iter", 3), String("model", "exp dir/4.mdl"))

	line := buf.String()
	if !strings.Contains(line, " INFO trainer[iter 3]: iteration complete") {
		t.Fatalf("unexpected prefix: %q", line)
	}
	if strings.Contains(line, "iter=3") {
		t.Fatalf("iteration should be rendered in the prefix only, got %q", line)
	}
	if !strings.Contains(line, `model="exp dir/4.mdl"`) {
		t.Fatalf("expected quoted value, got %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be rendered as prefix only, got %q", line)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, "WARN shown") {
		t.Fatalf("warn line missing: %q", out)
	}
}

func TestNewJSONWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, closeLog, err := New(Options{Level: "debug", Format: "json", Sinks: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("objective parsed", Float64("objective", -1.25))
	if err := closeLog(); err != nil {
		t.Fatalf("close log: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &payload); err != nil {
		t.Fatalf("decode json line %q: %v", data, err)
	}
	if payload["msg"] != "objective parsed" || payload["level"] != "debug" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key in %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigCreatesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "log")
	cfg.Logging.Format = "json"

	logger, path, closeLog, err := NewFromConfig(&cfg, "")
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "nnetctl-") {
		t.Fatalf("unexpected log path %q", path)
	}
	logger.Info("started")
	if err := closeLog(); err != nil {
		t.Fatalf("close log: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"started"`) {
		t.Fatalf("log file missing record: %q", data)
	}
}

func TestCloseReleasesFileSinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.log")
	logger, closeLog, err := New(Options{Sinks: []string{"stderr", path, path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("before close")
	if err := closeLog(); err != nil {
		t.Fatalf("close log: %v", err)
	}
	// A second close reports the already-closed file.
	if err := closeLog(); err == nil {
		t.Fatal("expected error closing an already closed sink")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "before close") {
		t.Fatalf("log file missing record: %q", data)
	}
}

func TestWithContextAddsRunAndIteration(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, new(slog.LevelVar), false))
	ctx := WithIteration(WithRunID(context.Background(), "run-1"), 7)

	WithContext(ctx, logger).Info("selected")

	out := buf.String()
	if !strings.Contains(out, "run_id=run-1") || !strings.Contains(out, "[iter 7] selected") {
		t.Fatalf("expected context fields, got %q", out)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, new(slog.LevelVar), false))

	WarnWithContext(logger, "model rejected", "model_rejected", String(FieldImpact, "candidate dropped"))

	out := buf.String()
	for _, want := range []string{"event_type=model_rejected", "error_hint=", `impact="candidate dropped"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestCleanupOldLogsRemovesExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "nnetctl-old.log")
	newPath := filepath.Join(dir, "nnetctl-new.log")
	trainLog := filepath.Join(dir, "train.0.1.log")
	for _, p := range []string{oldPath, newPath, trainLog} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	past := time.Now().AddDate(0, 0, -10)
	for _, p := range []string{oldPath, trainLog} {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	if removed := CleanupOldLogs(NewNop(), 3, RetentionTarget{Dir: dir, Exclude: []string{newPath}}); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	if _, err := os.Stat(newPath); err != nil {
		t.Fatalf("expected recent log kept: %v", err)
	}
	if _, err := os.Stat(trainLog); err != nil {
		t.Fatalf("expected non-matching log kept: %v", err)
	}
}
