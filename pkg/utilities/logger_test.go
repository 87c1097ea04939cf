package utilities

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestConfigFromEnvLevelDefaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_DEV", "1")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if !cfg.Dev || cfg.Level != "debug" {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	t.Setenv("LOG_DEV", "0")
	cfg, err = ConfigFromEnv()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.Dev || cfg.Level != "info" || cfg.MaxAge != 168*time.Hour {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"loud":    zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := levelFromString(in); got != want {
			t.Fatalf("levelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitWritesRotatedFile(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "userview.log")
	lg, err := Init(Config{Level: "info", File: file, MaxAge: time.Hour, RotationTime: time.Hour})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	lg.Info("view served", zap.String("request_id", "abc"))
	_ = lg.Sync()

	matches, err := filepath.Glob(file + ".*")
	if err != nil || len(matches) == 0 {
		t.Fatalf("no rotated log file (err %v)", err)
	}
	raw, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), `"msg":"view served"`) || !strings.Contains(string(raw), `"request_id":"abc"`) {
		t.Fatalf("unexpected log output: %s", raw)
	}
}

func TestRequestIDsAreUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewRequestID()
		if id == "" || seen[id] {
			t.Fatalf("duplicate or empty request id %q", id)
		}
		seen[id] = true
	}
	if len(NewKSUID()) != 27 {
		t.Fatal("unexpected ksuid length")
	}
}
