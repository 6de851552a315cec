package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abhisek/kidquest/internal/config"
)

func TestNew_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kidquest.log")
	log, err := New(config.LogConfig{Mode: "prod", Level: "debug", File: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("answer recorded")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"answer recorded"`) {
		t.Errorf("log file missing entry: %s", data)
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
