package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name          string
		level         string
		json          bool
		expectedError bool
	}{
		{name: "info_console", level: "info"},
		{name: "debug_json", level: "debug", json: true},
		{name: "invalid_level", level: "loud", expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.level, tt.json)
			if tt.expectedError {
				if err == nil {
					t.Error("expected error, but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if log == nil {
				t.Error("expected logger, but got nil")
			}
		})
	}
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingest.log")

	log, err := New("info", true, WithFile(path), WithRotation(1, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log.Info("submission stored")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "submission stored") {
		t.Errorf("expected log line in file, but got '%s'", string(data))
	}
}
