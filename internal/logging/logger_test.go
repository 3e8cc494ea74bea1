package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stwalsh4118/git-check-rebase/internal/config"
)

func TestNewLogger_FileOutputCarriesRunID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "gcr.log")
	log, err := NewLogger(config.LoggingConfig{Level: "info", FilePath: path}, "run-42")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	log.With("component", "test").Info("compared", "pairs", 3)
	log.Debug("hidden below level")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	out := string(data)
	for _, want := range []string{`"run_id":"run-42"`, `"component":"test"`, `"pairs":3`, `"message":"compared"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in log output, got %s", want, out)
		}
	}
	if strings.Contains(out, "hidden below level") {
		t.Error("debug entry must be filtered at info level")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"debug", false},
		{"INFO", false},
		{"warning", false},
		{"", false},
		{"error", false},
		{"verbose", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := parseLogLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
		})
	}
}

func TestNoopLogger(t *testing.T) {
	log := NewNoopLogger()
	log.With("k", "v").Error("nothing happens")
}
