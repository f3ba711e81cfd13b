package logs

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestFanoutToFileAndStderr(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bks.log")
	var stderr bytes.Buffer

	logger, closeLog, err := New(Options{Level: "info", File: path, Stderr: &stderr})
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hidden")
	logger.Info("autosaved", "revision", 3)
	if err := closeLog(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for name, out := range map[string]string{"file": string(data), "stderr": stderr.String()} {
		if !strings.Contains(out, "msg=autosaved") || !strings.Contains(out, "revision=3") {
			t.Errorf("%s sink missing record: %q", name, out)
		}
		if strings.Contains(out, "hidden") {
			t.Errorf("%s sink logged below level: %q", name, out)
		}
	}
}

func TestNoSinksDiscards(t *testing.T) {
	logger, closeLog, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer closeLog()
	logger.Info("nowhere")
}

func TestToJournalKey(t *testing.T) {
	if got := toJournalKey("file.path-x"); got != "FILE_PATH_X" {
		t.Errorf("toJournalKey = %q", got)
	}
}
