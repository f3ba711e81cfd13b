package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate runs the test from an empty directory so no stray .env is read,
// and clears the variables Load looks at.
func isolate(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatalf("failed to restore working directory: %v", err)
		}
	})
	for _, key := range []string{"BKS_AUTOSAVE_DIR", "BKS_STATE_DIR", "BKS_LOG_LEVEL", "BKS_LOG_FILE", "BKS_INTERVAL", "NVIM_LISTEN_ADDRESS"} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	s, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), false)
	if err != nil {
		t.Fatal(err)
	}
	if s != Defaults() {
		t.Errorf("Load = %+v, want defaults %+v", s, Defaults())
	}
}

func TestLoadRequiredMissingFile(t *testing.T) {
	isolate(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), true); err == nil {
		t.Fatal("expected error for a required missing config file")
	}
}

func TestLoadLayers(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `autosave_dir: /tmp/from-file
interval: 2m
log_level: debug
outline_visible: false
serve: 127.0.0.1:7777
`)
	t.Setenv("BKS_INTERVAL", "15")
	t.Setenv("BKS_STATE_DIR", "/tmp/state-from-env")

	s, err := Load(path, true)
	if err != nil {
		t.Fatal(err)
	}
	want := Settings{
		AutosaveDir:    "/tmp/from-file",
		Interval:       15 * time.Second,
		StateDir:       "/tmp/state-from-env",
		LogLevel:       "debug",
		OutlineVisible: false,
		ServeAddr:      "127.0.0.1:7777",
	}
	if s != want {
		t.Errorf("Load = %+v, want %+v", s, want)
	}
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	os.Unsetenv("BKS_LOG_FILE")
	t.Cleanup(func() { os.Unsetenv("BKS_LOG_FILE") })
	writeFile(t, ".env", "BKS_LOG_FILE=/tmp/bks-dotenv.log\n")

	s, err := Load("", false)
	if err != nil {
		t.Fatal(err)
	}
	if s.LogFile != "/tmp/bks-dotenv.log" {
		t.Errorf("LogFile = %q, want value from .env", s.LogFile)
	}
}

func TestLoadBadInterval(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "interval: soon\n")
	if _, err := Load(path, true); err == nil {
		t.Fatal("expected invalid interval error")
	}
}

func TestParseInterval(t *testing.T) {
	tests := map[string]time.Duration{
		"30":  30 * time.Second,
		"90s": 90 * time.Second,
		"2m":  2 * time.Minute,
		"0":   0,
	}
	for in, want := range tests {
		got, err := parseInterval(in)
		if err != nil || got != want {
			t.Errorf("parseInterval(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}
