package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate keeps the user's config file, .env and environment out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, key := range []string{"BKS_AUTOSAVE_DIR", "BKS_STATE_DIR", "BKS_LOG_LEVEL", "BKS_LOG_FILE", "BKS_INTERVAL", "NVIM_LISTEN_ADDRESS"} {
		t.Setenv(key, "")
	}
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
}

func TestParseArgsDefaults(t *testing.T) {
	isolate(t)
	cfg, err := ParseArgs([]string{"draft.bks"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path != "draft.bks" {
		t.Errorf("Path = %q", cfg.Path)
	}
	if cfg.Interval != time.Minute || cfg.AutosaveInterval() != time.Minute {
		t.Errorf("Interval = %v", cfg.Interval)
	}
	if cfg.HideOutline {
		t.Error("outline should be visible by default")
	}
	if cfg.Headless() {
		t.Error("plain invocation must start the editor")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "bks.yaml")
	content := "interval: 2m\nautosave_dir: /tmp/auto\noutline_visible: false\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ParseArgs([]string{"--config", path, "--interval", "5s", "--no-autosave"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Interval != 5*time.Second {
		t.Errorf("Interval = %v, want flag value", cfg.Interval)
	}
	if cfg.AutosaveDir != "/tmp/auto" {
		t.Errorf("AutosaveDir = %q, want config value", cfg.AutosaveDir)
	}
	if !cfg.HideOutline {
		t.Error("outline_visible: false should hide the outline")
	}
	if cfg.AutosaveInterval() != 0 {
		t.Error("--no-autosave should disable the interval")
	}
}

func TestParseArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"undo and redo", []string{"--undo", "--redo"}},
		{"bad export format", []string{"--export", "pdf", "a.bks"}},
		{"two files", []string{"a.bks", "b.bks"}},
		{"outline without input", []string{"--outline"}},
		{"output without export", []string{"-o", "out.md", "a.bks"}},
		{"negative interval", []string{"--interval", "-1s"}},
		{"unknown flag", []string{"--bogus"}},
		{"missing required config", []string{"--config", "/nonexistent/bks.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			if _, err := ParseArgs(tt.args); err == nil {
				t.Errorf("ParseArgs(%v) succeeded, want error", tt.args)
			}
		})
	}
}

func TestHeadlessModes(t *testing.T) {
	isolate(t)
	for _, args := range [][]string{
		{"--outline", "a.bks"},
		{"--stats", "a.bks"},
		{"--export", "html", "a.bks"},
		{"--history"},
		{"-u"},
		{"-r"},
	} {
		cfg, err := ParseArgs(args)
		if err != nil {
			t.Fatalf("ParseArgs(%v): %v", args, err)
		}
		if !cfg.Headless() {
			t.Errorf("ParseArgs(%v) should be headless", args)
		}
	}
}
