package bks_test

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sokinpui/bookscript/bks"
	"github.com/sokinpui/bookscript/cli"
	"github.com/sokinpui/bookscript/internal/export"
)

type fixture struct {
	dir string
	cfg *cli.Config
	app *bks.App
}

// newFixture builds an App whose state and autosave directories live in a
// temp dir, running from that dir.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get current working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to change to temp dir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatalf("failed to restore working directory: %v", err)
		}
	})

	cfg := &cli.Config{
		StateDir:    filepath.Join(dir, "state"),
		AutosaveDir: filepath.Join(dir, "autosave"),
	}
	return &fixture{dir: dir, cfg: cfg, app: newApp(t, cfg)}
}

func newApp(t *testing.T, cfg *cli.Config) *bks.App {
	t.Helper()
	app, err := bks.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}
	return app
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestSaveAndOpen(t *testing.T) {
	f := newFixture(t)

	abs, err := f.app.Save("chapters/one.bks", "[CHAPTER: One]\n")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if abs != filepath.Join(f.dir, "chapters", "one.bks") {
		t.Errorf("Save returned %q", abs)
	}
	got, err := f.app.Open("chapters/one.bks")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got != "[CHAPTER: One]\n" {
		t.Errorf("Open = %q", got)
	}

	if _, err := f.app.Save("  ", "x"); !errors.Is(err, bks.ErrNoPath) {
		t.Errorf("Save without path = %v, want ErrNoPath", err)
	}
	if _, err := f.app.Open("missing.bks"); err == nil {
		t.Error("expected error opening a missing file")
	}
}

func TestConcurrentSaves(t *testing.T) {
	f := newFixture(t)

	const saves = 20
	var wg sync.WaitGroup
	for i := 0; i < saves; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := filepath.Join(f.dir, fmt.Sprintf("doc%d.bks", i))
			if _, err := f.app.Save(path, fmt.Sprintf("text %d", i)); err != nil {
				t.Errorf("Save %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	cfg := *f.cfg
	cfg.History = true
	summary, err := newApp(t, &cfg).Execute()
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(summary.Output, ".bks"); n != saves {
		t.Errorf("history lists %d saves, want %d", n, saves)
	}
}

func TestUndoRedo(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "draft.bks")

	if _, err := f.app.Save(path, "v1"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.app.Save(path, "v2"); err != nil {
		t.Fatal(err)
	}

	run := func(mutate func(*cli.Config)) error {
		t.Helper()
		cfg := *f.cfg
		mutate(&cfg)
		_, err := newApp(t, &cfg).Execute()
		return err
	}

	if err := run(func(c *cli.Config) { c.Undo = true }); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if got := readFile(t, path); got != "v1" {
		t.Errorf("after undo content = %q, want v1", got)
	}

	if err := run(func(c *cli.Config) { c.Redo = true }); err != nil {
		t.Fatalf("redo: %v", err)
	}
	if got := readFile(t, path); got != "v2" {
		t.Errorf("after redo content = %q, want v2", got)
	}

	// Undoing both saves removes the file created by the first one.
	run(func(c *cli.Config) { c.Undo = true })
	if err := run(func(c *cli.Config) { c.Undo = true }); err != nil {
		t.Fatalf("second undo: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected created file to be moved to trash, stat err = %v", err)
	}

	if err := run(func(c *cli.Config) { c.Redo = true }); err != nil {
		t.Fatalf("redo create: %v", err)
	}
	if got := readFile(t, path); got != "v1" {
		t.Errorf("after redo of create content = %q, want v1", got)
	}
}

func TestUndoRefusesModifiedFile(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "draft.bks")
	f.app.Save(path, "v1")
	f.app.Save(path, "v2")
	if err := os.WriteFile(path, []byte("edited elsewhere"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := *f.cfg
	cfg.Undo = true
	_, err := newApp(t, &cfg).Execute()
	if !errors.Is(err, bks.ErrModified) {
		t.Fatalf("undo of modified file = %v, want ErrModified", err)
	}
	if got := readFile(t, path); got != "edited elsewhere" {
		t.Errorf("file was touched: %q", got)
	}
}

func TestUndoKeepsHistoryWhenTrashUnavailable(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "draft.bks")
	if _, err := f.app.Save(path, "v1"); err != nil {
		t.Fatal(err)
	}
	// A file where the trash directory should be.
	trash := filepath.Join(f.cfg.StateDir, "trash")
	if err := os.WriteFile(trash, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := *f.cfg
	cfg.Undo = true
	summary, err := newApp(t, &cfg).Execute()
	if err == nil || len(summary.Failed) != 1 {
		t.Fatalf("undo with a broken trash = %+v, %v; want a failure", summary, err)
	}
	if got := readFile(t, path); got != "v1" {
		t.Errorf("file changed to %q", got)
	}

	// The save is still undoable once the trash can be created.
	if err := os.Remove(trash); err != nil {
		t.Fatal(err)
	}
	summary, err = newApp(t, &cfg).Execute()
	if err != nil {
		t.Fatal(err)
	}
	if summary.Message != "Undid last save." {
		t.Errorf("Message = %q, history pointer was not rolled back", summary.Message)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected file to be moved to trash, stat err = %v", err)
	}
}

func TestNothingToUndo(t *testing.T) {
	f := newFixture(t)
	cfg := *f.cfg
	cfg.Undo = true
	summary, err := newApp(t, &cfg).Execute()
	if err != nil {
		t.Fatal(err)
	}
	if summary.Message != "No save to undo." {
		t.Errorf("Message = %q", summary.Message)
	}
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	f.app.Save("a.bks", "1")
	f.app.Save("a.bks", "2")

	cfg := *f.cfg
	cfg.History = true
	summary, err := newApp(t, &cfg).Execute()
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(summary.Output, "a.bks"); n != 2 {
		t.Errorf("history lists %d saves, want 2:\n%s", n, summary.Output)
	}
}

func TestInitialContent(t *testing.T) {
	t.Run("existing file", func(t *testing.T) {
		f := newFixture(t)
		os.WriteFile(filepath.Join(f.dir, "doc.bks"), []byte("hello"), 0644)
		f.cfg.Path = "doc.bks"
		text, path, status, err := f.app.InitialContent()
		if err != nil || text != "hello" || path != filepath.Join(f.dir, "doc.bks") {
			t.Fatalf("InitialContent = %q %q %v", text, path, err)
		}
		if status != "Loaded: doc.bks" {
			t.Errorf("status = %q", status)
		}
	})

	t.Run("new file", func(t *testing.T) {
		f := newFixture(t)
		f.cfg.Path = "new.bks"
		text, path, status, err := f.app.InitialContent()
		if err != nil || text != "" || !strings.HasSuffix(path, "new.bks") || !strings.HasPrefix(status, "New file") {
			t.Errorf("InitialContent = %q %q %q %v", text, path, status, err)
		}
	})

	t.Run("recover autosave", func(t *testing.T) {
		f := newFixture(t)
		if err := os.WriteFile(f.app.AutosavePath(), []byte("lost work"), 0644); err != nil {
			t.Fatal(err)
		}
		_, _, status, _ := f.app.InitialContent()
		if !strings.Contains(status, "--recover") {
			t.Errorf("status should mention recovery, got %q", status)
		}

		f.cfg.Recover = true
		text, path, _, err := f.app.InitialContent()
		if err != nil || text != "lost work" || path != "" {
			t.Errorf("recovered = %q %q %v", text, path, err)
		}
	})
}

func TestReportModes(t *testing.T) {
	f := newFixture(t)
	os.WriteFile(filepath.Join(f.dir, "doc.bks"), []byte("[CHAPTER: One]\n[SCENE: Beach]\nWaves roll.\n"), 0644)

	cfg := *f.cfg
	cfg.Path = "doc.bks"
	cfg.Outline = true
	cfg.Stats = true
	summary, err := newApp(t, &cfg).Execute()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"One", "Beach", "Words: 2"} {
		if !strings.Contains(summary.Output, want) {
			t.Errorf("report missing %q:\n%s", want, summary.Output)
		}
	}

	cfg = *f.cfg
	cfg.Path = "doc.bks"
	cfg.Export = "md"
	cfg.Output = "out/doc.md"
	summary, err = newApp(t, &cfg).Execute()
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Written) != 1 {
		t.Fatalf("Written = %v", summary.Written)
	}
	if got := readFile(t, filepath.Join(f.dir, "out", "doc.md")); !strings.HasPrefix(got, "## One\n### Beach\n") {
		t.Errorf("exported markdown = %q", got)
	}
}

func TestExportToFile(t *testing.T) {
	f := newFixture(t)
	doc := filepath.Join(f.dir, "draft.bks")
	target, err := f.app.ExportToFile(doc, "[ACT: I]\n", export.FormatHTML)
	if err != nil {
		t.Fatal(err)
	}
	if target != filepath.Join(f.dir, "draft.html") {
		t.Errorf("target = %q", target)
	}
	if !strings.Contains(readFile(t, target), "<h1>I</h1>") {
		t.Error("exported html missing act heading")
	}
	if _, err := f.app.ExportToFile("", "x", export.FormatHTML); !errors.Is(err, bks.ErrNoPath) {
		t.Errorf("export without path = %v", err)
	}
}

func TestAutosaverDisabled(t *testing.T) {
	f := newFixture(t)
	f.cfg.NoAutosave = true
	f.cfg.Interval = 10
	if s := f.app.NewAutosaver(); s != nil {
		t.Error("expected no autosaver when disabled")
	}
	f.cfg.NoAutosave = false
	s := f.app.NewAutosaver()
	if s == nil || s.Path() != f.app.AutosavePath() {
		t.Errorf("unexpected autosaver %+v", s)
	}
}

func TestParseLibrary(t *testing.T) {
	doc := bks.Parse("[CHAPTER: One]\n[SCENE: Beach]\n")
	if len(doc.Outline) != 2 || doc.Stats.Tags != 2 {
		t.Errorf("Parse = %+v", doc)
	}
	if !strings.HasPrefix(doc.Markdown(), "## One") {
		t.Errorf("Markdown = %q", doc.Markdown())
	}
	if bks.About() != "BookScript Writer v0.1.0 - A simple writing app" {
		t.Errorf("About = %q", bks.About())
	}
}
