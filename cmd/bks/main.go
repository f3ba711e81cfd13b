package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/sokinpui/bookscript/bks"
	"github.com/sokinpui/bookscript/cli"
	"github.com/sokinpui/bookscript/internal/logs"
	"github.com/sokinpui/bookscript/internal/preview"
	"github.com/sokinpui/bookscript/internal/storage"
	"github.com/sokinpui/bookscript/internal/tui"
	"github.com/sokinpui/bookscript/internal/ui"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := cli.ParseFlags()
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		return 1
	}
	defer closeLog()

	app, err := bks.New(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		return 1
	}

	if cfg.Headless() {
		return runHeadless(app)
	}
	return runEditor(app, logger)
}

func newLogger(cfg *cli.Config) (*slog.Logger, func() error, error) {
	file := cfg.LogFile
	if file == "" {
		dir := cfg.StateDir
		if dir == "" {
			var err error
			if dir, err = storage.DataDir(); err != nil {
				return nil, nil, err
			}
		}
		file = filepath.Join(storage.ExpandHome(dir), "bks.log")
	}

	// The editor owns the terminal, so only headless runs log to stderr.
	var stderr io.Writer
	if cfg.Headless() {
		stderr = os.Stderr
	}
	return logs.New(logs.Options{
		Level:   cfg.LogLevel,
		File:    file,
		Stderr:  stderr,
		Journal: cfg.Journal,
	})
}

func runHeadless(app *bks.App) int {
	summary, err := app.Execute()
	if err != nil {
		ui.Error("Error: %v", err)
		var detailed *bks.DetailedError
		if errors.As(err, &detailed) {
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", detailed.Stack)
		}
		return 1
	}
	if summary.Output != "" {
		fmt.Fprint(os.Stdout, summary.Output)
	}
	ui.PrintSummary(os.Stderr, summary)
	if len(summary.Failed) > 0 {
		return 1
	}
	return 0
}

func reportExit(app *bks.App, m tui.Model, autosaved bool) {
	switch {
	case m.Dirty() && autosaved:
		ui.Warning("Unsaved changes are kept in the autosave file.")
		ui.Info("Restore them with: bks --recover")
	case m.Dirty():
		ui.Warning("Unsaved changes were discarded.")
	case m.Path() != "":
		ui.Success("All changes saved to %s", app.DisplayPath(m.Path()))
	}
	if autosaved {
		ui.Info("Autosave file: %s", app.AutosavePath())
	}
}

func runEditor(app *bks.App, logger *slog.Logger) int {
	text, path, status, err := app.InitialContent()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading file: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Servers stop with a separate context so the final autosave is not
	// raced by shutdown.
	serveCtx, stopServe := context.WithCancel(context.Background())
	defer stopServe()

	opts := tui.Options{
		Text:   text,
		Path:   path,
		Status: status,
		Saver:  app.StartAutosave(ctx),
		Cancel: cancel,
	}

	if addr := app.Config().Serve; addr != "" {
		srv := preview.New(logger)
		opts.Preview = srv
		go func() {
			if err := srv.ListenAndServe(serveCtx, addr); err != nil {
				logger.Error("preview server failed", "addr", addr, "error", err)
			}
		}()
	}

	p := tea.NewProgram(tui.New(app, opts), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		ui.Error("Error running program: %v", err)
		return 1
	}

	cancel()
	if opts.Saver != nil {
		<-opts.Saver.Done()
	}
	if m, ok := final.(tui.Model); ok {
		reportExit(app, m, opts.Saver != nil)
	}
	return 0
}
