package bks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/sokinpui/bookscript/cli"
	"github.com/sokinpui/bookscript/internal/autosave"
	"github.com/sokinpui/bookscript/internal/export"
	"github.com/sokinpui/bookscript/internal/parser"
	"github.com/sokinpui/bookscript/internal/source"
	"github.com/sokinpui/bookscript/internal/state"
	"github.com/sokinpui/bookscript/internal/storage"
	"github.com/sokinpui/bookscript/internal/ui"
	"github.com/sokinpui/bookscript/model"
)

const (
	Name    = "BookScript Writer"
	Version = "0.1.0"
)

// ErrNoPath is returned when an operation needs a file path and has none.
var ErrNoPath = errors.New("no file path")

// ErrModified is returned when undo/redo finds the file changed since the
// recorded save.
var ErrModified = errors.New("file changed since it was saved")

// About is the text shown by the help screen.
func About() string {
	return fmt.Sprintf("%s v%s - A simple writing app", Name, Version)
}

// App orchestrates storage, parsing, autosave and save history.
type App struct {
	cfg            *cli.Config
	logger         *slog.Logger
	stateManager   *state.Manager
	pathResolver   *storage.PathResolver
	sourceProvider *source.SourceProvider
	autosaveDir    string
}

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error {
	return e.Err
}

// New creates a new App instance. Every path the App touches comes from cfg.
func New(cfg *cli.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	stateManager, err := state.New(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize state manager: %w", err)
	}
	pathResolver, err := storage.NewPathResolver("")
	if err != nil {
		return nil, err
	}
	autosaveDir, err := storage.AutosaveDir(cfg.AutosaveDir)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		stateManager:   stateManager,
		pathResolver:   pathResolver,
		sourceProvider: source.New(),
		autosaveDir:    autosaveDir,
	}, nil
}

// Config returns the configuration the App was built with.
func (a *App) Config() *cli.Config { return a.cfg }

// Logger returns the App logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// AutosavePath is where the autosave file lives.
func (a *App) AutosavePath() string {
	return storage.AutosavePath(a.autosaveDir)
}

// HasAutosave reports whether an autosave file from an earlier session exists.
func (a *App) HasAutosave() bool {
	return storage.Exists(a.AutosavePath())
}

// Resolve turns a user-entered path into an absolute one.
func (a *App) Resolve(path string) string {
	return a.pathResolver.Resolve(path)
}

// DisplayPath shortens path for status messages.
func (a *App) DisplayPath(path string) string {
	return a.pathResolver.Relative(path)
}

// Open loads the file at path.
func (a *App) Open(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrNoPath
	}
	abs := a.Resolve(path)
	content, err := storage.Load(abs)
	if err != nil {
		return "", err
	}
	a.logger.Info("loaded file", "path", abs, "bytes", len(content))
	return content, nil
}

// Save writes text to path and records the save in the history. A failure
// to record history is logged but does not fail the save.
func (a *App) Save(path, text string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrNoPath
	}
	abs := a.Resolve(path)

	var previous *string
	if storage.Exists(abs) {
		if old, err := storage.Load(abs); err == nil {
			previous = &old
		}
	}

	if err := storage.Save(abs, text); err != nil {
		return "", err
	}
	a.logger.Info("saved file", "path", abs, "bytes", len(text))

	if _, err := a.stateManager.Record(abs, text, previous); err != nil {
		a.logger.Warn("failed to record save history", "path", abs, "error", err)
	}
	return abs, nil
}

// InitialContent decides what the editor starts with: the file given on the
// command line, pasted input, or the recovered autosave.
func (a *App) InitialContent() (text, path, status string, err error) {
	switch {
	case a.cfg.Paste:
		text, err = a.sourceProvider.GetContent()
		if err != nil {
			return "", "", "", err
		}
		if a.cfg.Path != "" {
			path = a.Resolve(a.cfg.Path)
		}
		return text, path, "Loaded pasted text", nil

	case a.cfg.Path != "":
		path = a.Resolve(a.cfg.Path)
		if !storage.Exists(path) {
			return "", path, fmt.Sprintf("New file: %s", a.DisplayPath(path)), nil
		}
		text, err = a.Open(path)
		if err != nil {
			return "", "", "", err
		}
		return text, path, fmt.Sprintf("Loaded: %s", a.DisplayPath(path)), nil

	case a.cfg.Recover:
		if !a.HasAutosave() {
			return "", "", "No autosave to recover", nil
		}
		text, err = storage.Load(a.AutosavePath())
		if err != nil {
			return "", "", "", err
		}
		return text, "", fmt.Sprintf("Recovered autosave from %s", a.AutosavePath()), nil
	}

	status = "Ready"
	if a.HasAutosave() {
		status = "Ready (an autosave exists, start with --recover to restore it)"
	}
	return "", "", status, nil
}

// NewAutosaver creates the autosave writer, or nil when autosave is disabled.
func (a *App) NewAutosaver() *autosave.Saver {
	interval := a.cfg.AutosaveInterval()
	if interval <= 0 {
		return nil
	}
	return autosave.New(a.AutosavePath(), interval, autosave.WithLogger(a.logger))
}

// StartAutosave runs the autosave writer until ctx is cancelled. It returns
// nil when autosave is disabled.
func (a *App) StartAutosave(ctx context.Context) *autosave.Saver {
	saver := a.NewAutosaver()
	if saver == nil {
		return nil
	}
	go saver.Run(ctx)
	return saver
}

// Analyze parses text and returns its outline and structure.
func (a *App) Analyze(text string) ([]model.OutlineEntry, model.DocumentStructure) {
	_, structure := parser.Analyze(text)
	return parser.Outline(structure), structure
}

// Export renders text in format.
func (a *App) Export(text string, format export.Format) (string, error) {
	return export.Render(text, format)
}

// ExportToFile renders text and writes it next to the document path with
// the format's extension.
func (a *App) ExportToFile(docPath, text string, format export.Format) (string, error) {
	if docPath == "" {
		return "", ErrNoPath
	}
	out, err := a.Export(text, format)
	if err != nil {
		return "", err
	}
	target := strings.TrimSuffix(docPath, filepath.Ext(docPath)) + format.Ext()
	if err := storage.Save(target, out); err != nil {
		return "", err
	}
	return target, nil
}

// Execute runs the headless mode selected by the flags.
func (a *App) Execute() (summary model.Summary, err error) {
	// Centralized panic recovery.
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	switch {
	case a.cfg.Undo:
		return a.undoLastSave()
	case a.cfg.Redo:
		return a.redoLastSave()
	case a.cfg.History:
		entries, current := a.stateManager.Entries()
		return model.Summary{Output: ui.FormatHistory(entries, current)}, nil
	default:
		return a.report()
	}
}

// report handles --outline, --stats and --export.
func (a *App) report() (model.Summary, error) {
	text, _, _, err := a.InitialContent()
	if err != nil {
		return model.Summary{}, err
	}

	var out strings.Builder
	if a.cfg.Outline {
		outline, structure := a.Analyze(text)
		out.WriteString(ui.FormatOutline(outline, structure))
	}
	if a.cfg.Stats {
		if out.Len() > 0 {
			out.WriteString("\n")
		}
		out.WriteString(ui.FormatStats(parser.ComputeStats(text)))
	}
	if a.cfg.Export == "" {
		return model.Summary{Output: out.String()}, nil
	}

	format, err := export.ParseFormat(a.cfg.Export)
	if err != nil {
		return model.Summary{}, err
	}
	rendered, err := a.Export(text, format)
	if err != nil {
		return model.Summary{}, err
	}
	if a.cfg.Output == "" {
		out.WriteString(rendered)
		return model.Summary{Output: out.String()}, nil
	}
	target := a.Resolve(a.cfg.Output)
	if err := storage.Save(target, rendered); err != nil {
		return model.Summary{Failed: []string{a.cfg.Output}}, err
	}
	return model.Summary{Output: out.String(), Written: []string{a.DisplayPath(target)}}, nil
}

// undoLastSave restores the file content from before the last save.
func (a *App) undoLastSave() (model.Summary, error) {
	entry, err := a.stateManager.Undo()
	if errors.Is(err, state.ErrNothingToUndo) {
		return model.Summary{Message: "No save to undo."}, nil
	}
	if err != nil {
		return model.Summary{}, err
	}

	if err := a.checkUnchanged(entry.Path, entry.Hash); err != nil {
		a.rollback(a.stateManager.Redo)
		return model.Summary{Failed: []string{a.DisplayPath(entry.Path)}}, err
	}

	if entry.Action == state.ActionCreate {
		trash := a.stateManager.TrashPath(entry)
		if err := os.MkdirAll(filepath.Dir(trash), 0755); err != nil {
			a.rollback(a.stateManager.Redo)
			return model.Summary{Failed: []string{a.DisplayPath(entry.Path)}}, fmt.Errorf("failed to create trash directory: %w", err)
		}
		if err := os.Rename(entry.Path, trash); err != nil {
			a.rollback(a.stateManager.Redo)
			return model.Summary{Failed: []string{a.DisplayPath(entry.Path)}}, fmt.Errorf("failed to move file to trash: %w", err)
		}
		a.logger.Info("undo moved created file to trash", "path", entry.Path, "trash", trash)
		return model.Summary{Message: "Undid last save.", Restored: []string{a.DisplayPath(entry.Path) + " (removed)"}}, nil
	}

	if err := a.restore(entry.Path, entry.PrevHash); err != nil {
		a.rollback(a.stateManager.Redo)
		return model.Summary{Failed: []string{a.DisplayPath(entry.Path)}}, err
	}
	return model.Summary{Message: "Undid last save.", Restored: []string{a.DisplayPath(entry.Path)}}, nil
}

// redoLastSave re-applies the save the pointer moves onto.
func (a *App) redoLastSave() (model.Summary, error) {
	entry, err := a.stateManager.Redo()
	if errors.Is(err, state.ErrNothingToRedo) {
		return model.Summary{Message: "No save to redo."}, nil
	}
	if err != nil {
		return model.Summary{}, err
	}

	expected := entry.PrevHash
	if entry.Action == state.ActionCreate {
		if storage.Exists(entry.Path) {
			a.rollback(a.stateManager.Undo)
			return model.Summary{Failed: []string{a.DisplayPath(entry.Path)}}, fmt.Errorf("%s: %w", entry.Path, ErrModified)
		}
	} else if err := a.checkUnchanged(entry.Path, expected); err != nil {
		a.rollback(a.stateManager.Undo)
		return model.Summary{Failed: []string{a.DisplayPath(entry.Path)}}, err
	}

	if err := a.restore(entry.Path, entry.Hash); err != nil {
		a.rollback(a.stateManager.Undo)
		return model.Summary{Failed: []string{a.DisplayPath(entry.Path)}}, err
	}
	return model.Summary{Message: "Redid last undone save.", Restored: []string{a.DisplayPath(entry.Path)}}, nil
}

// rollback moves the history pointer back after an undo or redo that could
// not touch the file.
func (a *App) rollback(move func() (state.Entry, error)) {
	if _, err := move(); err != nil {
		a.logger.Error("failed to roll back save history", "error", err)
	}
}

func (a *App) checkUnchanged(path, wantHash string) error {
	current, err := storage.FileSHA256(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if current != wantHash {
		return fmt.Errorf("%s: %w", path, ErrModified)
	}
	return nil
}

func (a *App) restore(path, hash string) error {
	content, err := a.stateManager.Revision(hash)
	if err != nil {
		return err
	}
	if err := storage.Save(path, content); err != nil {
		return err
	}
	a.logger.Info("restored revision", "path", path, "hash", hash)
	return nil
}
