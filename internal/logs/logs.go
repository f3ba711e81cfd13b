package logs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

// Options selects the log sinks.
type Options struct {
	Level   string
	File    string    // Log file path; empty disables the file sink.
	Stderr  io.Writer // Terminal sink; nil when a TUI owns the terminal.
	Journal bool
}

// ParseLevel maps debug/info/warn/error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// New builds a logger fanning out to every configured sink. The returned
// close function releases the log file.
func New(opts Options) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	l, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	level.Set(l)

	var (
		handlers []slog.Handler
		closer   = func() error { return nil }
	)

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, nil, fmt.Errorf("could not create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open log file: %w", err)
		}
		closer = f.Close
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	}

	var terminalHandler slog.Handler
	if opts.Stderr != nil {
		terminalHandler = slog.NewTextHandler(opts.Stderr, &slog.HandlerOptions{Level: level})
		handlers = append(handlers, terminalHandler)
	}

	if opts.Journal {
		journalHandler, err := slogjournal.NewHandler(&slogjournal.Options{
			Level: level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = toJournalKey(a.Key)
				return a
			},
		})
		if err != nil {
			if terminalHandler != nil {
				record := slog.NewRecord(time.Now(), slog.LevelWarn, "new systemd journal handler", 0)
				record.Add("error", err)
				_ = terminalHandler.Handle(context.Background(), record)
			}
		} else {
			handlers = append(handlers, journalHandler)
		}
	}

	if len(handlers) == 0 {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), closer, nil
	}
	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

// toJournalKey upper-cases a key and replaces characters journald rejects.
func toJournalKey(str string) string {
	str = strings.ToUpper(str)
	return strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, str)
}
