// Package autosave runs the single goroutine that persists editor
// snapshots to the autosave file.
package autosave

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sokinpui/bookscript/internal/storage"
	"github.com/sokinpui/bookscript/model"
)

// ErrStopped is returned by Flush once the saver has exited.
var ErrStopped = errors.New("autosave stopped")

// SaveFunc writes content to path.
type SaveFunc func(path, content string) error

// Saver owns the autosave file. The editor hands it snapshots through
// Publish; only the Run goroutine ever writes.
type Saver struct {
	path     string
	interval time.Duration
	logger   *slog.Logger
	save     SaveFunc
	now      func() time.Time

	mailbox  chan model.Snapshot
	results  chan model.SaveResult
	flushReq chan chan error
	done     chan struct{}
}

// Option configures a Saver.
type Option func(*Saver)

// WithLogger sets the logger used for save attempts.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Saver) { s.logger = logger }
}

// WithSaveFunc replaces the file writer, mostly for tests.
func WithSaveFunc(fn SaveFunc) Option {
	return func(s *Saver) { s.save = fn }
}

// New creates a Saver writing to path every interval. A non-positive
// interval disables the timer; Flush and the final flush still work.
func New(path string, interval time.Duration, opts ...Option) *Saver {
	s := &Saver{
		path:     path,
		interval: interval,
		logger:   slog.Default(),
		save:     storage.Save,
		now:      time.Now,
		mailbox:  make(chan model.Snapshot, 1),
		results:  make(chan model.SaveResult, 8),
		flushReq: make(chan chan error),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the autosave file path.
func (s *Saver) Path() string { return s.path }

// Results delivers the outcome of every write attempt. Results are dropped
// when the channel is full.
func (s *Saver) Results() <-chan model.SaveResult { return s.results }

// Done is closed after Run has returned.
func (s *Saver) Done() <-chan struct{} { return s.done }

// Publish hands the latest buffer contents to the saver. It never blocks:
// an unread older snapshot is replaced.
func (s *Saver) Publish(snap model.Snapshot) {
	for {
		select {
		case s.mailbox <- snap:
			return
		default:
		}
		select {
		case <-s.mailbox:
		default:
		}
	}
}

// Flush asks the saver to write the latest snapshot now.
func (s *Saver) Flush(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case s.flushReq <- reply:
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run writes the latest snapshot on every tick until ctx is cancelled, then
// writes any snapshot that has not been written yet and returns.
func (s *Saver) Run(ctx context.Context) {
	defer close(s.done)

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var (
		latest  model.Snapshot
		have    bool
		written bool
		lastRev uint64
	)
	drain := func() {
		select {
		case snap := <-s.mailbox:
			latest, have = snap, true
		default:
		}
	}
	write := func() error {
		err := s.write(latest)
		if err == nil {
			written, lastRev = true, latest.Revision
		}
		return err
	}

	s.logger.Debug("autosave started", "path", s.path, "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			drain()
			if have && (!written || lastRev != latest.Revision) {
				_ = write()
			}
			s.logger.Debug("autosave stopped", "path", s.path)
			return

		case snap := <-s.mailbox:
			latest, have = snap, true

		case <-tick:
			drain()
			if have {
				_ = write()
			}

		case reply := <-s.flushReq:
			drain()
			var err error
			if have {
				err = write()
			}
			reply <- err
		}
	}
}

func (s *Saver) write(snap model.Snapshot) error {
	err := s.save(s.path, snap.Text)
	result := model.SaveResult{
		Revision: snap.Revision,
		Path:     s.path,
		At:       s.now(),
		Err:      err,
	}
	if err != nil {
		s.logger.Error("autosave failed", "path", s.path, "revision", snap.Revision, "error", err)
	} else {
		s.logger.Info("autosaved", "path", s.path, "revision", snap.Revision, "bytes", len(snap.Text))
	}

	select {
	case s.results <- result:
	default:
		s.logger.Debug("autosave result dropped", "revision", snap.Revision)
	}
	return err
}
