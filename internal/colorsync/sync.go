// Package colorsync keeps the generated block of the editor's tab
// colorization file in step with the open documents and the rules.
//
// The file lives in a host-chosen temp directory that is discovered
// lazily. Only the region between the begin and end markers is ever
// rewritten, and only when its content actually changes.
package colorsync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Iron-Ham/tabtint/internal/config"
	"github.com/Iron-Ham/tabtint/internal/errors"
	"github.com/Iron-Ham/tabtint/internal/host"
	"github.com/Iron-Ham/tabtint/internal/logging"
	"github.com/Iron-Ham/tabtint/internal/rules"
	"github.com/spf13/afero"
)

// Options control where the file is looked for and what the block looks
// like.
type Options struct {
	FileName       string
	TempRoot       string
	BeginMarker    string
	EndMarker      string
	QueryExtension string
	RetryDelay     time.Duration
	MaxAttempts    int
	WindowBefore   time.Duration
	WindowAfter    time.Duration
}

// OptionsFromConfig converts the colorization section of the app config.
func OptionsFromConfig(c config.ColorizationConfig) Options {
	return Options{
		FileName:       c.FileName,
		TempRoot:       c.ResolveTempRoot(),
		BeginMarker:    c.BeginMarker,
		EndMarker:      c.EndMarker,
		QueryExtension: c.QueryExtension,
		RetryDelay:     c.ResolveRetryDelay(),
		MaxAttempts:    c.ResolveMaxAttempts,
		WindowBefore:   c.WindowBefore(),
		WindowAfter:    c.WindowAfter(),
	}
}

// Result describes what one sync pass did.
type Result struct {
	Path           string
	Lines          []Line
	Written        bool
	RetryScheduled bool
	// Skipped is set when the pass stopped early: "no-rules",
	// "unresolved", "unchanged" or "error".
	Skipped string
	Err     error
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithClock overrides the time source used for the creation window.
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) { s.now = now }
}

// WithPath pins the colorization file, skipping discovery.
func WithPath(path string) Option {
	return func(s *Synchronizer) { s.resolved = path }
}

// Synchronizer writes the generated block. It is safe for concurrent use;
// passes are serialized internally.
type Synchronizer struct {
	fs     afero.Fs
	opts   Options
	logger *logging.Logger
	now    func() time.Time

	mu            sync.Mutex
	resolved      string
	firstObserved time.Time
	retryTimer    *time.Timer
	attempts      int
	inRetry       bool
	onRetry       func()
	last          snapshot
}

type snapshot struct {
	docs     []host.Document
	compiled []rules.CompiledRule
	manual   []rules.ManualRule
}

// New creates a Synchronizer on fs.
func New(fs afero.Fs, opts Options, logger *logging.Logger, options ...Option) *Synchronizer {
	if logger == nil {
		logger = logging.NopLogger()
	}
	s := &Synchronizer{
		fs:     fs,
		opts:   opts,
		logger: logger.WithComponent("colorsync"),
		now:    time.Now,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// OnRetry sets the function run when a scheduled path resolution retry
// fires. It runs on a timer goroutine; owners with their own execution
// context should enqueue a fresh pass rather than work inline. Without a
// hook the retry reuses the inputs of the pass that scheduled it.
func (s *Synchronizer) OnRetry(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRetry = fn
}

// NoteObserved records when the first document was seen. Later calls are
// ignored.
func (s *Synchronizer) NoteObserved(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.firstObserved.IsZero() {
		s.firstObserved = t
	}
}

// ResolvedPath returns the cached colorization file path, if any.
func (s *Synchronizer) ResolvedPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolved
}

// Reset forgets the cached path and cancels any pending retry.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolved = ""
	s.attempts = 0
	s.stopRetryLocked()
}

// UpdateFromSnapshot regenerates the block from the open documents and the
// rules and writes it if it changed. Failures are logged and reported in
// the Result; they never need handling by the caller.
func (s *Synchronizer) UpdateFromSnapshot(ctx context.Context, docs []host.Document, compiled []rules.CompiledRule, manual []rules.ManualRule) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A pass not started by a retry is a new trigger and earns a fresh
	// set of attempts.
	if s.retryTimer == nil && !s.inRetry {
		s.attempts = 0
	}
	s.inRetry = false
	return s.updateLocked(ctx, docs, compiled, manual)
}

func (s *Synchronizer) updateLocked(ctx context.Context, docs []host.Document, compiled []rules.CompiledRule, manual []rules.ManualRule) Result {
	if len(compiled) == 0 && len(manual) == 0 {
		return Result{Skipped: "no-rules"}
	}
	if len(docs) > 0 && s.firstObserved.IsZero() {
		s.firstObserved = s.now()
	}

	path, ok := s.resolve(docs)
	if !ok {
		s.last = snapshot{docs: docs, compiled: compiled, manual: manual}
		scheduled := s.scheduleRetryLocked(ctx)
		return Result{Skipped: "unresolved", RetryScheduled: scheduled, Err: errors.ErrPathUnresolved}
	}
	if s.resolved != path {
		s.logger.Info("colorization file located", "path", path)
	}
	s.resolved = path
	s.attempts = 0
	s.stopRetryLocked()

	lines := Render(docs, compiled, manual, s.opts.QueryExtension)
	res := Result{Path: path, Lines: lines}

	existing, err := afero.ReadFile(s.fs, path)
	if err != nil && !os.IsNotExist(err) {
		res.Skipped, res.Err = "error", s.syncErr("read", path, err)
		s.logger.Warn("cannot read colorization file", "path", path, "error", err.Error())
		return res
	}

	updated := Splice(string(existing), s.opts.BeginMarker, s.opts.EndMarker, Texts(lines))
	if Normalize(updated) == Normalize(string(existing)) {
		res.Skipped = "unchanged"
		return res
	}

	if err := ctx.Err(); err != nil {
		res.Skipped, res.Err = "error", err
		return res
	}

	if err := s.writeFile(path, []byte(updated)); err != nil {
		res.Skipped, res.Err = "error", s.syncErr("write", path, err)
		s.logger.Warn("cannot write colorization file", "path", path, "error", err.Error())
		return res
	}

	res.Written = true
	s.logger.Info("colorization block updated", "path", path, "lines", len(lines))
	return res
}

// scheduleRetryLocked arms the single resolution retry timer. It reports
// false when a retry is already pending or the attempts are used up.
func (s *Synchronizer) scheduleRetryLocked(ctx context.Context) bool {
	if s.retryTimer != nil {
		return false
	}
	if s.attempts >= s.opts.MaxAttempts {
		if s.opts.MaxAttempts > 0 {
			s.logger.Warn("colorization file not found, giving up until next change",
				"attempts", s.attempts)
		}
		return false
	}
	if ctx.Err() != nil {
		return false
	}

	s.attempts++
	s.logger.Debug("colorization file not found, retry scheduled",
		"attempt", s.attempts, "delay", s.opts.RetryDelay.String())
	s.retryTimer = time.AfterFunc(s.opts.RetryDelay, func() {
		s.fireRetry(ctx)
	})
	return true
}

func (s *Synchronizer) fireRetry(ctx context.Context) {
	s.mu.Lock()
	s.retryTimer = nil
	hook := s.onRetry
	if hook != nil {
		s.inRetry = true
		s.mu.Unlock()
		hook()
		return
	}
	defer s.mu.Unlock()
	last := s.last
	s.updateLocked(ctx, last.docs, last.compiled, last.manual)
}

func (s *Synchronizer) stopRetryLocked() {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
}

// RetryPending reports whether a resolution retry is scheduled.
func (s *Synchronizer) RetryPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryTimer != nil
}

func (s *Synchronizer) syncErr(stage, path string, err error) error {
	return errors.NewSyncError("colorization sync failed", err).WithStage(stage).WithPath(path)
}

// writeFile writes data to a temp file next to path and renames it into
// place, creating the directory if needed.
func (s *Synchronizer) writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpFile, err := afero.TempFile(s.fs, dir, ".tabtint-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			_ = s.fs.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := s.fs.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
