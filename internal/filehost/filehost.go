// Package filehost implements host.Host over a YAML state file. Something
// outside tabtint (an editor bridge, a script, a test) writes the list of
// open documents to the file; tabtint diffs each version against the last
// and publishes the host events the orchestrator consumes. Title changes
// made through SetTitle are written back to the same file.
//
// The file looks like:
//
//	selected: "2"
//	documents:
//	  - id: "1"
//	    title: SQLQuery1.sql
//	    path: C:\Users\me\AppData\Local\Temp\{GUID}\SQLQuery1.sql
//	    server: PRODSQL01
//	    database: Orders
package filehost

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Iron-Ham/tabtint/internal/errors"
	"github.com/Iron-Ham/tabtint/internal/event"
	"github.com/Iron-Ham/tabtint/internal/host"
	"github.com/Iron-Ham/tabtint/internal/logging"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultDebounce coalesces the burst of events a single save produces.
const DefaultDebounce = 50 * time.Millisecond

// State is the on-disk form of the host.
type State struct {
	Selected  string          `yaml:"selected,omitempty"`
	Documents []host.Document `yaml:"documents"`
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(h *Host) { h.logger = l }
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(h *Host) { h.debounce = d }
}

// Host is a host.Host backed by a state file.
type Host struct {
	fs       afero.Fs
	path     string
	bus      *event.Bus
	logger   *logging.Logger
	debounce time.Duration

	mu       sync.Mutex
	docs     map[string]host.Document
	order    []string
	selected string

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

var _ host.Host = (*Host)(nil)

// New creates a Host for the state file at path. Events are published on
// bus. Nothing is read until Refresh or Start.
func New(fs afero.Fs, path string, bus *event.Bus, opts ...Option) *Host {
	h := &Host{
		fs:       fs,
		path:     path,
		bus:      bus,
		debounce: DefaultDebounce,
		docs:     make(map[string]host.Document),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logging.NopLogger()
	}
	h.logger = h.logger.WithComponent("filehost")
	return h
}

// Path returns the state file path.
func (h *Host) Path() string {
	return h.path
}

// ReadState parses the state file. A missing file is an empty state.
func ReadState(fs afero.Fs, path string) (State, error) {
	var st State
	data, err := afero.ReadFile(fs, path)
	if os.IsNotExist(err) {
		return st, nil
	}
	if err != nil {
		return st, errors.NewHostError("read state file", fmt.Errorf("%w: %w", errors.ErrHostUnavailable, err)).
			WithOperation("read")
	}
	if err := yaml.Unmarshal(data, &st); err != nil {
		return st, errors.NewHostError("parse state file", err).WithOperation("parse")
	}
	return st, nil
}

// WriteState writes st to path through a temp file and rename.
func WriteState(fs afero.Fs, path string, st State) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return errors.NewHostError("encode state file", err).WithOperation("write")
	}
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return errors.NewHostError("create state dir", err).WithOperation("write")
	}

	tmp, err := afero.TempFile(fs, dir, ".tabtint-state-*")
	if err != nil {
		return errors.NewHostError("create temp state file", err).WithOperation("write")
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = fs.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.NewHostError("write temp state file", err).WithOperation("write")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.NewHostError("sync temp state file", err).WithOperation("write")
	}
	if err := tmp.Close(); err != nil {
		return errors.NewHostError("close temp state file", err).WithOperation("write")
	}
	if err := fs.Rename(tmpName, path); err != nil {
		return errors.NewHostError("replace state file", err).WithOperation("write")
	}
	success = true
	return nil
}

// Refresh re-reads the state file and publishes an event for every
// difference from the previous read: document.shown for new documents,
// document.attribute_changed when a connection changed,
// document.closed for documents that disappeared and selection.changed
// when another document became active. Title-only changes publish nothing.
func (h *Host) Refresh() error {
	st, err := ReadState(h.fs, h.path)
	if err != nil {
		return err
	}

	var pending []event.Event

	h.mu.Lock()
	next := make(map[string]host.Document, len(st.Documents))
	order := make([]string, 0, len(st.Documents))
	for _, d := range st.Documents {
		if strings.TrimSpace(d.ID) == "" {
			continue
		}
		if _, dup := next[d.ID]; dup {
			h.logger.Warn("duplicate document id in state file", "document_id", d.ID)
			continue
		}
		next[d.ID] = d
		order = append(order, d.ID)

		prev, known := h.docs[d.ID]
		switch {
		case !known:
			pending = append(pending, event.NewDocumentShownEvent(d.ID))
		case prev.Server != d.Server || prev.Database != d.Database:
			pending = append(pending, event.NewDocumentAttributeChangedEvent(d.ID, "connection"))
		case prev.Path != d.Path:
			pending = append(pending, event.NewDocumentAttributeChangedEvent(d.ID, "path"))
		}
	}
	for _, id := range h.order {
		if _, ok := next[id]; !ok {
			pending = append(pending, event.NewDocumentClosedEvent(id))
		}
	}
	if st.Selected != h.selected && st.Selected != "" {
		if _, ok := next[st.Selected]; ok {
			pending = append(pending, event.NewSelectionChangedEvent(st.Selected))
		}
	}
	h.docs = next
	h.order = order
	h.selected = st.Selected
	h.mu.Unlock()

	if h.bus != nil {
		for _, e := range pending {
			h.bus.Publish(e)
		}
	}
	return nil
}

// OpenDocuments implements host.Host, in file order.
func (h *Host) OpenDocuments(context.Context) ([]host.Document, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]host.Document, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.docs[id])
	}
	return out, nil
}

// Document implements host.Host.
func (h *Host) Document(_ context.Context, id string) (host.Document, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	d, ok := h.docs[id]
	if !ok {
		return host.Document{}, errors.NewNotFoundError("document", id).WithCause(errors.ErrDocumentNotFound)
	}
	return d, nil
}

// SetTitle implements host.Host by rewriting the state file. The file is
// re-read first so concurrent edits by the writer are not lost.
func (h *Host) SetTitle(_ context.Context, id, title string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.docs[id]; !ok {
		return errors.NewNotFoundError("document", id).WithCause(errors.ErrDocumentNotFound)
	}

	st, err := ReadState(h.fs, h.path)
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(st.Documents, func(d host.Document) bool { return d.ID == id })
	if idx < 0 {
		return errors.NewHostError("document vanished from state file", errors.ErrDocumentNotFound).
			WithDocument(id).WithOperation("set_title").WithRetryable(false)
	}
	st.Documents[idx].Title = title
	if err := WriteState(h.fs, h.path, st); err != nil {
		return err
	}

	d := h.docs[id]
	d.Title = title
	h.docs[id] = d
	return nil
}

// Start reads the state file and watches it for changes until ctx ends or
// Stop is called. The watcher needs the OS filesystem.
func (h *Host) Start(ctx context.Context) error {
	if err := h.Refresh(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.NewHostError("create watcher", err).WithOperation("watch")
	}
	dir := filepath.Dir(h.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		_ = watcher.Close()
		return errors.NewHostError("create state dir", err).WithOperation("watch")
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return errors.NewHostError("watch state dir", err).WithOperation("watch")
	}

	ctx, cancel := context.WithCancel(ctx)
	h.watcher = watcher
	h.cancel = cancel

	h.wg.Add(1)
	go h.watchLoop(ctx, watcher)
	return nil
}

// Stop ends the watcher and waits for it.
func (h *Host) Stop() {
	if h.cancel == nil {
		return
	}
	h.cancel()
	_ = h.watcher.Close()
	h.wg.Wait()
	h.cancel = nil
}

func (h *Host) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer h.wg.Done()
	target := filepath.Base(h.path)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(h.debounce)
			} else {
				timer.Reset(h.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := h.Refresh(); err != nil {
				h.logger.Warn("state file refresh failed", "path", h.path, "error", err.Error())
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			h.logger.Warn("state file watcher error", "error", err.Error())
		}
	}
}
