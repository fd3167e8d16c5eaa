// Package testutil provides fixtures shared by tabtint tests: an in-memory
// host, rule files and colorization directories.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/tabtint/internal/errors"
	"github.com/Iron-Ham/tabtint/internal/event"
	"github.com/Iron-Ham/tabtint/internal/host"
	"github.com/Iron-Ham/tabtint/internal/rules"
)

// GUID is a well-formed host temp directory name.
const GUID = "ABCDEF12-3456-7890-ABCD-EF1234567890"

// ColorizationFile is the default colorization file name.
const ColorizationFile = "ColorByRegexConfig.txt"

// FakeHost is an in-memory host.Host. Mutators publish the matching host
// events when a bus is attached.
type FakeHost struct {
	mu          sync.Mutex
	docs        map[string]host.Document
	order       []string
	bus         *event.Bus
	renames     []Rename
	SetTitleErr error
	documentErr error
}

// Rename records one SetTitle call.
type Rename struct {
	ID    string
	Title string
}

// NewFakeHost creates an empty host publishing on bus (which may be nil).
func NewFakeHost(bus *event.Bus) *FakeHost {
	return &FakeHost{docs: make(map[string]host.Document), bus: bus}
}

// Open adds a document and publishes document.shown.
func (h *FakeHost) Open(d host.Document) {
	h.mu.Lock()
	if _, exists := h.docs[d.ID]; !exists {
		h.order = append(h.order, d.ID)
	}
	h.docs[d.ID] = d
	h.mu.Unlock()
	h.publish(event.NewDocumentShownEvent(d.ID))
}

// Connect changes a document's connection and publishes
// document.attribute_changed.
func (h *FakeHost) Connect(id, server, database string) {
	h.Update(id, func(d *host.Document) {
		d.Server = server
		d.Database = database
	})
	h.publish(event.NewDocumentAttributeChangedEvent(id, "connection"))
}

// Update changes a document without publishing anything, like a host that
// switches connections silently.
func (h *FakeHost) Update(id string, fn func(*host.Document)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if d, ok := h.docs[id]; ok {
		fn(&d)
		h.docs[id] = d
	}
}

// Close removes a document and publishes document.closed.
func (h *FakeHost) Close(id string) {
	h.mu.Lock()
	delete(h.docs, id)
	h.order = slices.DeleteFunc(h.order, func(s string) bool { return s == id })
	h.mu.Unlock()
	h.publish(event.NewDocumentClosedEvent(id))
}

func (h *FakeHost) publish(e event.Event) {
	if h.bus != nil {
		h.bus.Publish(e)
	}
}

// OpenDocuments implements host.Host, in opening order.
func (h *FakeHost) OpenDocuments(context.Context) ([]host.Document, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]host.Document, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.docs[id])
	}
	return out, nil
}

// Document implements host.Host.
func (h *FakeHost) Document(_ context.Context, id string) (host.Document, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.documentErr != nil {
		return host.Document{}, h.documentErr
	}
	d, ok := h.docs[id]
	if !ok {
		return host.Document{}, errors.NewNotFoundError("document", id).WithCause(errors.ErrDocumentNotFound)
	}
	return d, nil
}

// SetTitle implements host.Host and records the call.
func (h *FakeHost) SetTitle(_ context.Context, id, title string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.SetTitleErr != nil {
		return h.SetTitleErr
	}
	d, ok := h.docs[id]
	if !ok {
		return errors.ErrDocumentNotFound
	}
	d.Title = title
	h.docs[id] = d
	h.renames = append(h.renames, Rename{ID: id, Title: title})
	return nil
}

// FailDocument makes Document return err until called again with nil.
func (h *FakeHost) FailDocument(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.documentErr = err
}

// Title returns a document's current title.
func (h *FakeHost) Title(id string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.docs[id].Title
}

// Renames returns every recorded SetTitle call.
func (h *FakeHost) Renames() []Rename {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.renames)
}

// WriteRules saves cfg as a rule file at path.
func WriteRules(t *testing.T, path string, cfg *rules.Config) {
	t.Helper()
	if err := rules.Save(path, cfg); err != nil {
		t.Fatalf("failed to write rule file: %v", err)
	}
}

// SetupColorizationDir creates root/GUID/ColorizationFile with content and
// returns the GUID directory and the file path.
func SetupColorizationDir(t *testing.T, root, content string) (dir, file string) {
	t.Helper()
	dir = filepath.Join(root, GUID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create GUID dir: %v", err)
	}
	file = filepath.Join(dir, ColorizationFile)
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write colorization file: %v", err)
	}
	return dir, file
}

// Eventually polls cond until it holds or timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !cond() {
		t.Fatalf("condition not met within %v: %s", timeout, msg)
	}
}
