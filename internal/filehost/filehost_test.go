package filehost

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/tabtint/internal/errors"
	"github.com/Iron-Ham/tabtint/internal/event"
	"github.com/Iron-Ham/tabtint/internal/host"
	"github.com/Iron-Ham/tabtint/internal/testutil"
	"github.com/spf13/afero"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) handle(e event.Event) {
	id, _ := event.DocumentID(e)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.EventType()+":"+id)
}

func (r *recorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

func newRecorded(fs afero.Fs, path string, opts ...Option) (*Host, *recorder) {
	bus := event.NewBus(nil)
	rec := &recorder{}
	bus.SubscribeAll(rec.handle)
	return New(fs, path, bus, opts...), rec
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRefresh_Diffs(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/state/host.yaml"
	h, rec := newRecorded(fs, path)

	steps := []struct {
		name  string
		state State
		want  []string
	}{
		{
			name: "initial",
			state: State{Documents: []host.Document{
				{ID: "1", Title: "SQLQuery1.sql"},
				{ID: "2", Title: "SQLQuery2.sql", Server: "DEV"},
			}},
			want: []string{"document.shown:1", "document.shown:2"},
		},
		{
			name: "connect and select",
			state: State{Selected: "2", Documents: []host.Document{
				{ID: "1", Title: "SQLQuery1.sql", Server: "PROD"},
				{ID: "2", Title: "SQLQuery2.sql", Server: "DEV"},
			}},
			want: []string{"document.attribute_changed:1", "selection.changed:2"},
		},
		{
			name: "title only",
			state: State{Selected: "2", Documents: []host.Document{
				{ID: "1", Title: "Prod1", Server: "PROD"},
				{ID: "2", Title: "SQLQuery2.sql", Server: "DEV"},
			}},
			want: nil,
		},
		{
			name: "close",
			state: State{Selected: "2", Documents: []host.Document{
				{ID: "2", Title: "SQLQuery2.sql", Server: "DEV"},
			}},
			want: []string{"document.closed:1"},
		},
	}

	for _, step := range steps {
		if err := WriteState(fs, path, step.state); err != nil {
			t.Fatalf("%s: WriteState failed: %v", step.name, err)
		}
		if err := h.Refresh(); err != nil {
			t.Fatalf("%s: Refresh failed: %v", step.name, err)
		}
		if got := rec.take(); !equal(got, step.want) {
			t.Errorf("%s: events = %v, want %v", step.name, got, step.want)
		}
	}

	docs, _ := h.OpenDocuments(context.Background())
	if len(docs) != 1 || docs[0].ID != "2" {
		t.Errorf("OpenDocuments = %+v", docs)
	}
}

func TestRefresh_MissingFileIsEmpty(t *testing.T) {
	h, rec := newRecorded(afero.NewMemMapFs(), "/nope/host.yaml")
	if err := h.Refresh(); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if got := rec.take(); len(got) != 0 {
		t.Errorf("unexpected events: %v", got)
	}
}

func TestRefresh_InvalidYAML(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/s.yaml", []byte("documents: [\n"), 0644); err != nil {
		t.Fatal(err)
	}
	h, _ := newRecorded(fs, "/s.yaml")
	if err := h.Refresh(); err == nil {
		t.Error("expected parse error")
	}
}

// lockedFs refuses to open anything, like a state file held by another
// process.
type lockedFs struct {
	afero.Fs
}

func (lockedFs) Open(string) (afero.File, error) {
	return nil, os.ErrPermission
}

func TestRefresh_UnreadableFileIsRetryable(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/s.yaml", []byte("documents: []\n"), 0644); err != nil {
		t.Fatal(err)
	}
	h, _ := newRecorded(lockedFs{fs}, "/s.yaml")

	err := h.Refresh()
	if !errors.Is(err, errors.ErrHostUnavailable) {
		t.Fatalf("err = %v, want ErrHostUnavailable", err)
	}
	if !errors.Is(err, os.ErrPermission) {
		t.Error("the underlying read error should stay in the chain")
	}
	if !errors.IsRetryable(err) {
		t.Error("an unreadable state file should be retryable")
	}
}

func TestDocument_NotFound(t *testing.T) {
	h, _ := newRecorded(afero.NewMemMapFs(), "/s.yaml")
	_, err := h.Document(context.Background(), "42")
	if !errors.Is(err, errors.ErrDocumentNotFound) {
		t.Errorf("err = %v, want ErrDocumentNotFound", err)
	}
}

func TestSetTitle_WritesBack(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/state/host.yaml"
	if err := WriteState(fs, path, State{Documents: []host.Document{
		{ID: "1", Title: "SQLQuery1.sql", Server: "PROD"},
	}}); err != nil {
		t.Fatal(err)
	}
	h, _ := newRecorded(fs, path)
	if err := h.Refresh(); err != nil {
		t.Fatal(err)
	}

	if err := h.SetTitle(context.Background(), "1", "Prod1"); err != nil {
		t.Fatalf("SetTitle failed: %v", err)
	}

	st, err := ReadState(fs, path)
	if err != nil {
		t.Fatal(err)
	}
	if st.Documents[0].Title != "Prod1" || st.Documents[0].Server != "PROD" {
		t.Errorf("state after SetTitle = %+v", st.Documents[0])
	}
	d, _ := h.Document(context.Background(), "1")
	if d.Title != "Prod1" {
		t.Errorf("cached title = %q", d.Title)
	}

	if err := h.SetTitle(context.Background(), "9", "x"); !errors.Is(err, errors.ErrDocumentNotFound) {
		t.Errorf("SetTitle unknown doc err = %v", err)
	}

	// Closed by the writer but not refreshed yet.
	if err := WriteState(fs, path, State{}); err != nil {
		t.Fatal(err)
	}
	err = h.SetTitle(context.Background(), "1", "Prod2")
	if !errors.Is(err, errors.ErrDocumentNotFound) {
		t.Errorf("SetTitle vanished doc err = %v", err)
	}
	if errors.IsRetryable(err) {
		t.Error("a vanished document should not be retried")
	}
}

func TestStart_WatchesFile(t *testing.T) {
	fs := afero.NewOsFs()
	path := filepath.Join(t.TempDir(), "host.yaml")
	h, rec := newRecorded(fs, path, WithDebounce(10*time.Millisecond))

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer h.Stop()

	if err := WriteState(fs, path, State{Documents: []host.Document{{ID: "7", Title: "SQLQuery7.sql"}}}); err != nil {
		t.Fatal(err)
	}

	var got []string
	testutil.Eventually(t, 2*time.Second, func() bool {
		got = append(got, rec.take()...)
		return len(got) > 0
	}, "shown event after write")
	if got[0] != "document.shown:7" {
		t.Errorf("events = %v", got)
	}
}
