package orchestrator

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/tabtint/internal/colorsync"
	"github.com/Iron-Ham/tabtint/internal/errors"
	"github.com/Iron-Ham/tabtint/internal/event"
	"github.com/Iron-Ham/tabtint/internal/host"
	"github.com/Iron-Ham/tabtint/internal/logging"
	"github.com/Iron-Ham/tabtint/internal/testutil"
	"github.com/spf13/afero"
)

func TestSyncColors_WriteFailureLogsError(t *testing.T) {
	rulesPath := filepath.Join(t.TempDir(), "rules.yaml")
	testutil.WriteRules(t, rulesPath, prodRules())

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, colorFile, []byte("user\n"), 0644); err != nil {
		t.Fatal(err)
	}
	colors := colorsync.New(afero.NewReadOnlyFs(fs), colorOptions(), nil)
	t.Cleanup(colors.Reset)

	classifier, err := host.NewClassifier([]string{"*.sql"}, `^SQLQuery\d+\.sql`)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	bus := event.NewBus(nil)
	h := testutil.NewFakeHost(bus)
	o := New(h, colors, classifier, Options{RulesPath: rulesPath, MaxRetries: 1, RetryDelay: time.Hour},
		WithBus(bus), WithLogger(logging.NewWriterLogger(&buf, logging.LevelDebug)))

	d := doc("1", "SQLQuery1.sql", "PRODSQL01", "")
	h.Open(d)
	o.HandlePotentialChange(context.Background(), "1", d, ReasonShown)

	if got := h.Title("1"); got != "Prod1" {
		t.Errorf("title = %q, a failed color write must not block the rename", got)
	}
	var line string
	for l := range strings.SplitSeq(buf.String(), "\n") {
		if strings.Contains(l, `"msg":"color sync failed"`) {
			line = l
		}
	}
	if line == "" {
		t.Fatalf("write failure not logged as a failure:\n%s", buf.String())
	}
	if !strings.Contains(line, `"level":"ERROR"`) {
		t.Errorf("write failure should log at error level: %s", line)
	}
}

func TestSyncColors_UnresolvedStaysQuiet(t *testing.T) {
	f := newFixture(t, prodRules(), nil)
	var buf bytes.Buffer
	f.o.logger = logging.NewWriterLogger(&buf, logging.LevelDebug)

	d := doc("1", "SQLQuery1.sql", "PRODSQL01", "")
	d.Path = "/elsewhere/SQLQuery1.sql"
	if err := f.fs.Remove(colorFile); err != nil {
		t.Fatal(err)
	}
	f.add(d)
	f.o.HandlePotentialChange(context.Background(), "1", d, ReasonShown)

	out := buf.String()
	if !strings.Contains(out, `"msg":"color sync incomplete"`) {
		t.Fatalf("unresolved path should be logged as incomplete:\n%s", out)
	}
	if strings.Contains(out, `"msg":"color sync failed"`) {
		t.Errorf("unresolved path is retried and should not log as a failure:\n%s", out)
	}
}

func TestStarted_RetrySurvivesHostHiccup(t *testing.T) {
	f := newFixture(t, prodRules(), func(o *Options) { o.MaxRetries = 100 })
	if err := f.o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	f.host.Open(doc("1", "SQLQuery1.sql", "", ""))
	testutil.Eventually(t, time.Second, func() bool { return len(f.o.PendingRetries()) == 1 }, "retry scheduled")

	f.host.FailDocument(errors.NewHostError("read state file", errors.ErrHostUnavailable).WithOperation("read"))
	time.Sleep(50 * time.Millisecond)
	if len(f.o.PendingRetries()) != 1 {
		t.Fatal("a retryable host error should keep the retry loop alive")
	}

	f.host.FailDocument(nil)
	f.host.Update("1", func(d *host.Document) { d.Server = "PROD01" })
	testutil.Eventually(t, time.Second, func() bool { return f.host.Title("1") == "Prod1" }, "rename after host recovered")
}

func TestStarted_RetryStopsOnMissingDocument(t *testing.T) {
	f := newFixture(t, prodRules(), func(o *Options) { o.MaxRetries = 100 })
	if err := f.o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	f.host.Open(doc("1", "SQLQuery1.sql", "", ""))
	testutil.Eventually(t, time.Second, func() bool { return len(f.o.PendingRetries()) == 1 }, "retry scheduled")

	f.host.FailDocument(errors.NewNotFoundError("document", "1").WithCause(errors.ErrDocumentNotFound))
	testutil.Eventually(t, time.Second, func() bool { return len(f.o.PendingRetries()) == 0 }, "retry stopped")
}

func TestStop_DropsPendingRetries(t *testing.T) {
	f := newFixture(t, prodRules(), func(o *Options) { o.RetryDelay = time.Hour })
	if err := f.o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	f.host.Open(doc("1", "SQLQuery1.sql", "", ""))
	testutil.Eventually(t, time.Second, func() bool { return len(f.o.PendingRetries()) == 1 }, "retry scheduled")

	f.o.Stop()
	if got := f.o.PendingRetries(); len(got) != 0 {
		t.Errorf("PendingRetries() after Stop = %v", got)
	}
}

func TestDo_Lifecycle(t *testing.T) {
	f := newFixture(t, prodRules(), nil)
	ctx := context.Background()

	ran := false
	if err := f.o.Do(ctx, func() { ran = true }); err != nil || !ran {
		t.Fatalf("before Start: Do = %v, ran = %v; want inline run", err, ran)
	}

	if err := f.o.Start(ctx); err != nil {
		t.Fatal(err)
	}
	ran = false
	if err := f.o.Do(ctx, func() { ran = true }); err != nil || !ran {
		t.Fatalf("running: Do = %v, ran = %v", err, ran)
	}

	f.o.Stop()
	ran = false
	if err := f.o.Do(ctx, func() { ran = true }); !errors.Is(err, errors.ErrStopped) {
		t.Errorf("after Stop: Do = %v, want ErrStopped", err)
	}
	if ran {
		t.Error("after Stop: fn must not run")
	}
	if err := f.o.Reset(ctx); !errors.Is(err, errors.ErrStopped) {
		t.Errorf("after Stop: Reset = %v, want ErrStopped", err)
	}
}
