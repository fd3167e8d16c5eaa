package event

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/Iron-Ham/tabtint/internal/logging"
)

func TestBus_PublishToTypeAndWildcard(t *testing.T) {
	bus := NewBus(nil)

	var got []string
	bus.Subscribe(TypeDocumentShown, func(e Event) {
		id, _ := DocumentID(e)
		got = append(got, "shown:"+id)
	})
	bus.SubscribeAll(func(e Event) {
		got = append(got, "all:"+e.EventType())
	})
	bus.Subscribe(TypeDocumentClosed, func(e Event) {
		t.Error("closed handler should not see a shown event")
	})

	bus.Publish(NewDocumentShownEvent("17"))

	want := []string{"shown:17", "all:" + TypeDocumentShown}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil)

	calls := 0
	id := bus.Subscribe(TypeSelectionChanged, func(e Event) { calls++ })
	bus.Subscribe(TypeSelectionChanged, func(e Event) { calls += 10 })

	if !bus.Unsubscribe(id) {
		t.Fatal("Unsubscribe should find the subscription")
	}
	if bus.Unsubscribe(id) {
		t.Error("second Unsubscribe should report false")
	}

	bus.Publish(NewSelectionChangedEvent("1"))
	if calls != 10 {
		t.Errorf("calls = %d, want 10", calls)
	}

	bus.Clear()
	if bus.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount after Clear = %d", bus.SubscriptionCount())
	}
}

func TestBus_HandlerPanicIsLogged(t *testing.T) {
	var buf bytes.Buffer
	bus := NewBus(logging.NewWriterLogger(&buf, logging.LevelDebug))

	calls := 0
	bus.Subscribe(TypeDocumentClosed, func(e Event) {
		calls++
		panic("boom")
	})
	bus.Subscribe(TypeDocumentClosed, func(e Event) { calls++ })

	bus.Publish(NewDocumentClosedEvent("3"))

	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if !strings.Contains(buf.String(), "event handler panicked") {
		t.Errorf("panic not logged: %s", buf.String())
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	calls := 0
	bus.Subscribe(TypeDocumentAttributeChanged, func(e Event) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for range 100 {
		wg.Go(func() {
			bus.Publish(NewDocumentAttributeChangedEvent("9", "connection"))
		})
	}
	wg.Wait()

	if calls != 100 {
		t.Errorf("calls = %d, want 100", calls)
	}
}

func TestBus_UniqueIDs(t *testing.T) {
	bus := NewBus(nil)

	ids := make(map[string]bool)
	for range 100 {
		id := bus.Subscribe(TypeColorsSynced, func(e Event) {})
		if ids[id] {
			t.Errorf("duplicate subscription id %s", id)
		}
		ids[id] = true
	}
}

func TestDocumentID(t *testing.T) {
	tests := []struct {
		event  Event
		want   string
		wantOK bool
	}{
		{NewDocumentShownEvent("a"), "a", true},
		{NewDocumentAttributeChangedEvent("b", "connection"), "b", true},
		{NewDocumentClosedEvent("c"), "c", true},
		{NewSelectionChangedEvent("d"), "d", true},
		{NewDocumentRenamedEvent("e", "Prod", "SQLQuery1.sql", "Prod1"), "e", true},
		{NewColorsSyncedEvent("/tmp/x", 2, true), "", false},
		{NewRuleProposedEvent("srv", "db"), "", false},
	}
	for _, tt := range tests {
		got, ok := DocumentID(tt.event)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("DocumentID(%s) = (%q, %v), want (%q, %v)",
				tt.event.EventType(), got, ok, tt.want, tt.wantOK)
		}
	}
}
