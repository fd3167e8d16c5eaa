// Package event defines the events exchanged between the host layer and
// the orchestrator, and a small synchronous pub-sub bus to carry them.
//
// The host side publishes document lifecycle and selection events; the
// orchestrator subscribes and, in turn, publishes what it did (renames,
// color syncs, proposals) for the CLI and tests to observe.
package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "document.shown").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeDocumentShown            = "document.shown"
	TypeDocumentAttributeChanged = "document.attribute_changed"
	TypeDocumentClosed           = "document.closed"
	TypeSelectionChanged         = "selection.changed"

	TypeDocumentRenamed = "document.renamed"
	TypeColorsSynced    = "colors.synced"
	TypeRuleProposed    = "rule.proposed"
	TypeRulesReloaded   = "rules.reloaded"
)

// baseEvent provides common fields for all events.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Host Events
// -----------------------------------------------------------------------------

// DocumentShownEvent is emitted when a document window is first shown.
type DocumentShownEvent struct {
	baseEvent
	DocumentID string
}

// NewDocumentShownEvent creates a DocumentShownEvent.
func NewDocumentShownEvent(documentID string) DocumentShownEvent {
	return DocumentShownEvent{
		baseEvent:  newBaseEvent(TypeDocumentShown),
		DocumentID: documentID,
	}
}

// DocumentAttributeChangedEvent is emitted when a document property changes,
// most importantly its connection.
type DocumentAttributeChangedEvent struct {
	baseEvent
	DocumentID string
	Attribute  string // e.g. "connection", "path", "title"
}

// NewDocumentAttributeChangedEvent creates a DocumentAttributeChangedEvent.
func NewDocumentAttributeChangedEvent(documentID, attribute string) DocumentAttributeChangedEvent {
	return DocumentAttributeChangedEvent{
		baseEvent:  newBaseEvent(TypeDocumentAttributeChanged),
		DocumentID: documentID,
		Attribute:  attribute,
	}
}

// DocumentClosedEvent is emitted when the host releases its last reference
// to a document.
type DocumentClosedEvent struct {
	baseEvent
	DocumentID string
}

// NewDocumentClosedEvent creates a DocumentClosedEvent.
func NewDocumentClosedEvent(documentID string) DocumentClosedEvent {
	return DocumentClosedEvent{
		baseEvent:  newBaseEvent(TypeDocumentClosed),
		DocumentID: documentID,
	}
}

// SelectionChangedEvent is emitted when the active document changes.
type SelectionChangedEvent struct {
	baseEvent
	DocumentID string
}

// NewSelectionChangedEvent creates a SelectionChangedEvent.
func NewSelectionChangedEvent(documentID string) SelectionChangedEvent {
	return SelectionChangedEvent{
		baseEvent:  newBaseEvent(TypeSelectionChanged),
		DocumentID: documentID,
	}
}

// DocumentID extracts the document id from a host event. The bool is false
// for events that do not refer to a document.
func DocumentID(e Event) (string, bool) {
	switch ev := e.(type) {
	case DocumentShownEvent:
		return ev.DocumentID, true
	case DocumentAttributeChangedEvent:
		return ev.DocumentID, true
	case DocumentClosedEvent:
		return ev.DocumentID, true
	case SelectionChangedEvent:
		return ev.DocumentID, true
	case DocumentRenamedEvent:
		return ev.DocumentID, true
	}
	return "", false
}

// -----------------------------------------------------------------------------
// Orchestrator Events
// -----------------------------------------------------------------------------

// DocumentRenamedEvent is emitted after a tab title was written.
type DocumentRenamedEvent struct {
	baseEvent
	DocumentID string
	Group      string
	OldTitle   string
	NewTitle   string
}

// NewDocumentRenamedEvent creates a DocumentRenamedEvent.
func NewDocumentRenamedEvent(documentID, group, oldTitle, newTitle string) DocumentRenamedEvent {
	return DocumentRenamedEvent{
		baseEvent:  newBaseEvent(TypeDocumentRenamed),
		DocumentID: documentID,
		Group:      group,
		OldTitle:   oldTitle,
		NewTitle:   newTitle,
	}
}

// ColorsSyncedEvent is emitted after a colorization sync pass.
type ColorsSyncedEvent struct {
	baseEvent
	Path    string
	Lines   int
	Written bool
}

// NewColorsSyncedEvent creates a ColorsSyncedEvent.
func NewColorsSyncedEvent(path string, lines int, written bool) ColorsSyncedEvent {
	return ColorsSyncedEvent{
		baseEvent: newBaseEvent(TypeColorsSynced),
		Path:      path,
		Lines:     lines,
		Written:   written,
	}
}

// RuleProposedEvent is emitted when an unmatched connection was handed to
// the proposal collaborator.
type RuleProposedEvent struct {
	baseEvent
	Server   string
	Database string
}

// NewRuleProposedEvent creates a RuleProposedEvent.
func NewRuleProposedEvent(server, database string) RuleProposedEvent {
	return RuleProposedEvent{
		baseEvent: newBaseEvent(TypeRuleProposed),
		Server:    server,
		Database:  database,
	}
}

// RulesReloadedEvent is emitted after the rule file was reloaded.
type RulesReloadedEvent struct {
	baseEvent
	Path   string
	Groups int
	Manual int
}

// NewRulesReloadedEvent creates a RulesReloadedEvent.
func NewRulesReloadedEvent(path string, groups, manual int) RulesReloadedEvent {
	return RulesReloadedEvent{
		baseEvent: newBaseEvent(TypeRulesReloaded),
		Path:      path,
		Groups:    groups,
		Manual:    manual,
	}
}
