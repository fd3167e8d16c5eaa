package orchestrator

import "github.com/Iron-Ham/tabtint/internal/event"

// Reason says why a document is being re-evaluated.
type Reason int

const (
	ReasonShown Reason = iota
	ReasonAttributeChanged
	ReasonSelectionChanged
	ReasonClosed
	ReasonPoll
	ReasonRetry
	ReasonConfigReload
	ReasonManual
)

var reasonNames = map[Reason]string{
	ReasonShown:            "shown",
	ReasonAttributeChanged: "attribute_changed",
	ReasonSelectionChanged: "selection_changed",
	ReasonClosed:           "closed",
	ReasonPoll:             "poll",
	ReasonRetry:            "retry",
	ReasonConfigReload:     "config_reload",
	ReasonManual:           "manual",
}

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return "unknown"
}

// IsConnectionChange reports whether the reason signals that the
// document's connection may have changed. Such passes re-check documents
// whose titles were already customized, and always resync colors.
func (r Reason) IsConnectionChange() bool {
	return r == ReasonAttributeChanged || r == ReasonPoll
}

// reasonForEvent maps a host event to a reason.
func reasonForEvent(e event.Event) (Reason, bool) {
	switch e.EventType() {
	case event.TypeDocumentShown:
		return ReasonShown, true
	case event.TypeDocumentAttributeChanged:
		return ReasonAttributeChanged, true
	case event.TypeSelectionChanged:
		return ReasonSelectionChanged, true
	case event.TypeDocumentClosed:
		return ReasonClosed, true
	}
	return 0, false
}
