// Package retry tracks bounded per-document retry loops.
//
// A document has at most one loop pending at a time. The loop records each
// attempt here and finishes itself on success, on exhaustion, or when the
// document stops qualifying.
package retry

import (
	"maps"
	"slices"
	"sync"
)

// DocumentState tracks the retry loop of one document.
type DocumentState struct {
	DocumentID  string `json:"document_id"`
	Reason      string `json:"reason"`
	Attempts    int    `json:"attempts"`
	MaxAttempts int    `json:"max_attempts"`
	LastError   string `json:"last_error,omitempty"`
}

// Exhausted reports whether every attempt has been used.
func (s DocumentState) Exhausted() bool {
	return s.Attempts >= s.MaxAttempts
}

// Manager holds the pending retry loops.
// It is thread-safe and can be used concurrently.
type Manager struct {
	mu     sync.RWMutex
	states map[string]*DocumentState
}

// NewManager creates a new retry manager.
func NewManager() *Manager {
	return &Manager{
		states: make(map[string]*DocumentState),
	}
}

// Begin registers a retry loop for a document. It returns false, changing
// nothing, when one is already pending or maxAttempts is not positive.
func (m *Manager) Begin(documentID, reason string, maxAttempts int) bool {
	if maxAttempts <= 0 {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.states[documentID]; exists {
		return false
	}
	m.states[documentID] = &DocumentState{
		DocumentID:  documentID,
		Reason:      reason,
		MaxAttempts: maxAttempts,
	}
	return true
}

// Pending reports whether a retry loop is registered for the document.
func (m *Manager) Pending(documentID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.states[documentID]
	return exists
}

// RecordAttempt counts an attempt and returns the new attempt number, or 0
// if no loop is registered.
func (m *Manager) RecordAttempt(documentID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, exists := m.states[documentID]
	if !exists {
		return 0
	}
	state.Attempts++
	return state.Attempts
}

// SetLastError records why the latest attempt did not complete.
func (m *Manager) SetLastError(documentID, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state, exists := m.states[documentID]; exists {
		state.LastError = errMsg
	}
}

// Finish removes the document's loop and returns its final state.
func (m *Manager) Finish(documentID string) (DocumentState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, exists := m.states[documentID]
	if !exists {
		return DocumentState{}, false
	}
	delete(m.states, documentID)
	return *state, true
}

// PendingDocuments returns the ids with a registered loop, sorted.
func (m *Manager) PendingDocuments() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.states))
}

// ResetAll drops every registered loop, including ones whose goroutine
// ended on cancellation without calling Finish.
func (m *Manager) ResetAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = make(map[string]*DocumentState)
}
