// Package renamer hands out per-group sequence numbers for documents so
// renamed tab titles stay stable and never collide within a group.
package renamer

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/Iron-Ham/tabtint/internal/util"
)

// Separators may follow a composed title in a tab the user or host has
// decorated ("Prod1 - Orders", "Prod1.sql"); such titles count as renamed.
const Separators = " -._(:"

// DefaultStyle composes the group name directly followed by the sequence.
const DefaultStyle = "{group}{n}"

// Assignment is the sequence slot a document holds in a group.
type Assignment struct {
	DocumentID string
	Group      string
	Sequence   int
}

// Renamer tracks assignments for open documents. It is safe for concurrent
// use.
type Renamer struct {
	mu          sync.RWMutex
	assignments map[string]Assignment
}

// New creates an empty Renamer.
func New() *Renamer {
	return &Renamer{
		assignments: make(map[string]Assignment),
	}
}

// Assign returns the document's assignment in group. A document already in
// that group keeps its slot; otherwise it gets one more than the highest
// sequence currently held in the group, so numbers are not reused while a
// tab with the old title may still be visible. The bool reports whether a
// new assignment was made.
func (r *Renamer) Assign(id, group string) (Assignment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.assignments[id]; ok && util.EqualFold(a.Group, group) {
		return a, false
	}

	next := 1
	for docID, a := range r.assignments {
		if docID != id && util.EqualFold(a.Group, group) && a.Sequence >= next {
			next = a.Sequence + 1
		}
	}

	a := Assignment{DocumentID: id, Group: group, Sequence: next}
	r.assignments[id] = a
	return a, true
}

// Lookup returns the current assignment of a document.
func (r *Renamer) Lookup(id string) (Assignment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assignments[id]
	return a, ok
}

// Forget drops the document's assignment, typically when it closes. Other
// documents in the group keep their numbers.
func (r *Renamer) Forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.assignments, id)
}

// Reset drops every assignment.
func (r *Renamer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assignments = make(map[string]Assignment)
}

// Assignments returns a snapshot ordered by group, then sequence.
func (r *Renamer) Assignments() []Assignment {
	r.mu.RLock()
	out := make([]Assignment, 0, len(r.assignments))
	for _, a := range r.assignments {
		out = append(out, a)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Assignment) int {
		if c := util.CompareFold(a.Group, b.Group); c != 0 {
			return c
		}
		return cmp.Compare(a.Sequence, b.Sequence)
	})
	return out
}

// Compose renders a title from style, replacing {group} and {n}.
func Compose(style string, a Assignment) string {
	return strings.NewReplacer(
		"{group}", a.Group,
		"{n}", strconv.Itoa(a.Sequence),
	).Replace(style)
}

// NeedsWrite reports whether current must be replaced by composed. A title
// that already is composed, or starts with it followed by a separator, is
// left alone to avoid flicker and redundant host calls.
func NeedsWrite(current, composed string) bool {
	if composed == "" {
		return false
	}
	if !strings.HasPrefix(current, composed) {
		return true
	}
	rest := current[len(composed):]
	if rest == "" {
		return false
	}
	return !strings.ContainsRune(Separators, rune(rest[0]))
}
