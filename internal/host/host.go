// Package host defines the boundary between tabtint and the editor that
// owns the documents: what a document looks like, what tabtint may ask of
// the editor, and the UI collaborators it calls out to.
package host

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Iron-Ham/tabtint/internal/util"
	"github.com/gobwas/glob"
)

// Document is a point-in-time view of one open editor surface. Server and
// Database are empty while the host has not populated the connection yet.
type Document struct {
	ID       string `yaml:"id" json:"id"`
	Title    string `yaml:"title" json:"title"`
	Path     string `yaml:"path,omitempty" json:"path,omitempty"`
	Server   string `yaml:"server,omitempty" json:"server,omitempty"`
	Database string `yaml:"database,omitempty" json:"database,omitempty"`
}

// HasConnection reports whether connection info is available.
func (d Document) HasConnection() bool {
	return d.Server != "" || d.Database != ""
}

// FileName returns the bare file name of the document path.
func (d Document) FileName() string {
	return util.BaseName(d.Path)
}

// IsAbsPath reports whether the document path is absolute on either
// Windows or POSIX hosts.
func (d Document) IsAbsPath() bool {
	return IsAbs(d.Path)
}

// Host is what tabtint needs from the editor.
type Host interface {
	// OpenDocuments enumerates every currently open document.
	OpenDocuments(ctx context.Context) ([]Document, error)
	// Document returns a fresh view of one document. It returns an error
	// matching errors.ErrDocumentNotFound once the document is gone.
	Document(ctx context.Context, id string) (Document, error)
	// SetTitle changes the document's display title.
	SetTitle(ctx context.Context, id, title string) error
}

// Proposal describes a connection no rule matched.
type Proposal struct {
	Server   string
	Database string
	Document Document
}

// Proposer handles unmatched connections when auto-configure is enabled.
// It is invoked off the orchestrator's loop and may block on the user.
type Proposer interface {
	Propose(ctx context.Context, p Proposal) error
}

// Prompter asks the user to confirm or edit a proposed group.
type Prompter interface {
	// Confirm returns the group name to use, or ok=false if declined.
	Confirm(ctx context.Context, p Proposal, suggested string) (group string, ok bool, err error)
}

// IsAbs reports whether path is absolute in either Windows (drive or UNC)
// or POSIX form, independent of the OS tabtint runs on.
func IsAbs(path string) bool {
	if path == "" {
		return false
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") || strings.HasPrefix(path, `\\`) {
		return true
	}
	return len(path) >= 3 && path[1] == ':' && (path[2] == '\\' || path[2] == '/') &&
		(('a' <= path[0] && path[0] <= 'z') || ('A' <= path[0] && path[0] <= 'Z'))
}

// Classifier recognizes query documents and untouched default titles.
type Classifier struct {
	globs        []glob.Glob
	defaultTitle *regexp.Regexp
}

// NewClassifier compiles the query file globs (matched case-insensitively
// against the bare file name) and the default-title pattern.
func NewClassifier(queryGlobs []string, defaultTitlePattern string) (*Classifier, error) {
	c := &Classifier{}
	for _, g := range queryGlobs {
		compiled, err := glob.Compile(strings.ToLower(g))
		if err != nil {
			return nil, err
		}
		c.globs = append(c.globs, compiled)
	}
	if defaultTitlePattern != "" {
		re, err := regexp.Compile("(?i)" + defaultTitlePattern)
		if err != nil {
			return nil, err
		}
		c.defaultTitle = re
	}
	return c, nil
}

// IsQueryDocument reports whether d is a query document. A document with
// no path is given the benefit of the doubt, since hosts often report the
// path late.
func (c *Classifier) IsQueryDocument(d Document) bool {
	if d.Path == "" || len(c.globs) == 0 {
		return true
	}
	name := strings.ToLower(d.FileName())
	for _, g := range c.globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// LooksUnnamed reports whether the document still carries a host-assigned
// default title, judged by its title or, failing that, its file name.
func (c *Classifier) LooksUnnamed(d Document) bool {
	if c.defaultTitle == nil {
		return false
	}
	return c.defaultTitle.MatchString(d.Title) || c.defaultTitle.MatchString(d.FileName())
}
