package colorsync

import (
	"cmp"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Iron-Ham/tabtint/internal/host"
	"github.com/Iron-Ham/tabtint/internal/util"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// maxAncestorLevels bounds the walk from a document toward the file when
// no GUID directory is involved.
const maxAncestorLevels = 4

// isGUIDName reports whether name is a GUID in its canonical 36-character
// form, with or without braces.
func isGUIDName(name string) bool {
	name = strings.TrimSuffix(strings.TrimPrefix(name, "{"), "}")
	if len(name) != 36 {
		return false
	}
	_, err := uuid.Parse(name)
	return err == nil
}

// resolve locates the colorization file. It tries, in order: the cached
// path if it still exists, the documents' ancestor directories, and a scan
// of the temp root for GUID directories created around firstObserved.
func (s *Synchronizer) resolve(docs []host.Document) (string, bool) {
	if s.resolved != "" {
		if s.exists(s.resolved) {
			return s.resolved, true
		}
		s.logger.Debug("cached colorization path vanished", "path", s.resolved)
		s.resolved = ""
	}

	for _, d := range docs {
		if !d.IsAbsPath() {
			continue
		}
		if path, ok := s.fromDocument(d.Path); ok {
			return path, true
		}
	}

	return s.scanTempRoot()
}

// fromDocument walks up from a document path. A GUID-named ancestor under
// the temp root is checked first; then up to maxAncestorLevels ancestors.
// A path that is not absolute on this OS would walk relative to the
// working directory, so it is not walked at all.
func (s *Synchronizer) fromDocument(docPath string) (string, bool) {
	if !filepath.IsAbs(docPath) {
		return "", false
	}
	start := filepath.Dir(filepath.Clean(docPath))

	for dir := start; ; {
		if isGUIDName(filepath.Base(dir)) && s.underTempRoot(dir) {
			candidate := filepath.Join(dir, s.opts.FileName)
			if s.exists(candidate) {
				return candidate, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	dir := start
	for range maxAncestorLevels {
		candidate := filepath.Join(dir, s.opts.FileName)
		if s.exists(candidate) {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}

func (s *Synchronizer) underTempRoot(dir string) bool {
	root := filepath.Clean(s.opts.TempRoot)
	if root == "" || root == "." {
		return false
	}
	rel, err := filepath.Rel(util.FoldKey(root), util.FoldKey(filepath.Clean(dir)))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

type guidDir struct {
	path    string
	created time.Time
}

// scanTempRoot checks the temp root's immediate GUID subdirectories
// created inside the window around the first observed document, oldest
// first.
func (s *Synchronizer) scanTempRoot() (string, bool) {
	if s.opts.TempRoot == "" {
		return "", false
	}
	entries, err := afero.ReadDir(s.fs, s.opts.TempRoot)
	if err != nil {
		s.logger.Debug("cannot scan temp root", "temp_root", s.opts.TempRoot, "error", err.Error())
		return "", false
	}

	anchor := s.firstObserved
	if anchor.IsZero() {
		anchor = s.now()
	}
	from := anchor.Add(-s.opts.WindowBefore)
	to := anchor.Add(s.opts.WindowAfter)

	var candidates []guidDir
	for _, info := range entries {
		if !info.IsDir() || !isGUIDName(info.Name()) {
			continue
		}
		created := creationTime(info)
		if created.Before(from) || created.After(to) {
			continue
		}
		candidates = append(candidates, guidDir{
			path:    filepath.Join(s.opts.TempRoot, info.Name()),
			created: created,
		})
	}

	slices.SortFunc(candidates, func(a, b guidDir) int {
		if c := a.created.Compare(b.created); c != 0 {
			return c
		}
		return cmp.Compare(a.path, b.path)
	})

	for _, c := range candidates {
		candidate := filepath.Join(c.path, s.opts.FileName)
		if s.exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (s *Synchronizer) exists(path string) bool {
	info, err := s.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// creationTime returns when the directory was created, as well as the
// platform reports it.
func creationTime(info os.FileInfo) time.Time {
	if t, ok := platformCreationTime(info); ok {
		return t
	}
	return info.ModTime()
}
