package colorsync

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	"github.com/Iron-Ham/tabtint/internal/colorsolver"
	"github.com/Iron-Ham/tabtint/internal/host"
	"github.com/Iron-Ham/tabtint/internal/rules"
	"github.com/Iron-Ham/tabtint/internal/util"
)

// NeverMatch is written for a group with no open documents. It keeps the
// group's priority slot without coloring anything.
const NeverMatch = "(?!)"

// pathAnchor makes a generated alternation match only a whole file name at
// the end of a path.
const pathAnchor = `(?:^|[\\/])`

// Line is one regex line of the generated block.
type Line struct {
	Text     string
	Group    string
	Priority int
	Manual   bool
	// ColorIndex is the requested bucket, or -1 when the line is unsalted.
	ColorIndex int
	// Files are the file names a generated line covers.
	Files []string
}

// Render builds the lines of the generated block: manual rules verbatim and
// one line per group rule, ordered by priority. Only documents with an
// absolute path take part, and only their file names are used so lines
// survive the file moving.
func Render(docs []host.Document, compiled []rules.CompiledRule, manual []rules.ManualRule, queryExt string) []Line {
	var lines []Line

	for _, m := range manual {
		line := Line{Text: m.Pattern, Group: m.GroupName, Priority: m.Priority, Manual: true, ColorIndex: -1}
		if m.ColorIndex != nil {
			line.ColorIndex = *m.ColorIndex
			line.Text = colorsolver.Salted(m.Pattern, *m.ColorIndex)
		}
		lines = append(lines, line)
	}

	files := groupFiles(docs, compiled)

	seen := make(map[string]int)
	var generated []Line
	for _, r := range compiled {
		key := util.FoldKey(r.GroupName)
		if idx, ok := seen[key]; ok {
			if generated[idx].ColorIndex < 0 && r.ColorIndex != nil {
				generated[idx].ColorIndex = *r.ColorIndex
			}
			continue
		}
		seen[key] = len(generated)
		line := Line{Group: r.GroupName, Priority: r.Priority, ColorIndex: -1, Files: files[key]}
		if r.ColorIndex != nil {
			line.ColorIndex = *r.ColorIndex
		}
		generated = append(generated, line)
	}
	for i := range generated {
		l := &generated[i]
		l.Text = buildPattern(l.Files, queryExt)
		if l.ColorIndex >= 0 && l.Text != NeverMatch {
			l.Text = colorsolver.Salted(l.Text, l.ColorIndex)
		}
	}

	lines = append(lines, generated...)
	slices.SortStableFunc(lines, func(a, b Line) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
	return lines
}

// groupFiles maps each group (folded) to the sorted, case-insensitively
// distinct file names of the documents it matches.
func groupFiles(docs []host.Document, compiled []rules.CompiledRule) map[string][]string {
	sets := make(map[string]map[string]string)
	for _, r := range compiled {
		sets[util.FoldKey(r.GroupName)] = make(map[string]string)
	}

	for _, d := range docs {
		if !d.IsAbsPath() || !d.HasConnection() {
			continue
		}
		group, ok := rules.MatchGroup(compiled, d.Server, d.Database)
		if !ok {
			continue
		}
		name := d.FileName()
		if name == "" {
			continue
		}
		set := sets[util.FoldKey(group)]
		if _, dup := set[util.FoldKey(name)]; !dup {
			set[util.FoldKey(name)] = name
		}
	}

	out := make(map[string][]string, len(sets))
	for key, set := range sets {
		names := make([]string, 0, len(set))
		for _, n := range set {
			names = append(names, n)
		}
		slices.SortFunc(names, func(a, b string) int {
			if c := util.CompareFold(a, b); c != 0 {
				return c
			}
			return strings.Compare(a, b)
		})
		out[key] = names
	}
	return out
}

// buildPattern returns an anchored alternation over the escaped names.
// When every name ends in ext, ext is factored out and appended once.
func buildPattern(names []string, ext string) string {
	if len(names) == 0 {
		return NeverMatch
	}

	strip := ext != ""
	for _, n := range names {
		if !strings.HasSuffix(n, ext) || len(n) == len(ext) {
			strip = false
			break
		}
	}

	parts := make([]string, len(names))
	for i, n := range names {
		if strip {
			n = strings.TrimSuffix(n, ext)
		}
		parts[i] = regexp.QuoteMeta(n)
	}

	var b strings.Builder
	b.WriteString(pathAnchor)
	b.WriteString("(?:")
	b.WriteString(strings.Join(parts, "|"))
	b.WriteString(")")
	if strip {
		b.WriteString(regexp.QuoteMeta(ext))
	}
	b.WriteString("$")
	return b.String()
}

// Texts returns the text of each line.
func Texts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}
