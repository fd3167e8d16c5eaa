// Package util provides shared string and path helpers used across tabtint.
package util

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"golang.org/x/text/cases"
)

// TruncateANSI truncates a string to maxWidth visual columns, adding "..." if
// truncated. ANSI escape codes and wide characters are accounted for, so it is
// safe on styled CLI output.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return "..."
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, "...")
}

// FoldKey returns the case-folded form of s, used wherever tabtint compares
// names "ordinal, ignoring case": group names, server names, file names.
// A Caser is stateful, so one is built per call.
func FoldKey(s string) string {
	return cases.Fold().String(s)
}

// CompareFold orders a and b by their folded forms, falling back to the
// unfolded strings so the order is total.
func CompareFold(a, b string) int {
	if c := strings.Compare(FoldKey(a), FoldKey(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// EqualFold reports whether a and b are equal after case folding.
func EqualFold(a, b string) bool {
	return FoldKey(a) == FoldKey(b)
}

// BaseName returns the last element of a path using either '/' or '\' as the
// separator. Document paths come from a Windows host but are also handled on
// other platforms, so filepath.Base is not enough.
func BaseName(path string) string {
	path = strings.TrimRight(path, `/\`)
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
