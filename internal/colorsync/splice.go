package colorsync

import "strings"

// Block wraps lines in the begin and end markers, joined with nl.
func Block(begin, end string, lines []string, nl string) string {
	var b strings.Builder
	b.WriteString(begin)
	b.WriteString(nl)
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString(nl)
	}
	b.WriteString(end)
	return b.String()
}

// Splice puts the generated block into existing content. An existing
// marker pair is replaced in place, leaving everything around it verbatim.
// Otherwise the block is appended, separated by one blank line from
// non-empty content. The block uses the file's newline style.
func Splice(existing, begin, end string, lines []string) string {
	nl := newlineOf(existing)
	block := Block(begin, end, lines, nl)

	if start, stop, ok := findMarkers(existing, begin, end); ok {
		return existing[:start] + block + existing[stop:]
	}

	if existing == "" {
		return block + nl
	}

	normalized := Normalize(existing)
	switch {
	case normalized == "\n" || strings.HasSuffix(normalized, "\n\n"):
		return existing + block + nl
	case strings.HasSuffix(normalized, "\n"):
		return existing + nl + block + nl
	default:
		return existing + nl + nl + block + nl
	}
}

// findMarkers returns the byte range from the start of the begin marker line
// to the end of the end marker text (its line break excluded).
func findMarkers(content, begin, end string) (int, int, bool) {
	start := -1
	offset := 0
	for offset <= len(content) {
		lineEnd := strings.IndexByte(content[offset:], '\n')
		var line string
		if lineEnd < 0 {
			line = content[offset:]
		} else {
			line = content[offset : offset+lineEnd]
		}
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == begin:
			// The last begin before an end wins, so a stray begin line
			// left by a manual edit is kept as user content.
			start = offset
		case start >= 0 && trimmed == end:
			stop := offset + len(strings.TrimRight(line, "\r"))
			return start, stop, true
		}

		if lineEnd < 0 {
			break
		}
		offset += lineEnd + 1
	}
	return 0, 0, false
}

func newlineOf(s string) string {
	if strings.Contains(s, "\r\n") {
		return "\r\n"
	}
	return "\n"
}

// Normalize collapses CRLF and CR line breaks to LF.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
