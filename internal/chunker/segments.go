package chunker

import (
	"regexp"
	"strings"
)

// segment is an intermediate slice of document text. Atomic segments
// (fenced code blocks, well-formed pipe tables) must never be split.
type segment struct {
	text   string
	atomic bool
}

// tableRowRE matches a single line that looks like a pipe-table row.
var tableRowRE = regexp.MustCompile(`^\|.+\|$`)

// tableSepRE matches a table separator row like | --- | :---: |.
var tableSepRE = regexp.MustCompile(`(?m)^\|[\s:]*-+[\s:]*\|`)

// extractSegments splits text into ordered segments, marking fenced code
// blocks and real tables as atomic. A run of pipe-prefixed lines only counts
// as a table when it contains a separator row; otherwise the lines fold back
// into ordinary text so pipe-delimited prose is not misclassified.
//
// No text is dropped or duplicated; output preserves document order.
func extractSegments(text string) []segment {
	var segments []segment
	lines := strings.Split(text, "\n")
	var pending []string

	flush := func() {
		if len(pending) > 0 {
			segments = append(segments, segment{text: strings.Join(pending, "\n")})
			pending = nil
		}
	}

	i := 0
	for i < len(lines) {
		line := lines[i]

		if ch, n := fenceOpen(line); n > 0 {
			flush()
			fenced := []string{line}
			i++
			for i < len(lines) {
				fenced = append(fenced, lines[i])
				closed := fenceClose(lines[i], ch, n)
				i++
				if closed {
					break
				}
			}
			segments = append(segments, segment{text: strings.Join(fenced, "\n"), atomic: true})
			continue
		}

		if tableRowRE.MatchString(line) {
			flush()
			table := []string{line}
			i++
			for i < len(lines) && tableRowRE.MatchString(lines[i]) {
				table = append(table, lines[i])
				i++
			}
			tableText := strings.Join(table, "\n")
			if tableSepRE.MatchString(tableText) {
				segments = append(segments, segment{text: tableText, atomic: true})
			} else {
				// Pipe-delimited prose, not a table.
				pending = append(pending, table...)
			}
			continue
		}

		pending = append(pending, line)
		i++
	}

	flush()
	return segments
}

// fenceOpen reports whether line opens a fenced code block: a leading run
// of 3+ backticks or tildes, optionally followed by a language tag.
// Returns the fence character and run length, or 0 when not a fence.
func fenceOpen(line string) (byte, int) {
	if len(line) < 3 {
		return 0, 0
	}
	ch := line[0]
	if ch != '`' && ch != '~' {
		return 0, 0
	}
	n := 0
	for n < len(line) && line[n] == ch {
		n++
	}
	if n < 3 {
		return 0, 0
	}
	return ch, n
}

// fenceClose reports whether line closes a fence opened with n repetitions
// of ch: the whole line must consist of ch repeated at least n times.
func fenceClose(line string, ch byte, n int) bool {
	if len(line) < n {
		return false
	}
	for i := 0; i < len(line); i++ {
		if line[i] != ch {
			return false
		}
	}
	return true
}
