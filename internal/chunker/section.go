package chunker

import (
	"regexp"
	"strings"
)

// headingRE matches a markdown heading line: 1-6 # characters, a space,
// then the title.
var headingRE = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

// sectionTracker maintains the heading hierarchy across chunks so each
// chunk records the deepest heading context active by the end of its own
// text. The stack is strictly increasing in level from bottom to top.
//
// One tracker belongs to exactly one Chunk call; it is never shared across
// documents or goroutines.
type sectionTracker struct {
	stack []headingEntry
}

type headingEntry struct {
	level int
	title string
}

// update scans text for heading lines in order of appearance. Each heading
// pops all entries at the same or deeper level, then pushes itself.
func (s *sectionTracker) update(text string) {
	for _, m := range headingRE.FindAllStringSubmatch(text, -1) {
		level := len(m[1])
		title := strings.TrimSpace(m[2])

		for len(s.stack) > 0 && s.stack[len(s.stack)-1].level >= level {
			s.stack = s.stack[:len(s.stack)-1]
		}
		s.stack = append(s.stack, headingEntry{level: level, title: title})
	}
}

// path returns the active heading titles joined outermost to innermost,
// e.g. "SPI > Configuration > DMA".
func (s *sectionTracker) path() string {
	titles := make([]string, len(s.stack))
	for i, h := range s.stack {
		titles[i] = h.title
	}
	return strings.Join(titles, " > ")
}
