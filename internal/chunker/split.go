package chunker

import "strings"

// splitRule is one tier of the separator priority list. split breaks text
// into parts; rejoin is the delimiter used when greedily re-merging parts
// that fit the budget together. Heading tiers keep the heading attached to
// the content that follows it, so they rejoin on a plain newline.
type splitRule struct {
	split  func(string) []string
	rejoin string
}

// separators in priority order: H1, H2, H3+ heading boundaries, paragraph
// breaks, single newlines, spaces. splitRecursive walks this list by index.
var separators = []splitRule{
	{split: headingSplitter(1), rejoin: "\n"},
	{split: headingSplitter(2), rejoin: "\n"},
	{split: headingSplitter(3), rejoin: "\n"},
	{split: stringSplitter("\n\n"), rejoin: "\n\n"},
	{split: stringSplitter("\n"), rejoin: "\n"},
	{split: stringSplitter(" "), rejoin: " "},
}

// splitRecursive splits text to fit within maxTokens, trying separator
// tiers from sepIdx onward and hard-splitting by tokens when the list is
// exhausted. Recursion depth is bounded by the separator list plus fan-out
// into oversized parts.
func (e *Engine) splitRecursive(text string, maxTokens, sepIdx int) []string {
	if e.tok.Count(text) <= maxTokens {
		return []string{text}
	}

	if sepIdx >= len(separators) {
		return e.hardSplit(text, maxTokens)
	}

	rule := separators[sepIdx]
	parts := rule.split(text)

	nonEmpty := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	parts = nonEmpty

	if len(parts) <= 1 {
		// This separator did not help; try the next tier on the same text.
		return e.splitRecursive(text, maxTokens, sepIdx+1)
	}

	// Greedily merge consecutive parts back together while they fit,
	// recursing into any single part that is itself over budget.
	var result []string
	current := ""
	for _, part := range parts {
		candidate := part
		if current != "" {
			candidate = current + rule.rejoin + part
		}
		if e.tok.Count(candidate) <= maxTokens {
			current = candidate
			continue
		}
		if current != "" {
			result = append(result, current)
		}
		if e.tok.Count(part) > maxTokens {
			result = append(result, e.splitRecursive(part, maxTokens, sepIdx+1)...)
			current = ""
		} else {
			current = part
		}
	}
	if current != "" {
		result = append(result, current)
	}

	return result
}

// hardSplit cuts text into consecutive windows of exactly maxTokens tokens
// (the last window may be shorter). This is the only strategy guaranteed to
// terminate and to produce pieces within budget.
func (e *Engine) hardSplit(text string, maxTokens int) []string {
	tokens := e.tok.Encode(text)
	var result []string
	for start := 0; start < len(tokens); start += maxTokens {
		end := start + maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		result = append(result, e.tok.Decode(tokens[start:end]))
	}
	return result
}

// stringSplitter returns a split function for a literal separator.
func stringSplitter(sep string) func(string) []string {
	return func(text string) []string {
		return strings.Split(text, sep)
	}
}

// headingSplitter returns a split function that breaks text immediately
// before lines opening a heading of the given level. Level 3 groups all
// deeper headings into one tier. The heading line stays attached to the
// content that follows it.
func headingSplitter(level int) func(string) []string {
	return func(text string) []string {
		lines := strings.Split(text, "\n")
		var parts []string
		var current []string
		for _, line := range lines {
			if isHeadingLevel(line, level) && len(current) > 0 {
				parts = append(parts, strings.Join(current, "\n"))
				current = nil
			}
			current = append(current, line)
		}
		if len(current) > 0 {
			parts = append(parts, strings.Join(current, "\n"))
		}
		return parts
	}
}

// isHeadingLevel reports whether line opens a heading at exactly the given
// level, except level 3 which matches level 3 and deeper.
func isHeadingLevel(line string, level int) bool {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n == 0 || n >= len(line) || line[n] != ' ' {
		return false
	}
	if level >= 3 {
		return n >= 3
	}
	return n == level
}
