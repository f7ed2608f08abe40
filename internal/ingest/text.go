package ingest

import (
	"io"
	"strings"

	"hwingest/internal/hwdoc"
)

// TextParser handles plain text files: whitespace and encoding
// normalization, title from the first non-empty line.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*hwdoc.Document, error) {
	data, err := readAllLimited(r, filename)
	if err != nil {
		return nil, err
	}

	content := collapseBlankLines(decodeText(data))
	content = strings.TrimSpace(content)

	title := stem(filename)
	for _, line := range strings.Split(content, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			title = t
			break
		}
	}

	return &hwdoc.Document{
		DocID:   docIDFromFilename(filename),
		Content: content,
		Title:   title,
	}, nil
}
