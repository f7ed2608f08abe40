package ingest

import (
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"hwingest/internal/hwdoc"
)

// MarkdownParser handles markdown files. The content is already in the
// engine's dialect, so parsing is a passthrough with whitespace
// normalization; goldmark supplies the title from the first heading.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*hwdoc.Document, error) {
	data, err := readAllLimited(r, filename)
	if err != nil {
		return nil, err
	}

	content := collapseBlankLines(decodeText(data))
	content = strings.TrimSpace(content)

	title := firstHeading([]byte(content))
	if title == "" {
		title = stem(filename)
	}

	return &hwdoc.Document{
		DocID:   docIDFromFilename(filename),
		Content: content,
		DocType: DocTypeDocumentation,
		Title:   title,
	}, nil
}

// firstHeading walks the goldmark AST and returns the text of the first
// heading, preferring an H1 over deeper levels.
func firstHeading(src []byte) string {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	best := ""
	bestLevel := 7
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok {
			continue
		}
		if h.Level < bestLevel {
			bestLevel = h.Level
			best = string(headingText(h, src))
			if h.Level == 1 {
				break
			}
		}
	}
	return strings.TrimSpace(best)
}

func headingText(n ast.Node, src []byte) []byte {
	var buf []byte
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf = append(buf, t.Value(src)...)
		} else {
			buf = append(buf, headingText(c, src)...)
		}
	}
	return buf
}
