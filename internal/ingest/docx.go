package ingest

import (
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"

	"hwingest/internal/hwdoc"
)

// DOCXParser converts .docx application notes into markdown. Paragraphs
// with Heading1..Heading6 styles become # headings; everything else is
// prose.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*hwdoc.Document, error) {
	// go-docx needs a ReadSeeker plus size, so spool to a temp file.
	tmp, err := os.CreateTemp("", "hwingest-docx-*.docx")
	if err != nil {
		return nil, parseErr(filename, "create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, io.LimitReader(r, MaxFileSize))
	if err != nil {
		tmp.Close()
		return nil, parseErr(filename, "write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, parseErr(filename, "seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, parseErr(filename, "parse docx: %w", err)
	}

	title := stem(filename)
	sawTitle := false

	var blocks []string
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}
		if level := docxHeadingLevel(para); level > 0 {
			if !sawTitle {
				title = text
				sawTitle = true
			}
			blocks = append(blocks, strings.Repeat("#", level)+" "+text)
		} else {
			blocks = append(blocks, text)
		}
	}

	return &hwdoc.Document{
		DocID:   docIDFromFilename(filename),
		Content: strings.Join(blocks, "\n\n"),
		Title:   title,
	}, nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") {
		return 0
	}
	rest := strings.TrimPrefix(style, "heading")
	if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
		return int(rest[0] - '0')
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var b strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				b.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(b.String())
}
