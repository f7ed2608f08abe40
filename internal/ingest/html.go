package ingest

import (
	"io"
	"strings"

	"golang.org/x/net/html"

	"hwingest/internal/hwdoc"
)

// HTMLParser converts HTML reference pages into markdown: h1-h6 become #
// headings, tables become pipe tables, paragraphs and list items become
// prose blocks. Script, style and chrome elements are dropped.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*hwdoc.Document, error) {
	root, err := html.Parse(io.LimitReader(r, MaxFileSize))
	if err != nil {
		return nil, parseErr(filename, "parse html: %w", err)
	}

	title := stem(filename)
	if t := findTitle(root); t != "" {
		title = t
	}

	var blocks []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				if t := textContent(n); t != "" {
					blocks = append(blocks, strings.Repeat("#", level)+" "+t)
				}
				return
			}
			switch n.Data {
			case "script", "style", "nav", "footer", "header", "aside":
				return
			case "table":
				if md := renderTable(n); md != "" {
					blocks = append(blocks, md)
				}
				return
			case "pre":
				if t := rawTextContent(n); strings.TrimSpace(t) != "" {
					blocks = append(blocks, "```\n"+strings.Trim(t, "\n")+"\n```")
				}
				return
			case "p", "li", "blockquote", "dd", "dt":
				if t := textContent(n); t != "" {
					blocks = append(blocks, t)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(root); body != nil {
		walk(body)
	} else {
		walk(root)
	}

	return &hwdoc.Document{
		DocID:   docIDFromFilename(filename),
		Content: strings.Join(blocks, "\n\n"),
		Title:   title,
	}, nil
}

// renderTable converts a <table> into a markdown pipe table. The first row
// is treated as the header and followed by a separator row.
func renderTable(table *html.Node) string {
	var rows [][]string
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					cell := strings.ReplaceAll(textContent(c), "|", "\\|")
					cells = append(cells, cell)
				}
			}
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(table)

	if len(rows) == 0 {
		return ""
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("| ")
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString(" |\n")
	}
	writeRow(rows[0])
	sep := make([]string, len(rows[0]))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(sep)
	for _, row := range rows[1:] {
		writeRow(row)
	}
	return strings.TrimRight(b.String(), "\n")
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// textContent flattens an element's text nodes into one whitespace-
// normalized string.
func textContent(n *html.Node) string {
	return strings.Join(strings.Fields(rawTextContent(n)), " ")
}

func rawTextContent(n *html.Node) string {
	var b strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return b.String()
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
