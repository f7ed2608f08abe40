package ingest

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"hwingest/internal/hwdoc"
)

// PDFParser extracts page text from PDF datasheets and manuals. Each page
// is prefixed with a <!-- PAGE:N --> marker so the chunking engine can
// record source pages; the engine strips the markers from stored content.
// When the Go library cannot read a file, pdftotext is tried if enabled.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*hwdoc.Document, error) {
	// ledongthuc/pdf needs a ReadSeeker plus size, so spool to a temp file.
	tmp, err := os.CreateTemp("", "hwingest-pdf-*.pdf")
	if err != nil {
		return nil, parseErr(filename, "create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, io.LimitReader(r, MaxFileSize)); err != nil {
		tmp.Close()
		return nil, parseErr(filename, "write temp file: %w", err)
	}
	tmp.Close()

	pages, err := extractPDFPages(tmpPath)
	if err != nil && p.FallbackPdftotext {
		pages, err = extractPdftotextPages(tmpPath)
	}
	if err != nil {
		return nil, parseErr(filename, "extract pdf text: %w", err)
	}

	var b strings.Builder
	for i, page := range pages {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		fmt.Fprintf(&b, "<!-- PAGE:%d -->\n", i+1)
		b.WriteString(page)
		b.WriteString("\n\n")
	}

	return &hwdoc.Document{
		DocID:   docIDFromFilename(filename),
		Content: strings.TrimSpace(b.String()),
		Title:   stem(filename),
	}, nil
}

func extractPDFPages(path string) ([]string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []string
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func extractPdftotextPages(path string) ([]string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	// pdftotext separates pages with form feeds.
	return strings.Split(string(out), "\f"), nil
}
