// Package ingest converts source files (PDF, markdown, HTML, DOCX, device
// tree, CMSIS-SVD, plain text) into normalized hwdoc.Documents ready for
// the chunking engine: markdown headings, fenced blocks, pipe tables and
// optional page markers.
package ingest

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"hwingest/internal/hwdoc"
)

// MaxFileSize caps how much a parser will read from a single document.
const MaxFileSize = 50 * 1024 * 1024

// ParseError is raised when a document cannot be converted.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErr(file string, format string, args ...any) *ParseError {
	return &ParseError{File: file, Err: fmt.Errorf(format, args...)}
}

// Parser converts a raw document stream into a normalized Document.
type Parser interface {
	Parse(r io.Reader, filename string) (*hwdoc.Document, error)
}

// ForFile returns the parser for a filename based on its detected format.
func ForFile(filename string) (Parser, error) {
	switch DetectFormat(filename) {
	case FormatMarkdown:
		return &MarkdownParser{}, nil
	case FormatText:
		return &TextParser{}, nil
	case FormatPDF:
		return &PDFParser{}, nil
	case FormatHTML:
		return &HTMLParser{}, nil
	case FormatDOCX:
		return &DOCXParser{}, nil
	case FormatDeviceTree:
		return &DeviceTreeParser{}, nil
	case FormatSVD:
		return &SVDParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(filename))
	}
}

// Parse detects the format of filename, runs the matching parser, and
// fills in the semantic doc type when the parser left it open.
func Parse(r io.Reader, filename string) (*hwdoc.Document, error) {
	p, err := ForFile(filename)
	if err != nil {
		return nil, &ParseError{File: filename, Err: err}
	}
	doc, err := p.Parse(r, filename)
	if err != nil {
		return nil, err
	}
	if doc.DocType == "" {
		doc.DocType = ClassifyDocType(filename, DetectFormat(filename))
	}
	return doc, nil
}

var docIDCleanRE = regexp.MustCompile(`[^a-z0-9_]+`)

// docIDFromFilename derives a stable document id from a filename stem:
// lowercased, non-alphanumerics collapsed to underscores.
func docIDFromFilename(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	id := docIDCleanRE.ReplaceAllString(strings.ToLower(stem), "_")
	id = strings.Trim(id, "_")
	if id == "" {
		id = "document"
	}
	return id
}

// stem returns the filename without its extension.
func stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// readAllLimited reads at most MaxFileSize bytes and errors when the
// source exceeds the cap.
func readAllLimited(r io.Reader, filename string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, parseErr(filename, "read: %w", err)
	}
	if len(data) > MaxFileSize {
		return nil, parseErr(filename, "file exceeds maximum size (%d bytes)", MaxFileSize)
	}
	return data, nil
}

// decodeText strips a UTF-8 BOM and normalizes line endings.
func decodeText(data []byte) string {
	s := string(data)
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}

var multiBlankRE = regexp.MustCompile(`\n{3,}`)

// collapseBlankLines squeezes runs of 3+ blank lines down to one blank line.
func collapseBlankLines(s string) string {
	return multiBlankRE.ReplaceAllString(s, "\n\n")
}
