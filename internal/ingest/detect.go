package ingest

import (
	"path/filepath"
	"regexp"
	"strings"
)

// FileFormat is the structural format of a source file.
type FileFormat string

const (
	FormatPDF        FileFormat = "pdf"
	FormatSVD        FileFormat = "svd"
	FormatMarkdown   FileFormat = "markdown"
	FormatText       FileFormat = "text"
	FormatDeviceTree FileFormat = "device_tree"
	FormatHTML       FileFormat = "html"
	FormatDOCX       FileFormat = "docx"
	FormatUnknown    FileFormat = "unknown"
)

// Semantic document classifications carried into chunk metadata.
const (
	DocTypeDatasheet       = "datasheet"
	DocTypeReferenceManual = "reference_manual"
	DocTypeErrata          = "errata"
	DocTypeAppNote         = "app_note"
	DocTypeSVD             = "svd"
	DocTypeDeviceTree      = "device_tree"
	DocTypeDocumentation   = "documentation"
	DocTypeUnknown         = "unknown"
)

var extensionMap = map[string]FileFormat{
	".pdf":      FormatPDF,
	".svd":      FormatSVD,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".txt":      FormatText,
	".text":     FormatText,
	".dts":      FormatDeviceTree,
	".dtsi":     FormatDeviceTree,
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".docx":     FormatDOCX,
}

// DetectFormat maps a filename extension to its structural format.
func DetectFormat(filename string) FileFormat {
	if f, ok := extensionMap[strings.ToLower(filepath.Ext(filename))]; ok {
		return f
	}
	return FormatUnknown
}

// IsSupported reports whether the file extension has a registered parser.
func IsSupported(filename string) bool {
	return DetectFormat(filename) != FormatUnknown
}

// Filename heuristics for semantic doc type, checked in order. Vendor
// conventions like RM0090 or ES0206 make the short prefixes reliable.
var docTypePatterns = []struct {
	re      *regexp.Regexp
	docType string
}{
	{regexp.MustCompile(`(?i)(datasheet|\bds_|_ds\b|\bds\d{3,})`), DocTypeDatasheet},
	{regexp.MustCompile(`(?i)(reference|ref_manual|\brm_|_rm\b|\brm\d{4})`), DocTypeReferenceManual},
	{regexp.MustCompile(`(?i)(errata|erratum|\bes_|_es\b|\bes\d{4})`), DocTypeErrata},
	{regexp.MustCompile(`(?i)(app_note|appnote|application[_ ]note|\ban_|_an\b|\ban\d{4})`), DocTypeAppNote},
}

// Formats with a deterministic doc type regardless of filename.
var formatDocTypeMap = map[FileFormat]string{
	FormatSVD:        DocTypeSVD,
	FormatDeviceTree: DocTypeDeviceTree,
	FormatMarkdown:   DocTypeDocumentation,
}

// ClassifyDocType derives the semantic document type from the filename and
// structural format. Deterministic formats win; otherwise filename
// heuristics apply.
func ClassifyDocType(filename string, format FileFormat) string {
	if dt, ok := formatDocTypeMap[format]; ok {
		return dt
	}
	name := stem(filename)
	for _, p := range docTypePatterns {
		if p.re.MatchString(name) {
			return p.docType
		}
	}
	return DocTypeUnknown
}
