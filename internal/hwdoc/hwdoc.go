// Package hwdoc defines the data contracts flowing between pipeline stages:
// raw file -> Document -> []Chunk. Values are built once and never mutated
// afterwards, so they can be shared freely with downstream consumers.
package hwdoc

// Document is a source document normalized to the markup dialect the
// chunking engine understands: markdown headings, fenced code blocks,
// pipe tables and optional <!-- PAGE:N --> markers.
type Document struct {
	DocID   string // Stable identifier, unique per ingested document.
	Content string // Normalized markup content.
	DocType string // Semantic classification: datasheet, reference_manual, errata, ...
	Chip    string // Chip or MCU family this document describes, if known.
	Title   string // Human-readable title.

	// Metadata carries parser-specific extras (compatible strings,
	// register counts, CPU name) that do not influence chunking.
	Metadata map[string]string
}

// ChunkMetadata is attached to every chunk emitted by the engine.
type ChunkMetadata struct {
	DocID       string `json:"doc_id"`
	DocType     string `json:"doc_type"`
	Chip        string `json:"chip"`
	SectionPath string `json:"section_path"`
	Page        int    `json:"page"`
	ContentType string `json:"content_type"`
}

// Chunk is a bounded-size fragment of a document plus retrieval metadata,
// ready for embedding and storage downstream. ChunkID doubles as the
// storage primary key.
type Chunk struct {
	ChunkID    string        `json:"chunk_id"`
	Content    string        `json:"content"`
	TokenCount int           `json:"token_count"`
	Metadata   ChunkMetadata `json:"metadata"`
}
