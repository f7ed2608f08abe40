// Package chunker implements the boundary-aware recursive chunking engine.
//
// It takes one normalized document and a token budget and emits bounded-size
// chunks that never split a table or fenced code block, prefer heading
// boundaries, carry a token overlap between neighbors, track the heading
// hierarchy as a section path, and classify each chunk's hardware content
// type.
package chunker

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"hwingest/internal/hwdoc"
)

// Config controls chunking behavior. All values are token counts.
type Config struct {
	MaxTokens     int // Hard budget per chunk (atomic blocks may exceed it).
	OverlapTokens int // Tokens duplicated from each chunk into the next.
	MinTokens     int // Chunks below this merge into a neighbor when possible.
}

// DefaultConfig returns the standard budget for hardware documentation.
func DefaultConfig() Config {
	return Config{
		MaxTokens:     512,
		OverlapTokens: 50,
		MinTokens:     50,
	}
}

func (c Config) normalized() Config {
	if c.MaxTokens <= 0 {
		c.MaxTokens = 512
	}
	if c.OverlapTokens < 0 {
		c.OverlapTokens = 0
	}
	if c.MinTokens < 0 {
		c.MinTokens = 0
	}
	return c
}

// ChunkError is the single failure mode of the engine. It always names the
// document that triggered it; callers never see a partial chunk list
// alongside an error.
type ChunkError struct {
	DocID string
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk document %s: %v", e.DocID, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// Engine splits documents into chunks. It holds only the injected
// tokenizer and a logger, both read-only, so one Engine may serve
// concurrent Chunk calls on different documents.
type Engine struct {
	tok *Tokenizer
	log *slog.Logger
}

// NewEngine builds an engine around a shared tokenizer.
func NewEngine(tok *Tokenizer, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{tok: tok, log: log}
}

// Page marker injected by the PDF parser: <!-- PAGE:N -->
var (
	pageMarkerRE      = regexp.MustCompile(`<!-- PAGE:(\d+) -->`)
	pageMarkerStripRE = regexp.MustCompile(`<!-- PAGE:\d+ -->\n?`)
)

// Chunk splits doc into ordered, metadata-tagged chunks. Empty or
// whitespace-only content yields an empty list. The operation is pure and
// deterministic; any unexpected internal failure is logged with the document
// id and returned as a *ChunkError.
func (e *Engine) Chunk(doc hwdoc.Document, cfg Config) (chunks []hwdoc.Chunk, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("chunking failed", "doc_id", doc.DocID, "panic", r)
			chunks = nil
			err = &ChunkError{DocID: doc.DocID, Err: fmt.Errorf("internal failure: %v", r)}
		}
	}()

	cfg = cfg.normalized()

	content := strings.TrimSpace(doc.Content)
	if content == "" {
		return nil, nil
	}

	// Reserve headroom for the overlap prefix so chunks still respect
	// MaxTokens after overlap is prepended.
	splitBudget := cfg.MaxTokens
	if cfg.OverlapTokens > 0 {
		splitBudget = cfg.MaxTokens - cfg.OverlapTokens
		if splitBudget < 1 {
			splitBudget = 1
		}
	}

	// Atomic segments pass through whole, even when oversized; everything
	// else goes through the recursive splitter.
	var raw []string
	atomic := make(map[int]bool)
	for _, seg := range extractSegments(content) {
		text := strings.TrimSpace(seg.text)
		if text == "" {
			continue
		}
		if seg.atomic {
			atomic[len(raw)] = true
			raw = append(raw, text)
			continue
		}
		raw = append(raw, e.splitRecursive(text, splitBudget, 0)...)
	}

	raw = e.addOverlap(raw, cfg.OverlapTokens, atomic)
	raw = e.mergeSmallChunks(raw, cfg.MinTokens, cfg.MaxTokens)

	tracker := &sectionTracker{}
	for i, text := range raw {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		// Page number comes from the first marker; all markers are
		// stripped from the stored content.
		page := 0
		if m := pageMarkerRE.FindStringSubmatch(text); m != nil {
			page, _ = strconv.Atoi(m[1])
		}
		text = strings.TrimSpace(pageMarkerStripRE.ReplaceAllString(text, ""))
		if text == "" {
			continue
		}

		tracker.update(text)

		chunks = append(chunks, hwdoc.Chunk{
			ChunkID:    chunkID(doc.DocID, i, text),
			Content:    text,
			TokenCount: e.tok.Count(text),
			Metadata: hwdoc.ChunkMetadata{
				DocID:       doc.DocID,
				DocType:     doc.DocType,
				Chip:        doc.Chip,
				SectionPath: tracker.path(),
				Page:        page,
				ContentType: classifyContent(text),
			},
		})
	}

	e.log.Info("chunked document",
		"doc_id", doc.DocID,
		"chunks", len(chunks),
		"max_tokens", cfg.MaxTokens,
		"overlap", cfg.OverlapTokens,
	)

	return chunks, nil
}

// chunkID builds a deterministic id: doc id, zero-padded fragment index,
// and the first 8 hex chars of the content hash.
func chunkID(docID string, index int, content string) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%s_chunk_%04d_%x", docID, index, sum[:4])
}
