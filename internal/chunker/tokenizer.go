package chunker

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// encodingName is the BPE scheme used for all token accounting. It matches
// the encoding of the embedding models this pipeline feeds, so chunk budgets
// line up with what the embedder actually sees.
const encodingName = "cl100k_base"

// Tokenizer wraps a tiktoken BPE encoding. It is read-only after
// construction and safe to share across concurrent Chunk calls; build it
// once at startup and inject it into every Engine that needs it.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenizer loads the cl100k_base encoding.
func NewTokenizer() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("load %s encoding: %w", encodingName, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// Count returns the number of tokens in text.
func (t *Tokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Encode converts text to its token sequence.
func (t *Tokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Decode converts a token sequence back to text.
func (t *Tokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}
