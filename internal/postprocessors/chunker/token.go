package chunker

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/nutrirag/internal/core/ports/driven"
)

// Ensure Token implements the interface.
var _ driven.Chunker = (*Token)(nil)

// ErrNoTokenizer is returned when the token policy has no tokenizer.
var ErrNoTokenizer = errors.New("token chunker requires a tokenizer")

// Token splits text by model token count using an encode/decode round trip.
type Token struct {
	config
	tokenizer driven.Tokenizer
}

// NewToken creates a token-count chunker.
func NewToken(tokenizer driven.Tokenizer, opts ...Option) (*Token, error) {
	if tokenizer == nil {
		return nil, ErrNoTokenizer
	}
	return &Token{config: newConfig(opts), tokenizer: tokenizer}, nil
}

// Name returns the policy name.
func (t *Token) Name() string {
	return "token"
}

// Chunk splits text into overlapping token windows. Windows whose decoded,
// trimmed text is shorter than the minimum are dropped.
func (t *Token) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	tokens := t.tokenizer.Encode(text)
	n := len(tokens)

	var chunks []string
	start := 0
	for start < n {
		end := start + t.chunkSize
		if end > n {
			end = n
		}

		chunk := strings.TrimSpace(t.tokenizer.Decode(tokens[start:end]))
		if chunk != "" && utf8.RuneCountInString(chunk) >= t.minChunkChars {
			chunks = append(chunks, chunk)
		}

		if end >= n {
			break
		}
		start = end - t.overlap
	}
	return chunks
}
