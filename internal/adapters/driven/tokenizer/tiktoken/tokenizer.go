// Package tiktoken provides a Tokenizer backed by OpenAI's BPE encodings.
// Encoding files are loaded from the embedded offline loader, so no network
// access is needed at runtime.
package tiktoken

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/custodia-labs/nutrirag/internal/core/ports/driven"
)

// DefaultEncoding is the encoding used by the text-embedding-3 models.
const DefaultEncoding = "cl100k_base"

// Ensure Tokenizer implements the interface.
var _ driven.Tokenizer = (*Tokenizer)(nil)

var loaderOnce sync.Once

func useOfflineLoader() {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
}

// Tokenizer encodes text with a tiktoken BPE encoding.
type Tokenizer struct {
	name     string
	encoding *tiktoken.Tiktoken
}

// New creates a tokenizer for the named encoding.
// An empty name selects DefaultEncoding.
func New(encoding string) (*Tokenizer, error) {
	useOfflineLoader()
	if encoding == "" {
		encoding = DefaultEncoding
	}

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &Tokenizer{name: encoding, encoding: enc}, nil
}

// ForModel creates a tokenizer for the encoding used by an OpenAI model.
// Unknown models fall back to DefaultEncoding.
func ForModel(model string) (*Tokenizer, error) {
	useOfflineLoader()
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return New(DefaultEncoding)
	}
	return &Tokenizer{name: model, encoding: enc}, nil
}

// Name returns the encoding or model name.
func (t *Tokenizer) Name() string {
	return t.name
}

// Encode splits text into token IDs. Special tokens are treated as text.
func (t *Tokenizer) Encode(text string) []int {
	return t.encoding.Encode(text, nil, nil)
}

// Decode rebuilds text from token IDs.
func (t *Tokenizer) Decode(tokens []int) string {
	return t.encoding.Decode(tokens)
}
