package chunker

import (
	"strings"

	"github.com/custodia-labs/nutrirag/internal/core/ports/driven"
)

// Ensure Character implements the interface.
var _ driven.Chunker = (*Character)(nil)

// Character splits text by character count, snapping chunk ends back to a
// sentence terminator when one is close to the nominal boundary.
// Every non-empty chunk is kept; the minimum length option does not apply.
type Character struct {
	config
}

// NewCharacter creates a character-count chunker.
func NewCharacter(opts ...Option) *Character {
	return &Character{config: newConfig(opts)}
}

// Name returns the policy name.
func (c *Character) Name() string {
	return "character"
}

// Chunk splits text into overlapping character windows.
func (c *Character) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	n := len(runes)
	if n <= c.chunkSize {
		return c.keep(nil, string(runes))
	}

	var chunks []string
	start := 0
	for start < n {
		end := start + c.chunkSize
		if end >= n {
			end = n
		} else {
			end = c.snap(runes, start, end)
		}

		chunks = c.keep(chunks, string(runes[start:end]))
		if end >= n {
			break
		}

		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// snap moves end back to just after the closest sentence terminator within
// the look-back window. The window never reaches before the middle of the chunk.
func (c *Character) snap(runes []rune, start, end int) int {
	lower := end - c.snapWindow
	if half := start + c.chunkSize/2; half > lower {
		lower = half
	}
	for i := end; i > lower; i-- {
		switch runes[i] {
		case '.', '!', '?':
			return i + 1
		}
	}
	return end
}

func (c *Character) keep(chunks []string, chunk string) []string {
	chunk = strings.TrimSpace(chunk)
	if chunk == "" {
		return chunks
	}
	return append(chunks, chunk)
}
