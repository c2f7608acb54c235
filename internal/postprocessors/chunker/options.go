package chunker

// DefaultChunkSize is the default chunk length in policy units.
const DefaultChunkSize = 500

// DefaultChunkOverlap is the default number of overlapping units.
const DefaultChunkOverlap = 50

// DefaultMinChunkChars is the minimum trimmed length of a kept chunk.
const DefaultMinChunkChars = 20

// DefaultSnapWindow bounds how far back the character policy looks for a
// sentence terminator.
const DefaultSnapWindow = 100

type config struct {
	chunkSize     int
	overlap       int
	minChunkChars int
	snapWindow    int
}

// Option configures a chunker.
type Option func(*config)

// WithChunkSize sets the nominal chunk length.
func WithChunkSize(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between adjacent chunks.
func WithOverlap(overlap int) Option {
	return func(c *config) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithMinChunkChars makes the token policy drop chunks whose trimmed length
// is below n characters.
func WithMinChunkChars(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.minChunkChars = n
		}
	}
}

// WithSnapWindow sets the sentence-snapping look-back of the character policy.
func WithSnapWindow(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.snapWindow = n
		}
	}
}

func newConfig(opts []Option) config {
	c := config{
		chunkSize:     DefaultChunkSize,
		overlap:       DefaultChunkOverlap,
		minChunkChars: DefaultMinChunkChars,
		snapWindow:    DefaultSnapWindow,
	}
	for _, opt := range opts {
		opt(&c)
	}

	// Overlap must leave room to advance.
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize - 1
	}
	return c
}

// ChunkSize returns the configured chunk size.
func (c config) ChunkSize() int { return c.chunkSize }

// Overlap returns the effective overlap.
func (c config) Overlap() int { return c.overlap }
