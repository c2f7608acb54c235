package driven

// Tokenizer converts text to model tokens and back.
// Decode(Encode(text)) must reproduce text.
type Tokenizer interface {
	// Name returns the encoding name (e.g. "cl100k_base").
	Name() string

	// Encode splits text into token IDs.
	Encode(text string) []int

	// Decode rebuilds text from token IDs.
	Decode(tokens []int) string
}
