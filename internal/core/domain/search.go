package domain

import "unicode/utf8"

// Search limits.
const (
	// DefaultMaxQueryLength is the maximum query length in characters.
	DefaultMaxQueryLength = 500

	// MinResults is the lowest accepted n_results value.
	MinResults = 1

	// MaxResults is the highest accepted n_results value.
	MaxResults = 20

	// DefaultResults is used when n_results is omitted.
	DefaultResults = 5
)

// SearchRequest is a semantic search query.
type SearchRequest struct {
	// Query is the natural-language query. Trimmed before use.
	Query string `json:"query"`

	// NResults is the number of results to return, 1..20.
	NResults int `json:"n_results"`

	// CategoryFilter restricts results to one category when non-empty.
	CategoryFilter string `json:"category_filter,omitempty"`

	// UseCache enables the result cache for this request.
	UseCache bool `json:"use_cache"`
}

// SearchResult represents a single search hit.
type SearchResult struct {
	// Text is the chunk content.
	Text string `json:"text"`

	// Metadata is the chunk metadata.
	Metadata Metadata `json:"metadata"`

	// Distance is the cosine distance to the query, lower is closer.
	Distance float64 `json:"distance"`

	// Score is 1 - Distance.
	Score float64 `json:"score"`
}

// SearchResponse is the answer to a SearchRequest.
type SearchResponse struct {
	// Results are ordered by ascending distance.
	Results []SearchResult `json:"results"`

	// Cached is true when the results came from the result cache.
	Cached bool `json:"cached"`

	// QueryTimeSeconds is the elapsed wall time, 0 on cache hits.
	QueryTimeSeconds float64 `json:"query_time_seconds"`

	// TotalResults is len(Results).
	TotalResults int `json:"total_results"`
}

// ScoreFromDistance converts a cosine distance into a similarity score.
func ScoreFromDistance(distance float64) float64 {
	return 1 - distance
}

// NewSearchResult builds a result from a chunk text, metadata and distance.
func NewSearchResult(text string, meta Metadata, distance float64) SearchResult {
	return SearchResult{
		Text:     text,
		Metadata: meta,
		Distance: distance,
		Score:    ScoreFromDistance(distance),
	}
}

// Validate checks the request against the given maximum query length.
// The query is expected to be already trimmed.
func (r SearchRequest) Validate(maxQueryLength int) error {
	if r.Query == "" {
		return &ValidationError{Field: "query", Reason: "must not be empty"}
	}
	if maxQueryLength > 0 && utf8.RuneCountInString(r.Query) > maxQueryLength {
		return &ValidationError{Field: "query", Reason: "exceeds maximum length"}
	}
	if r.NResults < MinResults || r.NResults > MaxResults {
		return &ValidationError{Field: "n_results", Reason: "must be between 1 and 20"}
	}
	return nil
}
