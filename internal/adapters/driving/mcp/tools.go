package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query    string `json:"query" jsonschema:"natural-language query over the nutrition corpus"`
	NResults int    `json:"n_results,omitempty" jsonschema:"number of results between 1 and 20 (configured default when omitted)"`
	Category string `json:"category,omitempty" jsonschema:"restrict results to one document category"`
	UseCache *bool  `json:"use_cache,omitempty" jsonschema:"consult the result cache (default true)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results          []SearchResultOutput `json:"results"`
	Count            int                  `json:"count"`
	Cached           bool                 `json:"cached"`
	QueryTimeSeconds float64              `json:"query_time_seconds"`
}

// SearchResultOutput represents a single search result. Metadata carries
// every stored chunk field; the flat fields repeat the common ones.
type SearchResultOutput struct {
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata"`
	DocumentID string         `json:"document_id"`
	Source     string         `json:"source"`
	Category   string         `json:"category"`
	MealType   string         `json:"meal_type,omitempty"`
	Score      float64        `json:"score"`
	Distance   float64        `json:"distance"`
}

// ContextInput is the input schema for the assemble_context tool.
type ContextInput struct {
	PatientData     map[string]string `json:"patient_data,omitempty" jsonschema:"patient attributes such as objective and activity_level"`
	MotorType       int               `json:"motor_type" jsonschema:"1 new plan, 2 follow-up, 3 meal substitution"`
	SpecificRequest string            `json:"specific_request,omitempty" jsonschema:"meal to replace, used by motor type 3"`
}

// ContextOutput is the output schema for the assemble_context tool.
type ContextOutput struct {
	Context         string   `json:"context"`
	Recommendations []string `json:"recommendations"`
	RelevantSources []string `json:"relevant_sources"`
	SubQueries      []string `json:"sub_queries"`
}

// StatsInput is the (empty) input schema for the stats tool.
type StatsInput struct{}

// StatsOutput is the output schema for the stats tool.
type StatsOutput struct {
	TotalChunks int      `json:"total_chunks"`
	Categories  []string `json:"categories"`
	Sources     []string `json:"sources"`
	Collection  string   `json:"collection_name"`
	Backend     string   `json:"backend"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Semantic search over indexed nutrition documents",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "assemble_context",
		Description: "Build the retrieval context for a nutrition consultation",
	}, s.handleAssembleContext)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stats",
		Description: "Summarise the indexed collection",
	}, s.handleStats)
}

// resultCount fills an omitted n_results with the configured default.
func (s *Server) resultCount(n int) int {
	if n != 0 {
		return n
	}
	if s.ports.DefaultResults > 0 {
		return s.ports.DefaultResults
	}
	return domain.DefaultResults
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	useCache := true
	if input.UseCache != nil {
		useCache = *input.UseCache
	}

	resp, err := s.ports.Retrieval.Search(ctx, domain.SearchRequest{
		Query:          input.Query,
		NResults:       s.resultCount(input.NResults),
		CategoryFilter: input.Category,
		UseCache:       useCache,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results:          make([]SearchResultOutput, len(resp.Results)),
		Count:            len(resp.Results),
		Cached:           resp.Cached,
		QueryTimeSeconds: resp.QueryTimeSeconds,
	}
	for i, r := range resp.Results {
		output.Results[i] = SearchResultOutput{
			Text:       r.Text,
			Metadata:   r.Metadata.Fields(),
			DocumentID: r.Metadata.DocumentID,
			Source:     r.Metadata.Source,
			Category:   r.Metadata.Category,
			Score:      r.Score,
			Distance:   r.Distance,
		}
		if r.Metadata.IsRecipe() {
			output.Results[i].MealType = r.Metadata.MealType
		}
	}

	return nil, output, nil
}

// handleAssembleContext handles the assemble_context tool invocation.
func (s *Server) handleAssembleContext(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ContextInput,
) (*mcp.CallToolResult, ContextOutput, error) {
	resp, err := s.ports.Retrieval.AssembleContext(ctx, domain.ContextRequest{
		PatientData:     input.PatientData,
		MotorType:       domain.MotorType(input.MotorType),
		SpecificRequest: input.SpecificRequest,
	})
	if err != nil {
		return nil, ContextOutput{}, err
	}

	return nil, ContextOutput{
		Context:         resp.Context,
		Recommendations: nonNil(resp.Recommendations),
		RelevantSources: nonNil(resp.RelevantSources),
		SubQueries:      nonNil(resp.SubQueries),
	}, nil
}

// handleStats handles the stats tool invocation.
func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatsInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	stats, err := s.ports.Retrieval.Stats(ctx)
	if err != nil {
		return nil, StatsOutput{}, err
	}

	return nil, StatsOutput{
		TotalChunks: stats.TotalChunks,
		Categories:  nonNil(stats.Categories),
		Sources:     nonNil(stats.Sources),
		Collection:  stats.Collection,
		Backend:     stats.Backend,
	}, nil
}

// nonNil keeps array fields as [] rather than null in tool output.
func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
