package mcp

import (
	"net/http"

	"github.com/custodia-labs/nutrirag/internal/core/ports/driving"
)

// Ports aggregates the collaborators required by the MCP server.
type Ports struct {
	// Retrieval serves search, context assembly and stats.
	Retrieval driving.RetrievalService

	// Metrics is mounted at /metrics in HTTP mode when set.
	Metrics http.Handler

	// DefaultResults replaces an omitted n_results. Zero means domain.DefaultResults.
	DefaultResults int
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
