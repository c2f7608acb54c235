package domain

import "time"

// Stats summarises the index contents.
// Categories and Sources are computed from a bounded sample of chunks.
type Stats struct {
	TotalChunks int      `json:"total_chunks"`
	Categories  []string `json:"categories"`
	Sources     []string `json:"sources"`
	Collection  string   `json:"collection_name"`
	Backend     string   `json:"backend"`
	SampleSize  int      `json:"sample_size"`
}

// DocumentSummary lists one indexed document.
type DocumentSummary struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Category   string `json:"category"`
	Chunks     int    `json:"chunks"`
	SizeBytes  int64  `json:"size_bytes,omitempty"`
	IndexedAt  string `json:"indexed_at,omitempty"`
}

// HealthStatus is the aggregate health of the retrieval stack.
type HealthStatus string

// Health states.
const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// Component names reported by health checks.
const (
	ComponentEmbedding = "embedding"
	ComponentVector    = "vector_index"
	ComponentCache     = "cache"
)

// ComponentHealth is the result of probing one dependency.
type ComponentHealth struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// HealthReport aggregates component probes.
type HealthReport struct {
	Status     HealthStatus      `json:"status"`
	Components []ComponentHealth `json:"components"`
	Timestamp  time.Time         `json:"timestamp"`
}

// AggregateHealth derives the overall status. The vector index and the
// embedding provider are required; an unreachable cache only degrades service.
func AggregateHealth(components []ComponentHealth) HealthStatus {
	status := HealthHealthy
	for _, c := range components {
		if c.Healthy {
			continue
		}
		if c.Name == ComponentVector || c.Name == ComponentEmbedding {
			return HealthUnhealthy
		}
		status = HealthDegraded
	}
	return status
}
