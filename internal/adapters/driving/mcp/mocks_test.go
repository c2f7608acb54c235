package mcp

import (
	"context"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
	"github.com/custodia-labs/nutrirag/internal/core/ports/driving"
)

var _ driving.RetrievalService = (*mockRetrievalService)(nil)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	searchResp  *domain.SearchResponse
	contextResp *domain.ContextResponse
	stats       *domain.Stats
	documents   []domain.DocumentSummary
	err         error

	lastSearch  domain.SearchRequest
	lastContext domain.ContextRequest
}

func (m *mockRetrievalService) Ingest(
	_ context.Context, _ string, _ domain.IngestOptions,
) (*domain.IngestReport, error) {
	return &domain.IngestReport{}, m.err
}

func (m *mockRetrievalService) IngestDocument(
	_ context.Context, _ domain.DocumentUpload,
) (*domain.DocumentInfo, error) {
	return &domain.DocumentInfo{}, m.err
}

func (m *mockRetrievalService) Search(
	_ context.Context, req domain.SearchRequest,
) (*domain.SearchResponse, error) {
	m.lastSearch = req
	if m.err != nil {
		return nil, m.err
	}
	if m.searchResp == nil {
		return &domain.SearchResponse{}, nil
	}
	return m.searchResp, nil
}

func (m *mockRetrievalService) AssembleContext(
	_ context.Context, req domain.ContextRequest,
) (*domain.ContextResponse, error) {
	m.lastContext = req
	if m.err != nil {
		return nil, m.err
	}
	if m.contextResp == nil {
		return &domain.ContextResponse{}, nil
	}
	return m.contextResp, nil
}

func (m *mockRetrievalService) Stats(_ context.Context) (*domain.Stats, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.stats == nil {
		return &domain.Stats{}, nil
	}
	return m.stats, nil
}

func (m *mockRetrievalService) ListDocuments(_ context.Context) ([]domain.DocumentSummary, error) {
	return m.documents, m.err
}

func (m *mockRetrievalService) DeleteDocument(_ context.Context, _ string) (int, error) {
	return 0, m.err
}

func (m *mockRetrievalService) Clear(_ context.Context) error {
	return m.err
}

func (m *mockRetrievalService) Health(_ context.Context) domain.HealthReport {
	return domain.HealthReport{Status: domain.HealthHealthy}
}
