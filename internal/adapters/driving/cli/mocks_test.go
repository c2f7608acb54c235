package cli

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
	"github.com/custodia-labs/nutrirag/internal/core/ports/driving"
)

func TestMain(m *testing.M) {
	bootstrap = func(context.Context, string) error { return nil }
	os.Exit(m.Run())
}

var (
	_ driving.RetrievalService = (*mockRetrievalService)(nil)
	_ driving.SettingsService  = (*mockSettingsService)(nil)
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	searchResp  *domain.SearchResponse
	contextResp *domain.ContextResponse
	report      *domain.IngestReport
	info        *domain.DocumentInfo
	stats       *domain.Stats
	documents   []domain.DocumentSummary
	deleted     int
	health      domain.HealthReport
	err         error

	ingestRoot  string
	ingestOpts  domain.IngestOptions
	ingestCalls int
	lastSearch  domain.SearchRequest
	lastContext domain.ContextRequest
	lastUpload  domain.DocumentUpload
	lastDelete  string
	cleared     bool
}

func (m *mockRetrievalService) Ingest(
	_ context.Context, root string, opts domain.IngestOptions,
) (*domain.IngestReport, error) {
	m.ingestRoot = root
	m.ingestOpts = opts
	m.ingestCalls++
	if m.err != nil {
		return nil, m.err
	}
	if m.report == nil {
		return &domain.IngestReport{Mode: opts.Mode}, nil
	}
	return m.report, nil
}

func (m *mockRetrievalService) IngestDocument(
	_ context.Context, upload domain.DocumentUpload,
) (*domain.DocumentInfo, error) {
	m.lastUpload = upload
	if m.err != nil {
		return nil, m.err
	}
	if m.info == nil {
		return &domain.DocumentInfo{
			DocumentID: domain.NewDocumentID(upload.Category, upload.Filename),
			Filename:   upload.Filename,
			Category:   upload.Category,
			Chunks:     1,
			SizeBytes:  int64(len(upload.Content)),
		}, nil
	}
	return m.info, nil
}

func (m *mockRetrievalService) Search(
	_ context.Context, req domain.SearchRequest,
) (*domain.SearchResponse, error) {
	m.lastSearch = req
	if m.err != nil {
		return nil, m.err
	}
	if m.searchResp == nil {
		return &domain.SearchResponse{Results: []domain.SearchResult{}}, nil
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

func (m *mockRetrievalService) DeleteDocument(_ context.Context, documentID string) (int, error) {
	m.lastDelete = documentID
	return m.deleted, m.err
}

func (m *mockRetrievalService) Clear(_ context.Context) error {
	m.cleared = m.err == nil
	return m.err
}

func (m *mockRetrievalService) Health(_ context.Context) domain.HealthReport {
	return m.health
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings    domain.AppSettings
	err         error
	validateErr error

	provider domain.AIProvider
	model    string
	apiKey   string
	backend  domain.VectorBackend
	dsn      string
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings()}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	if m.err != nil {
		return m.err
	}
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if m.err != nil {
		return m.err
	}
	m.provider, m.model, m.apiKey = provider, model, apiKey
	return nil
}

func (m *mockSettingsService) SetVectorBackend(backend domain.VectorBackend, dsn string) error {
	if m.err != nil {
		return m.err
	}
	m.backend, m.dsn = backend, dsn
	return nil
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) ValidateEmbeddingConfig(_ context.Context) error {
	return m.validateErr
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// setupTestServices installs fresh mocks and returns them with a cleanup func.
func setupTestServices() (*mockRetrievalService, *mockSettingsService, func()) {
	oldRetrieval := retrievalService
	oldSettings := settingsService

	retrieval := &mockRetrievalService{
		health: domain.HealthReport{Status: domain.HealthHealthy, Timestamp: time.Now()},
	}
	settings := newMockSettingsService()
	retrievalService = retrieval
	settingsService = settings

	return retrieval, settings, func() {
		retrievalService = oldRetrieval
		settingsService = oldSettings
	}
}

// execute runs the root command with args and returns combined output.
// Flags are reset afterwards so tests do not leak state.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		resetFlags(rootCmd)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}
