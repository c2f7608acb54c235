package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
	"github.com/custodia-labs/nutrirag/internal/core/ports/driven"
	"github.com/custodia-labs/nutrirag/internal/core/ports/driving"
	"github.com/custodia-labs/nutrirag/internal/logger"
	"github.com/custodia-labs/nutrirag/internal/metrics"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

var tracer = otel.Tracer("github.com/custodia-labs/nutrirag/internal/core/services")

var log = logger.For("retrieval")

// healthTimeout bounds each dependency probe.
const healthTimeout = 5 * time.Second

// RetrievalOption configures a RetrievalService.
type RetrievalOption func(*RetrievalService)

// WithResultCache enables the result cache on backend.
// A nil backend leaves caching disabled.
func WithResultCache(backend driven.CacheBackend, settings domain.CacheSettings) RetrievalOption {
	return func(s *RetrievalService) {
		if backend == nil {
			return
		}
		s.cache = newResultCache(backend, settings.TTL, settings.Timeout)
	}
}

// WithMetrics records searches, cache failures and ingest progress.
func WithMetrics(m *metrics.Metrics) RetrievalOption {
	return func(s *RetrievalService) {
		s.metrics = m
	}
}

// WithClock replaces time.Now, used for latency and cache entry age.
func WithClock(now func() time.Time) RetrievalOption {
	return func(s *RetrievalService) {
		if now != nil {
			s.now = now
		}
	}
}

// RetrievalService owns handles to the embedding service, the vector index
// and the optional result cache. It performs no locking around them; the
// only in-process lock prevents two ingest runs from overlapping.
type RetrievalService struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	registry driven.NormaliserRegistry
	pipeline driven.PostProcessorPipeline
	settings domain.RetrievalSettings

	cache   *resultCache
	metrics *metrics.Metrics
	now     func() time.Time

	ingestMu sync.Mutex
}

// NewRetrievalService creates a retrieval service.
// Zero-valued settings fall back to domain defaults.
func NewRetrievalService(
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	settings domain.RetrievalSettings,
	opts ...RetrievalOption,
) *RetrievalService {
	s := &RetrievalService{
		embedder: embedder,
		index:    index,
		registry: registry,
		pipeline: pipeline,
		settings: withRetrievalDefaults(settings),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache != nil {
		s.cache.now = s.now
	}
	return s
}

func withRetrievalDefaults(s domain.RetrievalSettings) domain.RetrievalSettings {
	d := domain.DefaultAppSettings().Retrieval
	if s.MaxQueryLength <= 0 {
		s.MaxQueryLength = d.MaxQueryLength
	}
	if s.BatchSize <= 0 {
		s.BatchSize = d.BatchSize
	}
	if s.SampleLimit <= 0 {
		s.SampleLimit = d.SampleLimit
	}
	if s.PerQueryK <= 0 {
		s.PerQueryK = d.PerQueryK
	}
	if s.PoolSize <= 0 {
		s.PoolSize = d.PoolSize
	}
	if s.FinalK <= 0 {
		s.FinalK = d.FinalK
	}
	return s
}

// Search runs a semantic query, consulting the result cache when enabled.
func (s *RetrievalService) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	ctx, span := tracer.Start(ctx, "retrieval.search")
	defer span.End()

	req.Query = strings.TrimSpace(req.Query)
	if err := req.Validate(s.settings.MaxQueryLength); err != nil {
		return nil, s.searchFailed(span, err)
	}
	span.SetAttributes(
		attribute.Int("search.n_results", req.NResults),
		attribute.String("search.category", req.CategoryFilter),
		attribute.Bool("search.use_cache", req.UseCache),
	)

	start := s.now()

	var key string
	if req.UseCache && s.cache != nil {
		key = cacheKey(req.Query, req.NResults, req.CategoryFilter)
		results, hit, err := s.cache.lookup(ctx, key)
		if err != nil {
			s.cacheFailed(err)
		}
		if hit {
			log.Debug("Cache hit for %q", req.Query)
			span.SetAttributes(attribute.Bool("search.cached", true))
			s.metrics.ObserveSearch(metrics.OutcomeCached, 0)
			return &domain.SearchResponse{
				Results:      results,
				Cached:       true,
				TotalResults: len(results),
			}, nil
		}
	}

	results, err := s.query(ctx, req.Query, req.NResults, domain.CategoryFilter(req.CategoryFilter))
	if err != nil {
		return nil, s.searchFailed(span, err)
	}

	if key != "" && len(results) > 0 {
		if err := s.cache.store(ctx, key, results); err != nil {
			s.cacheFailed(err)
		}
	}

	elapsed := s.now().Sub(start)
	s.metrics.ObserveSearch(metrics.OutcomeUncached, elapsed)
	log.Info("Search completed: %q -> %d results in %.3fs", req.Query, len(results), elapsed.Seconds())

	return &domain.SearchResponse{
		Results:          results,
		QueryTimeSeconds: elapsed.Seconds(),
		TotalResults:     len(results),
	}, nil
}

func (s *RetrievalService) searchFailed(span trace.Span, err error) error {
	s.metrics.ObserveSearch(metrics.OutcomeError, 0)
	recordSpanError(span, err)
	return err
}

func (s *RetrievalService) cacheFailed(err error) {
	op := "cache"
	if cerr, ok := asCacheError(err); ok {
		op = cerr.Op
	}
	s.metrics.CacheError(op)
	log.Warn("Result cache unavailable, continuing uncached: %v", err)
}

// query embeds text and returns up to k results ordered by ascending distance.
func (s *RetrievalService) query(ctx context.Context, text string, k int, filter domain.Filter) ([]domain.SearchResult, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	ictx, cancel := s.indexContext(ctx)
	defer cancel()

	matches, err := s.index.Query(ictx, vec, k, filter)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, domain.NewSearchResult(m.Text, m.Metadata, m.Distance))
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	return results, nil
}

// indexContext bounds a vector index call by the configured timeout.
func (s *RetrievalService) indexContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.settings.IndexTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.settings.IndexTimeout)
}

// Stats summarises the collection from a bounded sample.
func (s *RetrievalService) Stats(ctx context.Context) (*domain.Stats, error) {
	ctx, span := tracer.Start(ctx, "retrieval.stats")
	defer span.End()

	ictx, cancel := s.indexContext(ctx)
	defer cancel()

	total, err := s.index.Count(ictx)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	sample, err := s.index.Sample(ictx, s.settings.SampleLimit, nil)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("sample chunks: %w", err)
	}

	categories := make(map[string]bool)
	sources := make(map[string]bool)
	for _, rec := range sample {
		if rec.Metadata.Category != "" {
			categories[rec.Metadata.Category] = true
		}
		if rec.Metadata.Source != "" {
			sources[rec.Metadata.Source] = true
		}
	}

	s.metrics.SetIndexChunks(total)

	return &domain.Stats{
		TotalChunks: total,
		Categories:  sortedKeys(categories),
		Sources:     sortedKeys(sources),
		Collection:  s.index.Collection(),
		Backend:     s.index.Name(),
		SampleSize:  len(sample),
	}, nil
}

// ListDocuments groups stored chunks by document.
func (s *RetrievalService) ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error) {
	ictx, cancel := s.indexContext(ctx)
	defer cancel()

	records, err := s.index.Sample(ictx, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	byID := make(map[string]*domain.DocumentSummary)
	for _, rec := range records {
		id := rec.Metadata.DocumentID
		if id == "" {
			id = domain.DocumentIDFromChunkID(rec.ID)
		}
		doc, ok := byID[id]
		if !ok {
			doc = &domain.DocumentSummary{
				DocumentID: id,
				Filename:   rec.Metadata.Source,
				Category:   rec.Metadata.Category,
				IndexedAt:  rec.Metadata.Timestamp,
			}
			byID[id] = doc
		}
		doc.Chunks++
		if rec.Metadata.SizeBytes > doc.SizeBytes {
			doc.SizeBytes = rec.Metadata.SizeBytes
		}
	}

	docs := make([]domain.DocumentSummary, 0, len(byID))
	for _, doc := range byID {
		docs = append(docs, *doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].DocumentID < docs[j].DocumentID
	})
	return docs, nil
}

// DeleteDocument removes every chunk of one document and returns the count.
func (s *RetrievalService) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return 0, &domain.ValidationError{Field: "document_id", Reason: "must not be empty"}
	}

	ictx, cancel := s.indexContext(ctx)
	defer cancel()

	n, err := s.index.DeleteByFilter(ictx, domain.Filter{domain.MetaDocumentID: documentID})
	if err != nil {
		return 0, fmt.Errorf("delete document %s: %w", documentID, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	log.Info("Deleted %d chunks of %s", n, documentID)
	return n, nil
}

// Clear removes every chunk from the collection.
func (s *RetrievalService) Clear(ctx context.Context) error {
	ictx, cancel := s.indexContext(ctx)
	defer cancel()

	n, err := s.index.DeleteByFilter(ictx, nil)
	if err != nil {
		return fmt.Errorf("clear collection: %w", err)
	}
	log.Info("Cleared %d chunks from %s", n, s.index.Collection())
	return nil
}

// Health probes the embedding service, vector index and cache backend.
func (s *RetrievalService) Health(ctx context.Context) domain.HealthReport {
	components := []domain.ComponentHealth{
		probe(ctx, domain.ComponentEmbedding, s.embedder.Ping),
		probe(ctx, domain.ComponentVector, s.index.Ping),
	}
	if s.cache != nil {
		components = append(components, probe(ctx, domain.ComponentCache, s.cache.backend.Ping))
	} else {
		components = append(components, domain.ComponentHealth{
			Name: domain.ComponentCache, Healthy: true, Detail: "disabled",
		})
	}

	return domain.HealthReport{
		Status:     domain.AggregateHealth(components),
		Components: components,
		Timestamp:  s.now().UTC(),
	}
}

func probe(ctx context.Context, name string, ping func(context.Context) error) domain.ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	if err := ping(ctx); err != nil {
		return domain.ComponentHealth{Name: name, Healthy: false, Detail: err.Error()}
	}
	return domain.ComponentHealth{Name: name, Healthy: true}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
