package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
	"github.com/custodia-labs/nutrirag/internal/core/ports/driven"
)

// preparedDocument is a corpus file after extraction and chunking.
type preparedDocument struct {
	doc    domain.Document
	chunks []domain.Chunk
}

// Ingest walks the corpus tree under root and indexes every supported file.
//
// Full mode clears the collection before writing: it is destructive and
// non-incremental, and a search racing it may see a partially rebuilt
// collection. Incremental mode replaces each document found on disk and then
// removes documents no longer in the tree. Both leave the collection
// consistent with the tree when they succeed.
func (s *RetrievalService) Ingest(ctx context.Context, root string, opts domain.IngestOptions) (*domain.IngestReport, error) {
	if !s.ingestMu.TryLock() {
		return nil, domain.ErrIngestInProgress
	}
	defer s.ingestMu.Unlock()

	if opts.Mode == "" {
		opts.Mode = domain.IngestModeFull
	}
	if !opts.Mode.IsValid() {
		return nil, &domain.ValidationError{Field: "mode", Reason: "must be full or incremental"}
	}
	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, &domain.ValidationError{Field: "exclude", Reason: "invalid pattern " + strconv.Quote(pattern)}
		}
	}
	batchSize := s.settings.BatchSize
	if opts.BatchSize > 0 {
		batchSize = opts.BatchSize
	}

	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, &domain.ValidationError{Field: "root", Reason: "not a readable directory: " + root}
	}

	report := &domain.IngestReport{
		RunID: uuid.NewString(),
		Mode:  opts.Mode,
	}

	ctx, span := tracer.Start(ctx, "retrieval.ingest")
	defer span.End()
	span.SetAttributes(
		attribute.String("ingest.run_id", report.RunID),
		attribute.String("ingest.mode", string(opts.Mode)),
	)

	start := s.now()
	log.Info("Starting %s ingest %s of %s", opts.Mode, report.RunID, root)

	docs, err := s.prepareTree(ctx, root, opts.Exclude, report)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	switch opts.Mode {
	case domain.IngestModeFull:
		err = s.rebuild(ctx, docs, batchSize, report)
	case domain.IngestModeIncremental:
		err = s.refresh(ctx, docs, batchSize, report)
	}
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	report.DocumentsIndexed = len(docs)
	report.Duration = s.now().Sub(start)
	span.SetAttributes(
		attribute.Int("ingest.documents", report.DocumentsIndexed),
		attribute.Int("ingest.chunks", report.ChunksIndexed),
		attribute.Int("ingest.skipped", len(report.Skipped)),
	)
	log.Info("Ingest %s complete: %d documents, %d chunks, %d skipped in %s",
		report.RunID, report.DocumentsIndexed, report.ChunksIndexed, len(report.Skipped), report.Duration)

	return report, nil
}

// prepareTree extracts and chunks every supported file under root.
// Per-file failures are recorded in report and the walk continues.
func (s *RetrievalService) prepareTree(
	ctx context.Context,
	root string,
	exclude []string,
	report *domain.IngestReport,
) ([]preparedDocument, error) {
	var docs []preparedDocument

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			s.skip(report, p, walkErr.Error())
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && p != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if p == root {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			s.skip(report, p, err.Error())
			return nil
		}
		rel = filepath.ToSlash(rel)

		if excluded(exclude, rel) {
			log.Debug("Excluded %s", rel)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		if !s.registry.Supports(d.Name()) {
			s.skip(report, rel, "unsupported file type")
			return nil
		}

		content, err := os.ReadFile(p)
		if err != nil {
			s.skip(report, rel, err.Error())
			return nil
		}

		raw := &domain.RawDocument{
			DocumentID: rel,
			Filename:   d.Name(),
			Category:   categoryFor(root, rel),
			Path:       p,
			MIMEType:   mime.TypeByExtension(filepath.Ext(p)),
			Content:    content,
		}
		prepared, err := s.prepare(ctx, raw)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.skip(report, rel, err.Error())
			return nil
		}
		log.Debug("Prepared %s: %d chunks", rel, len(prepared.chunks))
		docs = append(docs, *prepared)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return docs, nil
}

// categoryFor derives a category from the folder containing a corpus file.
// Files directly under the corpus root take the name of the root folder.
func categoryFor(root, rel string) string {
	if dir := path.Dir(rel); dir != "." {
		return path.Base(dir)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return domain.DefaultUploadCategory
	}
	base := filepath.Base(abs)
	if base == "." || base == string(filepath.Separator) {
		return domain.DefaultUploadCategory
	}
	return base
}

// prepare extracts text and runs the postprocessor pipeline.
func (s *RetrievalService) prepare(ctx context.Context, raw *domain.RawDocument) (*preparedDocument, error) {
	result, err := s.registry.Normalise(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	doc := result.Document
	doc.IndexedAt = s.now()
	if strings.TrimSpace(doc.Content) == "" {
		return nil, &domain.ValidationError{Field: "content", Reason: "no text extracted"}
	}

	chunks, err := s.pipeline.Process(ctx, &doc)
	if err != nil {
		return nil, fmt.Errorf("process: %w", err)
	}
	if len(chunks) == 0 {
		return nil, &domain.ValidationError{Field: "content", Reason: "no chunks above minimum length"}
	}
	return &preparedDocument{doc: doc, chunks: chunks}, nil
}

func (s *RetrievalService) skip(report *domain.IngestReport, p, reason string) {
	log.Warn("Skipping %s: %s", p, reason)
	report.Skipped = append(report.Skipped, domain.SkippedFile{Path: p, Reason: reason})
	s.metrics.FileSkipped()
}

// rebuild clears the collection and writes every prepared document.
func (s *RetrievalService) rebuild(ctx context.Context, docs []preparedDocument, batchSize int, report *domain.IngestReport) error {
	ictx, cancel := s.indexContext(ctx)
	removed, err := s.index.DeleteByFilter(ictx, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("clear collection: %w", err)
	}
	log.Debug("Cleared %d existing chunks", removed)

	return s.write(ctx, allChunks(docs), batchSize, report)
}

// refresh replaces the chunks of each prepared document and removes
// documents that are no longer in the tree.
func (s *RetrievalService) refresh(ctx context.Context, docs []preparedDocument, batchSize int, report *domain.IngestReport) error {
	existing, err := s.storedDocumentIDs(ctx)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(docs))
	for _, d := range docs {
		seen[d.doc.ID] = true
		if err := s.deleteDocumentChunks(ctx, d.doc.ID); err != nil {
			return err
		}
	}

	if err := s.write(ctx, allChunks(docs), batchSize, report); err != nil {
		return err
	}

	for _, id := range existing {
		if seen[id] {
			continue
		}
		if err := s.deleteDocumentChunks(ctx, id); err != nil {
			return err
		}
		log.Debug("Removed stale document %s", id)
		report.DocumentsRemoved++
	}
	return nil
}

func (s *RetrievalService) storedDocumentIDs(ctx context.Context) ([]string, error) {
	ictx, cancel := s.indexContext(ctx)
	defer cancel()

	records, err := s.index.Sample(ictx, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("list stored documents: %w", err)
	}
	ids := make(map[string]bool)
	for _, rec := range records {
		id := rec.Metadata.DocumentID
		if id == "" {
			id = domain.DocumentIDFromChunkID(rec.ID)
		}
		ids[id] = true
	}
	return sortedKeys(ids), nil
}

func (s *RetrievalService) deleteDocumentChunks(ctx context.Context, documentID string) error {
	ictx, cancel := s.indexContext(ctx)
	defer cancel()

	if _, err := s.index.DeleteByFilter(ictx, domain.Filter{domain.MetaDocumentID: documentID}); err != nil {
		return fmt.Errorf("delete chunks of %s: %w", documentID, err)
	}
	return nil
}

// write embeds and upserts chunks in fixed-size batches.
func (s *RetrievalService) write(ctx context.Context, chunks []domain.Chunk, batchSize int, report *domain.IngestReport) error {
	total := (len(chunks) + batchSize - 1) / batchSize
	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))
		batch := chunks[start:end]

		if err := s.writeBatch(ctx, batch); err != nil {
			return err
		}

		report.Batches++
		report.ChunksIndexed += len(batch)
		s.metrics.ChunksIngested(len(batch))
		log.Debug("Indexed batch %d/%d", report.Batches, total)
	}
	return nil
}

func (s *RetrievalService) writeBatch(ctx context.Context, batch []domain.Chunk) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Content
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(batch) {
		return &domain.ProviderError{
			Provider: s.embedder.ModelName(),
			Op:       "embed",
			Err:      fmt.Errorf("got %d embeddings for %d texts", len(vectors), len(batch)),
		}
	}

	records := make([]driven.VectorRecord, len(batch))
	for i := range batch {
		batch[i].Embedding = vectors[i]
		records[i] = driven.RecordFromChunk(batch[i])
	}

	ictx, cancel := s.indexContext(ctx)
	defer cancel()

	if err := s.index.Upsert(ictx, records); err != nil {
		return fmt.Errorf("upsert chunks: %w", err)
	}
	return nil
}

func allChunks(docs []preparedDocument) []domain.Chunk {
	var chunks []domain.Chunk
	for _, d := range docs {
		chunks = append(chunks, d.chunks...)
	}
	return chunks
}

// IngestDocument indexes a single uploaded file, replacing any previous
// chunks of the same document.
func (s *RetrievalService) IngestDocument(ctx context.Context, upload domain.DocumentUpload) (*domain.DocumentInfo, error) {
	ctx, span := tracer.Start(ctx, "retrieval.ingest_document")
	defer span.End()

	filename := filepath.Base(strings.TrimSpace(upload.Filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, &domain.ValidationError{Field: "filename", Reason: "must not be empty"}
	}
	if !s.registry.Supports(filename) {
		return nil, &domain.ValidationError{
			Field:  "filename",
			Reason: "unsupported file type; accepted: " + strings.Join(s.registry.SupportedExtensions(), ", "),
		}
	}
	category := strings.TrimSpace(upload.Category)
	if category == "" {
		category = domain.DefaultUploadCategory
	}
	span.SetAttributes(attribute.String("upload.filename", filename), attribute.String("upload.category", category))

	raw := &domain.RawDocument{
		DocumentID: domain.NewDocumentID(category, filename),
		Filename:   filename,
		Category:   category,
		MIMEType:   mime.TypeByExtension(filepath.Ext(filename)),
		Content:    upload.Content,
	}
	prepared, err := s.prepare(ctx, raw)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	if err := s.deleteDocumentChunks(ctx, prepared.doc.ID); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	report := &domain.IngestReport{}
	if err := s.write(ctx, prepared.chunks, s.settings.BatchSize, report); err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	sum := sha256.Sum256(upload.Content)
	log.Info("Uploaded %s: %d chunks", prepared.doc.ID, report.ChunksIndexed)

	return &domain.DocumentInfo{
		DocumentID:  prepared.doc.ID,
		Filename:    filename,
		Category:    category,
		Chunks:      report.ChunksIndexed,
		SizeBytes:   int64(len(upload.Content)),
		IndexedAt:   prepared.doc.IndexedAt,
		Fingerprint: hex.EncodeToString(sum[:]),
	}, nil
}

// excluded reports whether rel matches any of the patterns.
// Patterns are validated before the walk starts.
func excluded(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
