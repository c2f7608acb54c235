// Package qdrant provides a vector index backed by a Qdrant collection,
// accessed through the Qdrant REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
	"github.com/custodia-labs/nutrirag/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

const (
	backendName = "qdrant"

	// DefaultTimeout bounds each REST call.
	DefaultTimeout = 10 * time.Second

	// Payload keys holding the chunk identity and content.
	payloadChunkID = "chunk_id"
	payloadText    = "text"

	// scrollPage is the page size used when sampling.
	scrollPage = 256
)

// pointNamespace seeds deterministic point IDs.
var pointNamespace = uuid.NameSpaceURL

// Config holds configuration for the Qdrant index.
type Config struct {
	// URL is the Qdrant REST endpoint, e.g. http://localhost:6333.
	URL string

	// Collection is the collection name.
	Collection string

	// Dimensions is the vector size used when the collection is created.
	Dimensions int

	// Timeout is the per-request timeout (default: 10s).
	Timeout time.Duration
}

// Index implements driven.VectorIndex on a Qdrant collection.
type Index struct {
	endpoint   string
	collection string
	dimensions int
	client     *http.Client

	mu    sync.Mutex
	ready bool
}

// New creates a Qdrant-backed index. The collection is created lazily.
func New(cfg Config) (*Index, error) {
	if cfg.URL == "" {
		return nil, &domain.ValidationError{Field: "dsn", Reason: "qdrant endpoint is required"}
	}
	if cfg.Collection == "" {
		return nil, &domain.ValidationError{Field: "collection", Reason: "must not be empty"}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Index{
		endpoint:   strings.TrimRight(cfg.URL, "/"),
		collection: cfg.Collection,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// PointID returns the deterministic Qdrant point ID for a chunk ID.
func PointID(collection, chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(collection+"/"+chunkID)).String()
}

// Name returns the backend name.
func (q *Index) Name() string { return backendName }

// Collection returns the collection name.
func (q *Index) Collection() string { return q.collection }

// ensureCollection creates the collection if it doesn't exist.
func (q *Index) ensureCollection(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ready {
		return nil
	}

	status, _, err := q.do(ctx, http.MethodGet, q.collectionURL(""), nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		if q.dimensions <= 0 {
			return &domain.ValidationError{Field: "dimensions", Reason: "required to create a qdrant collection"}
		}
		body := map[string]any{
			"vectors": map[string]any{
				"size":     q.dimensions,
				"distance": "Cosine",
			},
		}
		if err := q.expectOK(q.do(ctx, http.MethodPut, q.collectionURL(""), body)); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	} else if status >= 300 {
		return fmt.Errorf("get collection: status %d", status)
	}

	q.ready = true
	return nil
}

// Upsert writes points with payloads carrying text and metadata.
func (q *Index) Upsert(ctx context.Context, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := q.ensureCollection(ctx); err != nil {
		return storageErr("upsert", err)
	}

	points := make([]map[string]any, 0, len(records))
	for _, r := range records {
		if q.dimensions > 0 && len(r.Embedding) != q.dimensions {
			return &domain.ValidationError{
				Field:  "embedding",
				Reason: fmt.Sprintf("record %s has %d dimensions, want %d", r.ID, len(r.Embedding), q.dimensions),
			}
		}
		payload := r.Metadata.Fields()
		payload[payloadChunkID] = r.ID
		payload[payloadText] = r.Text
		points = append(points, map[string]any{
			"id":      PointID(q.collection, r.ID),
			"vector":  r.Embedding,
			"payload": payload,
		})
	}

	err := q.expectOK(q.do(ctx, http.MethodPut, q.collectionURL("/points?wait=true"), map[string]any{"points": points}))
	if err != nil {
		return storageErr("upsert", err)
	}
	return nil
}

// point is a Qdrant point as returned by search and scroll.
type point struct {
	ID      string          `json:"id"`
	Score   float64         `json:"score"`
	Payload json.RawMessage `json:"payload"`
}

// decode extracts the chunk ID, text and metadata from the payload.
func (p point) decode() (string, string, domain.Metadata, error) {
	var meta domain.Metadata
	if err := json.Unmarshal(p.Payload, &meta); err != nil {
		return "", "", meta, fmt.Errorf("decode payload: %w", err)
	}
	var ident struct {
		ChunkID string `json:"chunk_id"`
		Text    string `json:"text"`
	}
	if err := json.Unmarshal(p.Payload, &ident); err != nil {
		return "", "", meta, fmt.Errorf("decode payload: %w", err)
	}
	return ident.ChunkID, ident.Text, meta, nil
}

// Query runs a filtered cosine search. Qdrant reports similarity, which
// is converted to distance as 1 - score.
func (q *Index) Query(ctx context.Context, embedding []float32, k int, filter domain.Filter) ([]driven.VectorMatch, error) {
	if k <= 0 {
		return []driven.VectorMatch{}, nil
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if err := q.ensureCollection(ctx); err != nil {
		return nil, storageErr("query", err)
	}

	body := map[string]any{
		"vector":       embedding,
		"limit":        k,
		"with_payload": true,
	}
	if f := buildFilter(filter); f != nil {
		body["filter"] = f
	}

	var result struct {
		Result []point `json:"result"`
	}
	if err := q.call(ctx, http.MethodPost, q.collectionURL("/points/search"), body, &result); err != nil {
		return nil, storageErr("query", err)
	}

	matches := make([]driven.VectorMatch, 0, len(result.Result))
	for _, p := range result.Result {
		id, text, meta, err := p.decode()
		if err != nil {
			return nil, storageErr("query", err)
		}
		matches = append(matches, driven.VectorMatch{
			ID:       id,
			Text:     text,
			Metadata: meta,
			Distance: 1 - p.Score,
		})
	}
	return matches, nil
}

// Delete removes points by chunk ID.
func (q *Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := q.ensureCollection(ctx); err != nil {
		return storageErr("delete", err)
	}

	pointIDs := make([]string, len(ids))
	for i, id := range ids {
		pointIDs[i] = PointID(q.collection, id)
	}
	err := q.expectOK(q.do(ctx, http.MethodPost, q.collectionURL("/points/delete?wait=true"),
		map[string]any{"points": pointIDs}))
	if err != nil {
		return storageErr("delete", err)
	}
	return nil
}

// DeleteByFilter removes matching points. An empty filter drops and
// recreates the collection.
func (q *Index) DeleteByFilter(ctx context.Context, filter domain.Filter) (int, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}
	n, err := q.count(ctx, filter)
	if err != nil {
		return 0, storageErr("delete", err)
	}
	if n == 0 {
		return 0, nil
	}

	if len(filter) == 0 {
		if err := q.expectOK(q.do(ctx, http.MethodDelete, q.collectionURL(""), nil)); err != nil {
			return 0, storageErr("delete", err)
		}
		q.mu.Lock()
		q.ready = false
		q.mu.Unlock()
		return n, nil
	}

	err = q.expectOK(q.do(ctx, http.MethodPost, q.collectionURL("/points/delete?wait=true"),
		map[string]any{"filter": buildFilter(filter)}))
	if err != nil {
		return 0, storageErr("delete", err)
	}
	return n, nil
}

// Count returns the exact number of points.
func (q *Index) Count(ctx context.Context) (int, error) {
	n, err := q.count(ctx, nil)
	if err != nil {
		return 0, storageErr("count", err)
	}
	return n, nil
}

func (q *Index) count(ctx context.Context, filter domain.Filter) (int, error) {
	if err := q.ensureCollection(ctx); err != nil {
		return 0, err
	}
	body := map[string]any{"exact": true}
	if f := buildFilter(filter); f != nil {
		body["filter"] = f
	}

	var result struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := q.call(ctx, http.MethodPost, q.collectionURL("/points/count"), body, &result); err != nil {
		return 0, err
	}
	return result.Result.Count, nil
}

// Sample scrolls through matching points without vectors.
func (q *Index) Sample(ctx context.Context, limit int, filter domain.Filter) ([]driven.VectorRecord, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if err := q.ensureCollection(ctx); err != nil {
		return nil, storageErr("sample", err)
	}

	records := []driven.VectorRecord{}
	var offset any
	for {
		page := scrollPage
		if limit > 0 {
			page = min(page, limit-len(records))
		}
		body := map[string]any{
			"limit":        page,
			"with_payload": true,
			"with_vector":  false,
		}
		if f := buildFilter(filter); f != nil {
			body["filter"] = f
		}
		if offset != nil {
			body["offset"] = offset
		}

		var result struct {
			Result struct {
				Points         []point `json:"points"`
				NextPageOffset any     `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := q.call(ctx, http.MethodPost, q.collectionURL("/points/scroll"), body, &result); err != nil {
			return nil, storageErr("sample", err)
		}

		for _, p := range result.Result.Points {
			id, text, meta, err := p.decode()
			if err != nil {
				return nil, storageErr("sample", err)
			}
			records = append(records, driven.VectorRecord{ID: id, Text: text, Metadata: meta})
		}

		offset = result.Result.NextPageOffset
		if offset == nil || len(result.Result.Points) == 0 || (limit > 0 && len(records) >= limit) {
			break
		}
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// Ping checks the Qdrant health endpoint.
func (q *Index) Ping(ctx context.Context) error {
	if err := q.expectOK(q.do(ctx, http.MethodGet, q.endpoint+"/healthz", nil)); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

// Close releases resources.
func (q *Index) Close() error {
	q.client.CloseIdleConnections()
	return nil
}

func (q *Index) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", q.endpoint, q.collection, suffix)
}

// buildFilter converts an equality conjunction into a Qdrant "must" filter.
func buildFilter(filter domain.Filter) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	must := make([]any, 0, len(keys))
	for _, key := range keys {
		must = append(must, map[string]any{
			"key":   key,
			"match": map[string]any{"value": filter[key]},
		})
	}
	return map[string]any{"must": must}
}

// do sends a JSON request and returns the status and body.
func (q *Index) do(ctx context.Context, method, url string, body any) (int, []byte, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// expectOK turns a non-2xx response into an error.
func (q *Index) expectOK(status int, body []byte, err error) error {
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("status %d: %s", status, strings.TrimSpace(string(body)))
	}
	return nil
}

// call sends a request and decodes a 2xx response into out.
func (q *Index) call(ctx context.Context, method, url string, body, out any) error {
	status, data, err := q.do(ctx, method, url, body)
	if err = q.expectOK(status, data, err); err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func storageErr(op string, err error) error {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return err
	}
	return &domain.StorageError{Backend: backendName, Op: op, Err: domain.WrapTimeout(err)}
}
