package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/nutrirag/internal/adapters/driven/vector/similarity"
	"github.com/custodia-labs/nutrirag/internal/adapters/driven/vector/sqlite/migrations"
	"github.com/custodia-labs/nutrirag/internal/core/domain"
	"github.com/custodia-labs/nutrirag/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

const (
	backendName = "sqlite"

	// memoryPath opens a private in-memory database.
	memoryPath = ":memory:"
)

// Index is a SQLite-backed vector index.
type Index struct {
	db         *sql.DB
	path       string
	collection string
	dimensions int
}

// New opens (or creates) the database at path and applies migrations.
// The parent directory is created when missing.
func New(path, collection string, dimensions int) (*Index, error) {
	if path == "" {
		return nil, &domain.ValidationError{Field: "dsn", Reason: "sqlite path is required"}
	}
	if collection == "" {
		return nil, &domain.ValidationError{Field: "collection", Reason: "must not be empty"}
	}

	dsn := memoryPath
	if path != memoryPath {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return nil, storageErr("open", fmt.Errorf("creating data directory: %w", err))
			}
		}
		// Open database with WAL mode for better concurrency
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storageErr("open", fmt.Errorf("opening database: %w", err))
	}
	if path == memoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	idx := &Index{
		db:         db,
		path:       path,
		collection: collection,
		dimensions: dimensions,
	}

	if err := idx.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, storageErr("open", fmt.Errorf("running migrations: %w", err))
	}

	return idx, nil
}

// Name returns the backend name.
func (i *Index) Name() string { return backendName }

// Collection returns the collection name.
func (i *Index) Collection() string { return i.collection }

// Path returns the database file path.
func (i *Index) Path() string { return i.path }

// Close closes the database connection.
func (i *Index) Close() error {
	return i.db.Close()
}

// Ping verifies the database is reachable.
func (i *Index) Ping(ctx context.Context) error {
	if err := i.db.PingContext(ctx); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

// migrate runs all pending migrations.
func (i *Index) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := i.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := i.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_chunks.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := i.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// Upsert stores records in one transaction, replacing existing IDs.
func (i *Index) Upsert(ctx context.Context, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if i.dimensions > 0 && len(r.Embedding) != i.dimensions {
			return &domain.ValidationError{
				Field:  "embedding",
				Reason: fmt.Sprintf("record %s has %d dimensions, want %d", r.ID, len(r.Embedding), i.dimensions),
			}
		}
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("upsert", fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (collection, id, text, embedding, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(collection, id) DO UPDATE SET
			text = excluded.text,
			embedding = excluded.embedding,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return storageErr("upsert", fmt.Errorf("preparing statement: %w", err))
	}
	defer stmt.Close()

	for _, r := range records {
		metadataJSON, err := json.Marshal(r.Metadata)
		if err != nil {
			return storageErr("upsert", fmt.Errorf("marshalling metadata: %w", err))
		}
		if _, err := stmt.ExecContext(ctx, i.collection, r.ID, r.Text,
			float32SliceToBytes(r.Embedding), string(metadataJSON)); err != nil {
			return storageErr("upsert", fmt.Errorf("saving chunk %s: %w", r.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("upsert", fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

// Query ranks the filtered candidates by cosine distance.
func (i *Index) Query(ctx context.Context, embedding []float32, k int, filter domain.Filter) ([]driven.VectorMatch, error) {
	if k <= 0 {
		return []driven.VectorMatch{}, nil
	}
	where, args, err := i.whereClause(filter)
	if err != nil {
		return nil, err
	}

	rows, err := i.db.QueryContext(ctx,
		"SELECT id, text, embedding, metadata FROM chunks WHERE "+where, args...)
	if err != nil {
		return nil, storageErr("query", err)
	}
	defer rows.Close()

	matches := []driven.VectorMatch{}
	for rows.Next() {
		var (
			m             driven.VectorMatch
			embeddingBlob []byte
			metadataJSON  string
		)
		if err := rows.Scan(&m.ID, &m.Text, &embeddingBlob, &metadataJSON); err != nil {
			return nil, storageErr("query", fmt.Errorf("scanning chunk: %w", err))
		}
		if err := json.Unmarshal([]byte(metadataJSON), &m.Metadata); err != nil {
			return nil, storageErr("query", fmt.Errorf("unmarshaling metadata: %w", err))
		}
		m.Distance = similarity.CosineDistance(embedding, bytesToFloat32Slice(embeddingBlob))
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("query", fmt.Errorf("iterating chunks: %w", err))
	}

	return similarity.TopK(matches, k), nil
}

// Delete removes records by ID.
func (i *Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, i.collection)
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := i.db.ExecContext(ctx,
		"DELETE FROM chunks WHERE collection = ? AND id IN ("+placeholders+")", args...)
	if err != nil {
		return storageErr("delete", err)
	}
	return nil
}

// DeleteByFilter removes every record matching filter.
func (i *Index) DeleteByFilter(ctx context.Context, filter domain.Filter) (int, error) {
	where, args, err := i.whereClause(filter)
	if err != nil {
		return 0, err
	}

	res, err := i.db.ExecContext(ctx, "DELETE FROM chunks WHERE "+where, args...)
	if err != nil {
		return 0, storageErr("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("delete", err)
	}
	return int(n), nil
}

// Count returns the number of records in the collection.
func (i *Index) Count(ctx context.Context) (int, error) {
	var n int
	row := i.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE collection = ?", i.collection)
	if err := row.Scan(&n); err != nil {
		return 0, storageErr("count", err)
	}
	return n, nil
}

// Sample returns up to limit matching records ordered by ID, without embeddings.
func (i *Index) Sample(ctx context.Context, limit int, filter domain.Filter) ([]driven.VectorRecord, error) {
	where, args, err := i.whereClause(filter)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	args = append(args, limit)

	rows, err := i.db.QueryContext(ctx,
		"SELECT id, text, metadata FROM chunks WHERE "+where+" ORDER BY id LIMIT ?", args...)
	if err != nil {
		return nil, storageErr("sample", err)
	}
	defer rows.Close()

	records := []driven.VectorRecord{}
	for rows.Next() {
		var (
			r            driven.VectorRecord
			metadataJSON string
		)
		if err := rows.Scan(&r.ID, &r.Text, &metadataJSON); err != nil {
			return nil, storageErr("sample", fmt.Errorf("scanning chunk: %w", err))
		}
		if err := json.Unmarshal([]byte(metadataJSON), &r.Metadata); err != nil {
			return nil, storageErr("sample", fmt.Errorf("unmarshaling metadata: %w", err))
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("sample", fmt.Errorf("iterating chunks: %w", err))
	}
	return records, nil
}

// whereClause compiles filter into a predicate scoped to the collection.
// Keys are emitted in sorted order so statements are stable.
func (i *Index) whereClause(filter domain.Filter) (string, []any, error) {
	if err := filter.Validate(); err != nil {
		return "", nil, err
	}

	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	clauses := []string{"collection = ?"}
	args := []any{i.collection}
	for _, key := range keys {
		clauses = append(clauses, "json_extract(metadata, ?) = ?")
		args = append(args, "$."+key, filter[key])
	}
	return strings.Join(clauses, " AND "), args, nil
}

func storageErr(op string, err error) error {
	return &domain.StorageError{Backend: backendName, Op: op, Err: domain.WrapTimeout(err)}
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
