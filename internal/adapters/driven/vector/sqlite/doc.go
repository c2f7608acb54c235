// Package sqlite provides an embedded vector index backed by a single SQLite file.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// Chunks live in one table keyed by (collection, id). Embeddings are stored as
// little-endian float32 BLOBs and metadata as JSON text, so metadata filters
// compile to json_extract predicates. The schema is managed through versioned
// migrations stored in the migrations/ directory.
//
// # Ranking
//
// SQLite has no vector operators. Query loads the filtered candidates and ranks
// them by cosine distance in Go, which suits corpora of a few hundred thousand
// chunks.
//
// # Thread Safety
//
// All operations are thread-safe. The index uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
