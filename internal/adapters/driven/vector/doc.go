// Package vector groups the driven.VectorIndex adapters.
//
// Each backend lives in its own subpackage:
//
//   - memory: process-local index for tests and throwaway runs
//   - sqlite: embedded single-file index (modernc.org/sqlite, no CGO)
//   - qdrant: remote Qdrant collection over its REST API
//   - pgvector: PostgreSQL table using the pgvector extension
//
// All backends report cosine distance (lower is closer) and apply
// metadata filters as equality conjunctions.
package vector
