// Package domain defines the core business entities for nutrirag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A source file of the nutrition corpus
//   - Chunk: A bounded segment of a document, the unit of embedding and retrieval
//   - Metadata: Structured tags attached to every chunk
//   - SearchResult: A ranked hit returned by the vector index
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
