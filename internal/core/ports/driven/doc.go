// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - EmbeddingService: Generates vector embeddings (OpenAI, Ollama)
//   - VectorIndex: Stores chunks and answers filtered nearest-neighbour queries
//   - Chunker: Splits document text into overlapping segments
//   - MetadataExtractor: Tags chunks with structured metadata
//   - NormaliserRegistry: Extracts text from raw files by extension
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - CacheBackend: Result cache storage. Without it every search is uncached.
//   - Tokenizer: Only needed by the token chunking policy.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
