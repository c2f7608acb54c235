// Package file provides the TOML configuration store.
//
// Keys are addressed in dot notation ("embedding.provider"). Nested TOML
// tables are flattened on load and rebuilt on save, so the file on disk
// stays hand-editable:
//
//	[embedding]
//	provider = "openai"
//	model = "text-embedding-3-small"
//
//	[vector]
//	backend = "sqlite"
//	dsn = "nutrirag.db"
package file
