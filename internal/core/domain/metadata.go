package domain

import (
	"strconv"
)

// Metadata keys. These are the names used on the wire, in storage
// backends and in metadata filters.
const (
	MetaSource      = "source"
	MetaCategory    = "category"
	MetaDocumentID  = "document_id"
	MetaChunkIndex  = "chunk_index"
	MetaTotalChunks = "total_chunks"
	MetaTimestamp   = "timestamp"
	MetaFilePath    = "file_path"
	MetaSizeBytes   = "size_bytes"
	MetaType        = "type"
	MetaMealType    = "meal_type"
	MetaDifficulty  = "difficulty"
	MetaPrepTime    = "prep_time"
	MetaServings    = "servings"
)

// RecipeType is the value of the "type" key on recipe chunks.
const RecipeType = "recipe"

// Metadata is the set of tags attached to a Chunk.
// Source and Category are always present. Recipe fields are only set
// when the owning chunk's category triggers recipe extraction.
type Metadata struct {
	Source      string `json:"source"`
	Category    string `json:"category"`
	DocumentID  string `json:"document_id"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks,omitempty"`
	Timestamp   string `json:"timestamp"`
	FilePath    string `json:"file_path,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`

	*RecipeMetadata
}

// RecipeMetadata holds the heuristic recipe tags.
type RecipeMetadata struct {
	Type       string `json:"type"`
	MealType   string `json:"meal_type"`
	Difficulty string `json:"difficulty"`
	PrepTime   string `json:"prep_time,omitempty"`
	Servings   string `json:"servings,omitempty"`
}

// IsRecipe reports whether recipe tags are attached.
func (m Metadata) IsRecipe() bool {
	return m.RecipeMetadata != nil
}

// Get returns the string form of the value stored under key.
// The boolean is false when the key is unknown or unset.
func (m Metadata) Get(key string) (string, bool) {
	switch key {
	case MetaSource:
		return m.Source, true
	case MetaCategory:
		return m.Category, true
	case MetaDocumentID:
		return m.DocumentID, true
	case MetaChunkIndex:
		return strconv.Itoa(m.ChunkIndex), true
	case MetaTotalChunks:
		return strconv.Itoa(m.TotalChunks), m.TotalChunks > 0
	case MetaTimestamp:
		return m.Timestamp, m.Timestamp != ""
	case MetaFilePath:
		return m.FilePath, m.FilePath != ""
	case MetaSizeBytes:
		return strconv.FormatInt(m.SizeBytes, 10), m.SizeBytes > 0
	}

	if m.RecipeMetadata == nil {
		return "", false
	}
	switch key {
	case MetaType:
		return m.Type, true
	case MetaMealType:
		return m.MealType, true
	case MetaDifficulty:
		return m.Difficulty, true
	case MetaPrepTime:
		return m.PrepTime, m.PrepTime != ""
	case MetaServings:
		return m.Servings, m.Servings != ""
	}
	return "", false
}

// Fields returns the metadata as a flat map, omitting unset optional keys.
// Storage backends that keep metadata as key/value payloads use this form.
func (m Metadata) Fields() map[string]any {
	fields := map[string]any{
		MetaSource:     m.Source,
		MetaCategory:   m.Category,
		MetaDocumentID: m.DocumentID,
		MetaChunkIndex: m.ChunkIndex,
		MetaTimestamp:  m.Timestamp,
	}
	if m.TotalChunks > 0 {
		fields[MetaTotalChunks] = m.TotalChunks
	}
	if m.FilePath != "" {
		fields[MetaFilePath] = m.FilePath
	}
	if m.SizeBytes > 0 {
		fields[MetaSizeBytes] = m.SizeBytes
	}
	if m.RecipeMetadata != nil {
		fields[MetaType] = m.Type
		fields[MetaMealType] = m.MealType
		fields[MetaDifficulty] = m.Difficulty
		if m.PrepTime != "" {
			fields[MetaPrepTime] = m.PrepTime
		}
		if m.Servings != "" {
			fields[MetaServings] = m.Servings
		}
	}
	return fields
}

// filterableKeys lists the keys a Filter may reference.
var filterableKeys = map[string]bool{
	MetaSource:     true,
	MetaCategory:   true,
	MetaDocumentID: true,
	MetaType:       true,
	MetaMealType:   true,
	MetaDifficulty: true,
}

// IsFilterableKey reports whether key may be used in a Filter.
func IsFilterableKey(key string) bool {
	return filterableKeys[key]
}

// Filter is a conjunction of metadata equality predicates.
// An empty filter matches every chunk.
type Filter map[string]string

// CategoryFilter returns a filter on the category key, or nil when category is empty.
func CategoryFilter(category string) Filter {
	if category == "" {
		return nil
	}
	return Filter{MetaCategory: category}
}

// Matches reports whether m satisfies every predicate.
func (f Filter) Matches(m Metadata) bool {
	for key, want := range f {
		got, ok := m.Get(key)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// Validate checks that every key is filterable.
func (f Filter) Validate() error {
	for key := range f {
		if !IsFilterableKey(key) {
			return &ValidationError{Field: "filter", Reason: "unsupported metadata key " + strconv.Quote(key)}
		}
	}
	return nil
}
