package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
	"github.com/custodia-labs/nutrirag/internal/core/ports/driven"
	"github.com/custodia-labs/nutrirag/internal/postprocessors/chunker"
	"github.com/custodia-labs/nutrirag/internal/postprocessors/metadata"
)

// Processor names.
const (
	ChunkerName  = "chunker"
	MetadataName = "metadata"
)

// Deps carries collaborators that built-in processors may need.
type Deps struct {
	// Tokenizer is required by the token chunking policy.
	Tokenizer driven.Tokenizer

	// Classifier replaces the keyword recipe classifier when set.
	Classifier driven.RecipeClassifier
}

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry, deps Deps) {
	r.Register(ChunkerName, buildChunker(deps))
	r.Register(MetadataName, buildMetadata(deps))
}

// DefaultPipelineConfig returns the processor chain for the given settings:
// chunking followed by metadata tagging.
func DefaultPipelineConfig(s domain.AppSettings) ([]string, map[string]map[string]any) {
	return []string{ChunkerName, MetadataName}, map[string]map[string]any{
		ChunkerName: {
			"policy":          string(s.Chunking.Policy),
			"chunk_size":      s.Chunking.ChunkSize,
			"overlap":         s.Chunking.Overlap,
			"min_chunk_chars": s.Chunking.MinChunkChars,
		},
		MetadataName: {
			"recipe_categories": s.Retrieval.RecipeCategories,
		},
	}
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - policy (string): "token" or "character" (default: character)
//   - chunk_size (int): Units per chunk (default: 500)
//   - overlap (int): Overlapping units between chunks (default: 50)
//   - min_chunk_chars (int): Minimum trimmed chunk length (default: 20)
func buildChunker(deps Deps) BuilderFunc {
	return func(cfg map[string]any) (driven.PostProcessor, error) {
		var opts []chunker.Option

		if size := getIntFromConfig(cfg, "chunk_size"); size > 0 {
			opts = append(opts, chunker.WithChunkSize(size))
		}
		if _, ok := cfg["overlap"]; ok {
			opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
		}
		if _, ok := cfg["min_chunk_chars"]; ok {
			opts = append(opts, chunker.WithMinChunkChars(getIntFromConfig(cfg, "min_chunk_chars")))
		}

		policy, _ := cfg["policy"].(string)
		switch domain.ChunkingPolicy(policy) {
		case domain.ChunkingPolicyToken:
			tok, err := chunker.NewToken(deps.Tokenizer, opts...)
			if err != nil {
				return nil, err
			}
			return chunker.New(tok), nil
		case domain.ChunkingPolicyCharacter, "":
			return chunker.New(chunker.NewCharacter(opts...)), nil
		default:
			return nil, fmt.Errorf("chunking policy %q: %w", policy, domain.ErrUnsupportedType)
		}
	}
}

// buildMetadata creates the metadata tagging processor.
// Supported config keys:
//   - recipe_categories ([]string): Categories that receive recipe tags
func buildMetadata(deps Deps) BuilderFunc {
	return func(cfg map[string]any) (driven.PostProcessor, error) {
		var opts []metadata.Option
		if categories, ok := getStringSliceFromConfig(cfg, "recipe_categories"); ok {
			opts = append(opts, metadata.WithRecipeCategories(categories...))
		}
		if deps.Classifier != nil {
			opts = append(opts, metadata.WithClassifier(deps.Classifier))
		}
		return metadata.New(opts...), nil
	}
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// getStringSliceFromConfig extracts a string slice, accepting []any from TOML parsing.
func getStringSliceFromConfig(cfg map[string]any, key string) ([]string, bool) {
	switch v := cfg[key].(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	default:
		return nil, false
	}
}
