package normalisers

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
	"github.com/custodia-labs/nutrirag/internal/core/ports/driven"
	"github.com/custodia-labs/nutrirag/internal/normalisers/docx"
	"github.com/custodia-labs/nutrirag/internal/normalisers/html"
	"github.com/custodia-labs/nutrirag/internal/normalisers/markdown"
	"github.com/custodia-labs/nutrirag/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches raw documents to normalisers by file extension.
// When several normalisers claim an extension the highest priority wins.
type Registry struct {
	mu          sync.RWMutex
	byExtension map[string][]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byExtension: make(map[string][]driven.Normaliser),
	}
}

// NewDefaultRegistry creates a registry with the built-in normalisers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(docx.New())
	r.Register(html.New())
	return r
}

// Register adds a normaliser for each extension it supports.
func (r *Registry) Register(normaliser driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ext := range normaliser.SupportedExtensions() {
		ext = strings.ToLower(ext)
		list := append(r.byExtension[ext], normaliser)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byExtension[ext] = list
	}
}

// Normalise transforms raw with the preferred normaliser for its extension.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	n := r.lookup(raw.Filename)
	if n == nil {
		return nil, fmt.Errorf("%s: %w", raw.Filename, domain.ErrUnsupportedType)
	}
	return n.Normalise(ctx, raw)
}

// Supports reports whether filename has a registered extension.
func (r *Registry) Supports(filename string) bool {
	return r.lookup(filename) != nil
}

// SupportedExtensions returns all registered extensions in sorted order.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.byExtension))
	for ext := range r.byExtension {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func (r *Registry) lookup(filename string) driven.Normaliser {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if list := r.byExtension[ext]; len(list) > 0 {
		return list[0]
	}
	return nil
}
