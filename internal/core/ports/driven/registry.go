package driven

import (
	"context"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
)

// NormaliserRegistry selects the appropriate normaliser for a document.
// It maintains a priority-ordered list of normalisers and dispatches
// on the file extension.
type NormaliserRegistry interface {
	// Normalise transforms a raw document using the best matching normaliser.
	// Returns domain.ErrUnsupportedType when no normaliser handles the extension.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// Supports reports whether filename has a handled extension.
	Supports(filename string) bool

	// SupportedExtensions returns all extensions that can be normalised.
	SupportedExtensions() []string
}
