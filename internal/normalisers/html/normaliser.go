package html

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
	"github.com/custodia-labs/nutrirag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const (
	invisibleSelector = "head, script, style, noscript, svg, template"
	blockSelector     = "p, div, h1, h2, h3, h4, h5, h6, li, tr, td, th, blockquote, pre, table, section, article, main, hr"
)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns the extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".html", ".htm"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Format-specific normaliser, higher than plaintext
}

// Normalise converts an HTML document to plain text, one block per line.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	text, err := extractText(raw.Content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", raw.Filename, err)
	}

	return &driven.NormaliseResult{
		Document: raw.ToDocument(text, time.Now()),
	}, nil
}

// extractText returns the readable text of an HTML page. Main or article
// content wins over the whole body when present.
func extractText(content []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", err
	}

	doc.Find(invisibleSelector).Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		s.BeforeHtml("\n")
		s.AfterHtml("\n")
	})

	sel := doc.Find("main, article")
	if sel.Length() == 0 {
		sel = doc.Find("body")
	}
	return cleanLines(sel.Text()), nil
}

// cleanLines collapses runs of spaces, trims each line and drops empty ones.
func cleanLines(s string) string {
	s = strings.ReplaceAll(s, "\r", "")

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
