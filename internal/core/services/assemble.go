package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
)

// Context assembly limits.
const (
	maxRecommendations = 5
	excerptRunes       = 200
	defaultObjective   = "mantener"
)

// recipeMarkers flag chunks worth surfacing as recommendations.
var recipeMarkers = []string{"preparación:", "macros:"}

// SubQueries returns the queries issued for req, in order. The first one is
// built from the patient attributes; the rest depend on the strategy.
func SubQueries(req domain.ContextRequest) []string {
	objective := req.Patient(domain.PatientObjective)
	queries := []string{
		joinQuery("plan alimentario", objective, req.Patient(domain.PatientActivityLevel)),
	}

	switch req.MotorType {
	case domain.MotorNewPlan:
		mealObjective := objective
		if mealObjective == "" {
			mealObjective = defaultObjective
		}
		queries = append(queries,
			"plan alimentario nuevo paciente tres dias",
			joinQuery("desayuno almuerzo cena", mealObjective),
			"macronutrientes equilibrados proteina carbohidratos",
		)
	case domain.MotorFollowUp:
		queries = append(queries,
			"control plan alimentario ajustes",
			"seguimiento nutricion modificaciones",
		)
	case domain.MotorSubstitution:
		queries = append(queries,
			joinQuery("reemplazo", req.SpecificRequest),
			"alternativas comida equivalente",
		)
	}
	return queries
}

func joinQuery(parts ...string) string {
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// AssembleContext runs the sub-queries of the requested strategy and
// merges them into one deduplicated, ranked context. Any sub-query
// failure fails the whole assembly.
func (s *RetrievalService) AssembleContext(ctx context.Context, req domain.ContextRequest) (*domain.ContextResponse, error) {
	ctx, span := tracer.Start(ctx, "retrieval.assemble_context")
	defer span.End()

	if err := req.Validate(); err != nil {
		recordSpanError(span, err)
		s.metrics.ObserveContext(req.MotorType.String(), err)
		return nil, err
	}

	queries := SubQueries(req)
	span.SetAttributes(
		attribute.String("context.motor", req.MotorType.String()),
		attribute.Int("context.sub_queries", len(queries)),
		attribute.Bool("context.parallel", s.settings.ParallelContext),
	)

	perQuery, err := s.runSubQueries(ctx, queries)
	s.metrics.ObserveContext(req.MotorType.String(), err)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	pool := mergeResults(perQuery, s.settings.PoolSize)

	texts := make([]string, 0, min(len(pool), s.settings.FinalK))
	for _, r := range pool[:min(len(pool), s.settings.FinalK)] {
		texts = append(texts, r.Text)
	}

	return &domain.ContextResponse{
		Context:         strings.Join(texts, domain.ContextSeparator),
		Recommendations: recommendations(pool),
		RelevantSources: distinctSources(pool),
		SubQueries:      queries,
	}, nil
}

// runSubQueries issues every query with PerQueryK results. Results land in
// per-query slots so parallel and sequential runs merge identically.
func (s *RetrievalService) runSubQueries(ctx context.Context, queries []string) ([][]domain.SearchResult, error) {
	perQuery := make([][]domain.SearchResult, len(queries))

	if !s.settings.ParallelContext {
		for i, q := range queries {
			results, err := s.query(ctx, q, s.settings.PerQueryK, nil)
			if err != nil {
				return nil, fmt.Errorf("sub-query %q: %w", q, err)
			}
			perQuery[i] = results
		}
		return perQuery, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			results, err := s.query(gctx, q, s.settings.PerQueryK, nil)
			if err != nil {
				return fmt.Errorf("sub-query %q: %w", q, err)
			}
			perQuery[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return perQuery, nil
}

// mergeResults concatenates result lists in order, drops later duplicates of
// the same text, sorts by ascending distance and keeps at most limit entries.
func mergeResults(perQuery [][]domain.SearchResult, limit int) []domain.SearchResult {
	seen := make(map[string]bool)
	var merged []domain.SearchResult
	for _, results := range perQuery {
		for _, r := range results {
			if seen[r.Text] {
				continue
			}
			seen[r.Text] = true
			merged = append(merged, r)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Distance < merged[j].Distance
	})
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func recommendations(pool []domain.SearchResult) []string {
	recs := []string{}
	for _, r := range pool {
		if len(recs) == maxRecommendations {
			break
		}
		lower := strings.ToLower(r.Text)
		for _, marker := range recipeMarkers {
			if strings.Contains(lower, marker) {
				recs = append(recs, excerpt(r.Text))
				break
			}
		}
	}
	return recs
}

// excerpt returns the first excerptRunes runes of text followed by "...".
func excerpt(text string) string {
	if utf8.RuneCountInString(text) <= excerptRunes {
		return text + "..."
	}
	return string([]rune(text)[:excerptRunes]) + "..."
}

func distinctSources(pool []domain.SearchResult) []string {
	set := make(map[string]bool)
	for _, r := range pool {
		if r.Metadata.Source != "" {
			set[r.Metadata.Source] = true
		}
	}
	return sortedKeys(set)
}
