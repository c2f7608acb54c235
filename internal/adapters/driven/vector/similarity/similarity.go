// Package similarity provides the vector math shared by index backends
// that rank candidates in Go.
package similarity

import (
	"math"
	"sort"

	"github.com/custodia-labs/nutrirag/internal/core/ports/driven"
)

// CosineDistance returns 1 - cos(a, b).
// Vectors of different length or zero norm are treated as orthogonal.
func CosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		na += av * av
		nb += bv * bv
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// SortMatches orders matches by ascending distance, breaking ties by ID.
func SortMatches(matches []driven.VectorMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})
}

// TopK sorts matches and truncates them to at most k entries.
func TopK(matches []driven.VectorMatch, k int) []driven.VectorMatch {
	SortMatches(matches)
	if k >= 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
