package metadata

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
	"github.com/custodia-labs/nutrirag/internal/core/ports/driven"
)

// Meal type labels.
const (
	MealBreakfast = "desayuno"
	MealLunch     = "almuerzo"
	MealSnack     = "merienda"
	MealDinner    = "cena"
	MealGeneral   = "general"
)

// Difficulty labels.
const (
	DifficultyEasy     = "easy"
	DifficultyModerate = "moderate"
	DifficultyHard     = "hard"
)

// Ensure KeywordClassifier implements the interface.
var _ driven.RecipeClassifier = (*KeywordClassifier)(nil)

type keywordClass struct {
	label string
	// filename matches only on the label itself
	keywords []string
}

// mealClasses are checked in order; the first match wins.
var mealClasses = []keywordClass{
	{MealBreakfast, []string{"desayuno", "mañana", "café", "breakfast"}},
	{MealLunch, []string{"almuerzo", "mediodía", "lunch"}},
	{MealSnack, []string{"merienda", "tarde", "snack"}},
	{MealDinner, []string{"cena", "noche", "dinner"}},
}

var difficultyClasses = []keywordClass{
	{DifficultyEasy, []string{"fácil", "simple", "rápido", "mezclar", "easy", "quick"}},
	{DifficultyModerate, []string{"cocinar", "hornear", "saltear", "cook", "bake"}},
	{DifficultyHard, []string{"complicado", "elaborado", "marinar", "marinate", "elaborate"}},
}

var (
	prepTimePattern = regexp.MustCompile(`(\d+)\s*(minutos?|minutes?|mins?|horas?|hours?|hrs?|hs?)\b`)
	servingsPattern = regexp.MustCompile(`(\d+)\s*(porciones|porción|porcion|personas?|servings?|portions?)`)
)

// KeywordClassifier tags recipes by keyword and pattern matching.
// It is heuristic and makes no accuracy guarantee.
type KeywordClassifier struct{}

// NewKeywordClassifier creates the default recipe classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Classify returns recipe tags for a chunk.
func (k *KeywordClassifier) Classify(text, filename string) domain.RecipeMetadata {
	lower := strings.ToLower(text)
	return domain.RecipeMetadata{
		Type:       domain.RecipeType,
		MealType:   MealType(filename, lower),
		Difficulty: Difficulty(lower),
		PrepTime:   PrepTime(lower),
		Servings:   Servings(lower),
	}
}

// MealType classifies by the filename first, then by keywords in the
// lowercased text. Defaults to MealGeneral.
func MealType(filename, lowerText string) string {
	lowerName := strings.ToLower(filename)
	for _, class := range mealClasses {
		if strings.Contains(lowerName, class.label) || containsAny(lowerText, class.keywords) {
			return class.label
		}
	}
	return MealGeneral
}

// Difficulty classifies by keywords in the lowercased text.
// Defaults to DifficultyModerate.
func Difficulty(lowerText string) string {
	for _, class := range difficultyClasses {
		if containsAny(lowerText, class.keywords) {
			return class.label
		}
	}
	return DifficultyModerate
}

// PrepTime returns the first "<number> <unit>" duration, or "".
func PrepTime(lowerText string) string {
	return prepTimePattern.FindString(lowerText)
}

// Servings returns the number of the first "<number> <portion word>" match, or "".
func Servings(lowerText string) string {
	m := servingsPattern.FindStringSubmatch(lowerText)
	if m == nil {
		return ""
	}
	return m[1]
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
