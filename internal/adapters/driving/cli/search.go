package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
)

// previewRunes bounds the chunk text shown per result in table output.
const previewRunes = 160

var (
	searchLimit    int
	searchCategory string
	searchNoCache  bool
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Runs a semantic search over the indexed corpus. The query is embedded
and compared against every chunk by cosine distance; results are cached
for repeated queries unless --no-cache is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", domain.DefaultResults, "number of results (1-20)")
	searchCmd.Flags().StringVarP(&searchCategory, "category", "c", "", "restrict results to a category")
	searchCmd.Flags().BoolVar(&searchNoCache, "no-cache", false, "bypass the result cache")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := requireRetrieval(); err != nil {
		return err
	}

	limit := searchLimit
	if !cmd.Flags().Changed("limit") {
		if n := configuredResults(); n > 0 {
			limit = n
		}
	}

	resp, err := retrievalService.Search(cmd.Context(), domain.SearchRequest{
		Query:          args[0],
		NResults:       limit,
		CategoryFilter: searchCategory,
		UseCache:       !searchNoCache,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, resp)
	}
	return outputSearchTable(cmd, resp)
}

// configuredResults returns retrieval.default_results, or 0 when settings are unavailable.
func configuredResults() int {
	if settingsService == nil {
		return 0
	}
	settings, err := settingsService.Get()
	if err != nil {
		return 0
	}
	return settings.Retrieval.DefaultResults
}

func outputSearchJSON(cmd *cobra.Command, resp *domain.SearchResponse) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}

func outputSearchTable(cmd *cobra.Command, resp *domain.SearchResponse) error {
	if len(resp.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	source := "index"
	if resp.Cached {
		source = "cache"
	}
	cmd.Printf("Results: %d (from %s, %.3fs)\n\n", len(resp.Results), source, resp.QueryTimeSeconds)

	for i, r := range resp.Results {
		cmd.Printf("%d. [%.3f] %s (%s)\n", i+1, r.Score, r.Metadata.Source, r.Metadata.Category)
		if r.Metadata.IsRecipe() && r.Metadata.MealType != "" {
			cmd.Printf("   meal: %s", r.Metadata.MealType)
			if r.Metadata.PrepTime != "" {
				cmd.Printf(", %s", r.Metadata.PrepTime)
			}
			cmd.Println()
		}
		cmd.Printf("   %s\n\n", preview(r.Text, previewRunes))
	}
	return nil
}

// preview flattens whitespace and truncates text to limit runes.
func preview(text string, limit int) string {
	flat := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(flat) <= limit {
		return flat
	}
	runes := []rune(flat)
	return string(runes[:limit]) + "..."
}
