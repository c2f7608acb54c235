package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show collection statistics",
	Long: `Shows the number of indexed chunks and the categories and sources found
in a bounded sample of the collection.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if err := requireRetrieval(); err != nil {
		return err
	}

	stats, err := retrievalService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}

	if statsJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(stats)
	}

	cmd.Printf("Collection:   %s (%s)\n", stats.Collection, stats.Backend)
	cmd.Printf("Total chunks: %d\n", stats.TotalChunks)
	cmd.Printf("Categories:   %s\n", listOrNone(stats.Categories))
	cmd.Printf("Sources:      %s\n", listOrNone(stats.Sources))
	if stats.SampleSize < stats.TotalChunks {
		cmd.Printf("(categories and sources from a sample of %d chunks)\n", stats.SampleSize)
	}
	return nil
}

func listOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}
