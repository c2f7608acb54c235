package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
)

var (
	ingestMode      string
	ingestBatchSize int
	ingestExclude   []string
	ingestJSON      bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [corpus-dir]",
	Short: "Index the document corpus",
	Long: `Walks the corpus directory and indexes every supported file
(.txt, .md, .docx, .html). The category of a document is the name of the
directory that contains it.

In full mode (default) the collection is cleared and rebuilt: searches
running at the same time may see a partially rebuilt index. Incremental
mode replaces only the documents found on disk and removes documents that
no longer exist.

When no directory is given, corpus.root from the config file is used.
Paths matching --exclude (or corpus.exclude) glob patterns are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestMode, "mode", "m", string(domain.IngestModeFull), "full or incremental")
	ingestCmd.Flags().IntVar(&ingestBatchSize, "batch-size", 0, "chunks per index upsert (0 = configured)")
	ingestCmd.Flags().StringSliceVar(&ingestExclude, "exclude", nil, "glob patterns to skip, e.g. 'borradores/**'")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := requireRetrieval(); err != nil {
		return err
	}

	root, err := corpusRoot(args)
	if err != nil {
		return err
	}

	if !ingestJSON {
		cmd.Printf("Indexing %s (%s)...\n", root, ingestMode)
	}
	report, err := runIngestOnce(cmd.Context(), root, domain.IngestMode(ingestMode))
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if ingestJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}
	printIngestReport(cmd, report)
	return nil
}

func runIngestOnce(ctx context.Context, root string, mode domain.IngestMode) (*domain.IngestReport, error) {
	return retrievalService.Ingest(ctx, root, domain.IngestOptions{
		Mode:      mode,
		BatchSize: ingestBatchSize,
		Exclude:   excludePatterns(),
	})
}

// excludePatterns returns the --exclude flag, or corpus.exclude from settings.
func excludePatterns() []string {
	if len(ingestExclude) > 0 || settingsService == nil {
		return ingestExclude
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil
	}
	return settings.Corpus.Exclude
}

// corpusRoot returns the directory argument, or the configured corpus root.
func corpusRoot(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if err := requireSettings(); err != nil {
		return "", err
	}
	settings, err := settingsService.Get()
	if err != nil {
		return "", fmt.Errorf("loading settings: %w", err)
	}
	return settings.Corpus.Root, nil
}

func printIngestReport(cmd *cobra.Command, report *domain.IngestReport) {
	cmd.Printf("Indexed %d documents (%d chunks, %d batches) in %s\n",
		report.DocumentsIndexed, report.ChunksIndexed, report.Batches, report.Duration.Round(time.Millisecond))
	if report.DocumentsRemoved > 0 {
		cmd.Printf("Removed %d documents no longer on disk\n", report.DocumentsRemoved)
	}
	if len(report.Skipped) > 0 {
		cmd.Printf("Skipped %d files:\n", len(report.Skipped))
		for _, s := range report.Skipped {
			cmd.Printf("  %s: %s\n", s.Path, s.Reason)
		}
	}
}
