package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/nutrirag/internal/connectors/filesystem"
	"github.com/custodia-labs/nutrirag/internal/core/domain"
)

var (
	watchDebounce time.Duration
	watchInitial  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [corpus-dir]",
	Short: "Re-index the corpus when files change",
	Long: `Watches the corpus directory and runs an incremental ingest after each
burst of file changes. Runs until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 2*time.Second, "quiet period before re-indexing")
	watchCmd.Flags().BoolVar(&watchInitial, "initial", true, "run an incremental ingest on start")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := requireRetrieval(); err != nil {
		return err
	}

	root, err := corpusRoot(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	watcher := filesystem.New(root)
	changes, err := watcher.Watch(ctx)
	if err != nil {
		return err
	}
	defer watcher.Close()

	if watchInitial {
		if err := reindex(cmd, root); err != nil {
			return err
		}
	}

	cmd.Printf("Watching %s for changes (Ctrl+C to stop)...\n", root)
	for batch := range filesystem.Debounce(ctx, changes, watchDebounce) {
		cmd.Printf("%d changes detected\n", len(batch))
		if err := reindex(cmd, root); err != nil {
			// Keep watching: the next change may fix the corpus.
			cmd.PrintErrf("Re-index failed: %v\n", err)
		}
	}
	return nil
}

func reindex(cmd *cobra.Command, root string) error {
	report, err := runIngestOnce(cmd.Context(), root, domain.IngestModeIncremental)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printIngestReport(cmd, report)
	return nil
}
