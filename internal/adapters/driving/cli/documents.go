package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
)

var (
	documentsJSON     bool
	documentsCategory string
	documentsForce    bool
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Manage indexed documents",
	Long:  `List, add, delete, or clear indexed documents.`,
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsAddCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Index a single file",
	Long: `Extracts, chunks and indexes one file, replacing any chunks previously
indexed for the same category and file name.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentsAdd,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [document-id]",
	Short: "Remove a document from the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

var documentsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every document from the index",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsClear,
}

func init() {
	documentsListCmd.Flags().BoolVar(&documentsJSON, "json", false, "output as JSON")
	documentsAddCmd.Flags().StringVarP(&documentsCategory, "category", "c", domain.DefaultUploadCategory,
		"document category")
	documentsClearCmd.Flags().BoolVarP(&documentsForce, "force", "f", false, "confirm clearing the collection")

	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsAddCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	documentsCmd.AddCommand(documentsClearCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	if err := requireRetrieval(); err != nil {
		return err
	}

	docs, err := retrievalService.ListDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	if documentsJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCATEGORY\tCHUNKS\tSIZE")
	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", d.DocumentID, d.Category, d.Chunks, d.SizeBytes)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	cmd.Printf("\n%d documents\n", len(docs))
	return nil
}

func runDocumentsAdd(cmd *cobra.Command, args []string) error {
	if err := requireRetrieval(); err != nil {
		return err
	}

	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	info, err := retrievalService.IngestDocument(cmd.Context(), domain.DocumentUpload{
		Filename: filepath.Base(path),
		Category: documentsCategory,
		Content:  content,
	})
	if err != nil {
		return fmt.Errorf("indexing %s: %w", path, err)
	}

	cmd.Printf("Indexed %s as %s (%d chunks, %d bytes)\n",
		info.Filename, info.DocumentID, info.Chunks, info.SizeBytes)
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	if err := requireRetrieval(); err != nil {
		return err
	}

	deleted, err := retrievalService.DeleteDocument(cmd.Context(), args[0])
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("document %s is not indexed", args[0])
	}
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	cmd.Printf("Deleted %s (%d chunks)\n", args[0], deleted)
	return nil
}

func runDocumentsClear(cmd *cobra.Command, _ []string) error {
	if err := requireRetrieval(); err != nil {
		return err
	}
	if !documentsForce {
		return errors.New("refusing to clear the collection without --force")
	}

	if err := retrievalService.Clear(cmd.Context()); err != nil {
		return fmt.Errorf("clearing collection: %w", err)
	}

	cmd.Println("Collection cleared.")
	return nil
}
