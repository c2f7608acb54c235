package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
)

var (
	configModel  string
	configAPIKey string
	configDSN    string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage application settings",
	Long: `View and change the settings stored in the config file. Environment
variables such as OPENAI_API_KEY and REDIS_URL override stored values.`,
	Annotations: map[string]string{annotationServices: servicesSettings},
	RunE:        runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show current settings",
	Annotations: map[string]string{annotationServices: servicesSettings},
	RunE:        runConfigShow,
}

var configProviderCmd = &cobra.Command{
	Use:         "set-provider [ollama|openai]",
	Short:       "Set the embedding provider",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationServices: servicesSettings},
	RunE:        runConfigProvider,
}

var configVectorCmd = &cobra.Command{
	Use:         "set-vector [memory|sqlite|qdrant|pgvector]",
	Short:       "Set the vector index backend",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationServices: servicesSettings},
	RunE:        runConfigVector,
}

var configValidateCmd = &cobra.Command{
	Use:         "validate",
	Short:       "Validate settings and test the embedding provider",
	Annotations: map[string]string{annotationServices: servicesSettings},
	RunE:        runConfigValidate,
}

func init() {
	configProviderCmd.Flags().StringVar(&configModel, "model", "", "embedding model (default per provider)")
	configProviderCmd.Flags().StringVar(&configAPIKey, "api-key", "", "provider API key")
	configVectorCmd.Flags().StringVar(&configDSN, "dsn", "", "database path, URL or connection string")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configProviderCmd)
	configCmd.AddCommand(configVectorCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	cmd.Println("Embedding:")
	cmd.Printf("  Provider:   %s\n", settings.Embedding.Provider)
	cmd.Printf("  Model:      %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL:   %s\n", settings.Embedding.BaseURL)
	}
	cmd.Printf("  API key:    %s\n", maskKey(settings.Embedding.APIKey))
	cmd.Println("Vector index:")
	cmd.Printf("  Backend:    %s\n", settings.Vector.Backend)
	cmd.Printf("  DSN:        %s\n", settings.Vector.DSN)
	cmd.Printf("  Collection: %s\n", settings.Vector.Collection)
	cmd.Printf("  Dimensions: %d\n", settings.Vector.Dimensions)
	cmd.Println("Cache:")
	cmd.Printf("  Backend:    %s\n", settings.Cache.Backend)
	cmd.Printf("  TTL:        %s\n", settings.Cache.TTL)
	cmd.Println("Chunking:")
	cmd.Printf("  Policy:     %s\n", settings.Chunking.Policy)
	cmd.Printf("  Size:       %d (overlap %d)\n", settings.Chunking.ChunkSize, settings.Chunking.Overlap)
	cmd.Println("Corpus:")
	cmd.Printf("  Root:       %s\n", settings.Corpus.Root)
	if len(settings.Corpus.Exclude) > 0 {
		cmd.Printf("  Exclude:    %s\n", strings.Join(settings.Corpus.Exclude, ", "))
	}
	return nil
}

func runConfigProvider(cmd *cobra.Command, args []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	provider := domain.AIProvider(args[0])
	if err := settingsService.SetEmbeddingProvider(provider, configModel, configAPIKey); err != nil {
		return fmt.Errorf("setting provider: %w", err)
	}

	cmd.Printf("Embedding provider set to %s\n", provider)
	return nil
}

func runConfigVector(cmd *cobra.Command, args []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	backend := domain.VectorBackend(args[0])
	if err := settingsService.SetVectorBackend(backend, configDSN); err != nil {
		return fmt.Errorf("setting vector backend: %w", err)
	}

	cmd.Printf("Vector backend set to %s\n", backend)
	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	if err := settingsService.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if err := settingsService.ValidateEmbeddingConfig(cmd.Context()); err != nil {
		return fmt.Errorf("embedding provider check failed: %w", err)
	}
	cmd.Println("Settings are valid.")
	return nil
}

// maskKey shows only the last four characters of a secret.
func maskKey(key string) string {
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 4:
		return "****"
	default:
		return "****" + key[len(key)-4:]
	}
}
