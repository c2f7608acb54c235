// Package cli provides the nutrirag command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/nutrirag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/nutrirag/internal/adapters/driven/factory"
	"github.com/custodia-labs/nutrirag/internal/adapters/driven/tokenizer/tiktoken"
	"github.com/custodia-labs/nutrirag/internal/core/domain"
	"github.com/custodia-labs/nutrirag/internal/core/ports/driving"
	"github.com/custodia-labs/nutrirag/internal/core/services"
	"github.com/custodia-labs/nutrirag/internal/logger"
	"github.com/custodia-labs/nutrirag/internal/metrics"
	"github.com/custodia-labs/nutrirag/internal/normalisers"
	"github.com/custodia-labs/nutrirag/internal/postprocessors"
)

// Service levels a command can request from bootstrap.
const (
	annotationServices = "services"
	servicesNone       = "none"
	servicesSettings   = "settings"
)

var (
	// version is set at build time with -ldflags "-X ...cli.version=...".
	version = "dev"

	verbose    bool
	configPath string
	envFile    string

	settingsService  driving.SettingsService
	retrievalService driving.RetrievalService
	appMetrics       *metrics.Metrics
	closeBackends    func() error

	// bootstrap wires services before a command runs. Tests replace it.
	bootstrap = wireServices
)

var rootCmd = &cobra.Command{
	Use:   "nutrirag",
	Short: "Retrieval over a nutrition document corpus",
	Long: `nutrirag indexes a folder of nutrition documents (recipes, guides,
meal plans) into a vector index and answers semantic queries over it.

It also assembles retrieval context for nutrition consultations and can
serve both capabilities to AI assistants over MCP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		return bootstrap(cmd.Context(), cmd.Annotations[annotationServices])
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.nutrirag/config.toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with provider keys, skipped when missing")
}

// Execute runs the root command, cancelling on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer shutdown()

	return rootCmd.ExecuteContext(ctx)
}

// wireServices builds the services a command needs. Commands annotated
// with servicesNone skip wiring; servicesSettings only loads configuration.
func wireServices(ctx context.Context, level string) error {
	if level == servicesNone {
		return nil
	}

	if settingsService == nil {
		if err := loadEnvFile(envFile); err != nil {
			return err
		}
		store, err := openConfigStore(configPath)
		if err != nil {
			return err
		}
		settingsService = services.NewSettingsService(store,
			services.WithEmbeddingValidator(factory.Validator{}))
	}
	if level == servicesSettings || retrievalService != nil {
		return nil
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if err := services.ValidateSettings(settings); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	svc, closer, m, err := buildRetrieval(ctx, *settings)
	if err != nil {
		return err
	}
	retrievalService = svc
	closeBackends = closer
	appMetrics = m
	return nil
}

// loadEnvFile exports the variables in path. Variables already set in the
// environment win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	logger.Debug("loaded environment from %s", path)
	return nil
}

func openConfigStore(path string) (*file.ConfigStore, error) {
	if path != "" {
		return file.Open(path)
	}
	return file.NewConfigStore("")
}

// buildRetrieval connects the configured backends and assembles the
// retrieval service on top of them.
func buildRetrieval(
	ctx context.Context,
	settings domain.AppSettings,
) (*services.RetrievalService, func() error, *metrics.Metrics, error) {
	backends, err := factory.Build(ctx, settings)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connecting backends: %w", err)
	}

	pipeline, err := buildPipeline(settings)
	if err != nil {
		_ = backends.Close()
		return nil, nil, nil, err
	}

	m := metrics.New()
	svc := services.NewRetrievalService(
		backends.Embedding,
		backends.Index,
		normalisers.NewDefaultRegistry(),
		pipeline,
		settings.Retrieval,
		services.WithResultCache(backends.Cache, settings.Cache),
		services.WithMetrics(m),
	)
	return svc, backends.Close, m, nil
}

// buildPipeline creates the chunking and metadata pipeline for settings.
func buildPipeline(settings domain.AppSettings) (*postprocessors.Pipeline, error) {
	deps := postprocessors.Deps{}
	if settings.Chunking.Policy == domain.ChunkingPolicyToken {
		tok, err := tiktoken.ForModel(settings.Embedding.Model)
		if err != nil {
			return nil, fmt.Errorf("loading tokenizer: %w", err)
		}
		deps.Tokenizer = tok
	}

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry, deps)
	names, cfgs := postprocessors.DefaultPipelineConfig(settings)
	pipeline, err := registry.BuildPipeline(names, cfgs)
	if err != nil {
		return nil, fmt.Errorf("building pipeline: %w", err)
	}
	return pipeline, nil
}

// shutdown releases backend connections opened by wireServices.
func shutdown() {
	if closeBackends == nil {
		return
	}
	if err := closeBackends(); err != nil {
		logger.Warn("closing backends: %v", err)
	}
	closeBackends = nil
}

func requireRetrieval() error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}
	return nil
}

func requireSettings() error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return nil
}
