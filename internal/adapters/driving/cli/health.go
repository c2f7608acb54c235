package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
)

var healthJSON bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check backend connectivity",
	Long: `Probes the embedding provider, the vector index and the cache backend.
Exits with an error when the embedding provider or the index is unreachable;
an unreachable cache only degrades the service.`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

func init() {
	healthCmd.Flags().BoolVar(&healthJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	if err := requireRetrieval(); err != nil {
		return err
	}

	report := retrievalService.Health(cmd.Context())

	if healthJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return err
		}
	} else {
		cmd.Printf("Status: %s\n", report.Status)
		for _, c := range report.Components {
			state := "ok"
			if !c.Healthy {
				state = "FAIL"
			}
			if c.Detail != "" {
				cmd.Printf("  %-13s %s (%s)\n", c.Name, state, c.Detail)
			} else {
				cmd.Printf("  %-13s %s\n", c.Name, state)
			}
		}
	}

	if report.Status == domain.HealthUnhealthy {
		return fmt.Errorf("service is %s", report.Status)
	}
	return nil
}
