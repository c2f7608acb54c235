package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
)

var (
	contextMotor     int
	contextObjective string
	contextActivity  string
	contextRequest   string
	contextJSON      bool
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Assemble retrieval context for a consultation",
	Long: `Runs the sub-queries of a consultation strategy and merges their results
into one deduplicated context.

Motor types:
  1  new plan      - first consultation, builds a three-day plan
  2  follow-up     - check-in adjusting an existing plan
  3  substitution  - replaces a specific meal (use --request)`,
	Args: cobra.NoArgs,
	RunE: runContext,
}

func init() {
	contextCmd.Flags().IntVar(&contextMotor, "motor", int(domain.MotorNewPlan), "consultation strategy (1-3)")
	contextCmd.Flags().StringVar(&contextObjective, "objective", "", "patient objective, e.g. \"bajar peso\"")
	contextCmd.Flags().StringVar(&contextActivity, "activity", "", "patient activity level")
	contextCmd.Flags().StringVar(&contextRequest, "request", "", "meal to replace (motor 3)")
	contextCmd.Flags().BoolVar(&contextJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(contextCmd)
}

func runContext(cmd *cobra.Command, _ []string) error {
	if err := requireRetrieval(); err != nil {
		return err
	}

	patient := map[string]string{}
	if contextObjective != "" {
		patient[domain.PatientObjective] = contextObjective
	}
	if contextActivity != "" {
		patient[domain.PatientActivityLevel] = contextActivity
	}

	resp, err := retrievalService.AssembleContext(cmd.Context(), domain.ContextRequest{
		PatientData:     patient,
		MotorType:       domain.MotorType(contextMotor),
		SpecificRequest: contextRequest,
	})
	if err != nil {
		return fmt.Errorf("assembling context: %w", err)
	}

	if contextJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(resp)
	}

	if resp.Context == "" {
		cmd.Println("No context found.")
		return nil
	}
	cmd.Println(resp.Context)
	if len(resp.Recommendations) > 0 {
		cmd.Println("\nRecommendations:")
		for _, r := range resp.Recommendations {
			cmd.Printf("  - %s\n", r)
		}
	}
	if len(resp.RelevantSources) > 0 {
		cmd.Println("\nSources:")
		for _, s := range resp.RelevantSources {
			cmd.Printf("  - %s\n", s)
		}
	}
	return nil
}
