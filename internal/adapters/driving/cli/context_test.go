package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
)

func TestContextCmd_Flags(t *testing.T) {
	motor := contextCmd.Flags().Lookup("motor")
	require.NotNil(t, motor)
	assert.Equal(t, "1", motor.DefValue)
	assert.NotNil(t, contextCmd.Flags().Lookup("objective"))
	assert.NotNil(t, contextCmd.Flags().Lookup("activity"))
	assert.NotNil(t, contextCmd.Flags().Lookup("request"))
}

func TestContextCmd_BuildsRequest(t *testing.T) {
	retrieval, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "context", "--motor", "3", "--objective", "bajar peso",
		"--activity", "moderado", "--request", "cena")

	require.NoError(t, err)
	req := retrieval.lastContext
	assert.Equal(t, domain.MotorSubstitution, req.MotorType)
	assert.Equal(t, "bajar peso", req.Patient(domain.PatientObjective))
	assert.Equal(t, "moderado", req.Patient(domain.PatientActivityLevel))
	assert.Equal(t, "cena", req.SpecificRequest)
}

func TestContextCmd_OmitsEmptyPatientFields(t *testing.T) {
	retrieval, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "context")

	require.NoError(t, err)
	assert.Empty(t, retrieval.lastContext.PatientData)
	assert.Equal(t, domain.MotorNewPlan, retrieval.lastContext.MotorType)
}

func TestContextCmd_PrintsContext(t *testing.T) {
	retrieval, _, cleanup := setupTestServices()
	defer cleanup()
	retrieval.contextResp = &domain.ContextResponse{
		Context:         "Plan de tres días" + domain.ContextSeparator + "Desayuno: avena",
		Recommendations: []string{"Preparación: cocer la avena..."},
		RelevantSources: []string{"plan_basico.txt", "recetas.md"},
	}

	out, err := execute(t, "context")

	require.NoError(t, err)
	assert.Contains(t, out, "Plan de tres días")
	assert.Contains(t, out, "---")
	assert.Contains(t, out, "Recommendations:")
	assert.Contains(t, out, "  - Preparación: cocer la avena...")
	assert.Contains(t, out, "  - plan_basico.txt")
}

func TestContextCmd_EmptyContext(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "context")

	require.NoError(t, err)
	assert.Contains(t, out, "No context found.")
}

func TestContextCmd_JSONOutput(t *testing.T) {
	retrieval, _, cleanup := setupTestServices()
	defer cleanup()
	retrieval.contextResp = &domain.ContextResponse{Context: "x", RelevantSources: []string{"a.txt"}}

	out, err := execute(t, "context", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"context": "x"`)
	assert.Contains(t, out, `"relevant_sources"`)
}

func TestContextCmd_ValidationError(t *testing.T) {
	retrieval, _, cleanup := setupTestServices()
	defer cleanup()
	retrieval.err = &domain.ValidationError{Field: "motor_type", Reason: "must be 1, 2 or 3"}

	_, err := execute(t, "context", "--motor", "9")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, domain.MotorType(9), retrieval.lastContext.MotorType)
}
