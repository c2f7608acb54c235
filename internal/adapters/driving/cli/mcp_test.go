package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/nutrirag/internal/adapters/driving/mcp"
)

func TestMCPServeCmd_PortFlag(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "p", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)

	host := mcpServeCmd.Flags().Lookup("host")
	require.NotNil(t, host)
	assert.Equal(t, "localhost", host.DefValue)
}

func TestMCPServeCmd_RequiresRetrieval(t *testing.T) {
	oldService := retrievalService
	retrievalService = nil
	defer func() { retrievalService = oldService }()

	_, err := execute(t, "mcp", "serve")

	require.Error(t, err)
	assert.ErrorIs(t, err, mcp.ErrMissingRetrievalService)
}
