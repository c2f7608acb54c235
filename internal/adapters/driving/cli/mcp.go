package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/nutrirag/internal/adapters/driving/mcp"
)

var (
	mcpPort int
	mcpHost string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve retrieval to AI assistants over MCP",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Expose search, context assembly and index statistics as Model Context
Protocol tools, plus the indexed documents as resources.

Without --port the server speaks JSON-RPC on stdin/stdout, which is what
desktop assistants expect when they launch nutrirag themselves:

  {
    "mcpServers": {
      "nutrirag": {
        "command": "/usr/local/bin/nutrirag",
        "args": ["mcp", "serve"]
      }
    }
  }

With --port it listens for streamable HTTP on /mcp and serves Prometheus
metrics on /metrics:

  nutrirag mcp serve --port 8080
  nutrirag mcp serve --port 8080 --host 0.0.0.0`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "HTTP port (0 = stdio)")
	mcpServeCmd.Flags().StringVar(&mcpHost, "host", "localhost", "HTTP bind address")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	ports := &mcp.Ports{Retrieval: retrievalService, DefaultResults: configuredResults()}
	if appMetrics != nil {
		ports.Metrics = appMetrics.Handler()
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if mcpPort <= 0 {
		return server.Run(cmd.Context())
	}

	addr := net.JoinHostPort(mcpHost, strconv.Itoa(mcpPort))
	// stdout stays clean for callers piping the command.
	cmd.PrintErrf("MCP server listening on http://%s/mcp\n", addr)
	if err := server.RunHTTP(cmd.Context(), addr); err != nil {
		return fmt.Errorf("mcp http server: %w", err)
	}
	return nil
}
