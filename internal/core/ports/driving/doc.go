// Package driving holds the ports the CLI and the MCP server call into.
// The core services implement them; adapters only ever see these interfaces.
package driving
