// Package mcp provides an MCP (Model Context Protocol) server adapter for nutrirag.
// It lets assistants search the nutrition corpus and assemble consultation
// context through tools, and read collection statistics as a resource.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
