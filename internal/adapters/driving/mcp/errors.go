// Package mcp provides an MCP (Model Context Protocol) server adapter for the
// Google Drive connector. It lets AI assistants browse files, follow the
// change feed, manage push channels and permissions through connect.
package mcp

import "errors"

var (
	// ErrMissingDriveAPI is returned when the Drive API is not provided.
	ErrMissingDriveAPI = errors.New("mcp: drive api is required")

	// ErrMissingSyncService is returned when the sync service is not provided.
	ErrMissingSyncService = errors.New("mcp: drive sync service is required")

	// ErrNotConfigured is returned by tools whose port was not provided.
	ErrNotConfigured = errors.New("mcp: tool is not configured")
)
