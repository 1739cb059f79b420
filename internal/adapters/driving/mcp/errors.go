// Package mcp provides an MCP (Model Context Protocol) server adapter for Scribe.
// It lets AI assistants read and change settings, refresh provider model
// lists and run post-processing tests.
package mcp

import "errors"

// ErrMissingSettingsStore is returned when the settings store is not provided.
var ErrMissingSettingsStore = errors.New("mcp: settings store is required")
