package mcp

import (
	"github.com/custodia-labs/scribe/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the MCP server.
type Ports struct {
	// Settings is the optimistic settings store.
	Settings driving.SettingsStore
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Settings == nil {
		return ErrMissingSettingsStore
	}
	return nil
}
