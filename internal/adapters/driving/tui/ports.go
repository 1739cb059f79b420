// Package tui provides an interactive terminal user interface for scribe.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/scribe/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the TUI.
type Ports struct {
	// Settings is the optimistic settings store.
	Settings driving.SettingsStore
}

// NewPorts creates a new Ports aggregate.
func NewPorts(settings driving.SettingsStore) *Ports {
	return &Ports{Settings: settings}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Settings == nil {
		return ErrMissingSettingsStore
	}
	return nil
}
