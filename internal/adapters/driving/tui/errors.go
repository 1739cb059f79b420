package tui

import "errors"

// ErrMissingSettingsStore is returned when the settings store is not provided.
var ErrMissingSettingsStore = errors.New("tui: settings store is required")

// ErrInvalidPorts is returned when ports validation fails.
var ErrInvalidPorts = errors.New("tui: invalid ports configuration")
