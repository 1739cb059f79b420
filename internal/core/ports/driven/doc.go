// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - SettingsBackend: The authoritative settings boundary
//
// # Backend Collaborators
//
// Used by the local backend adapter, not by core services directly:
//
//   - SettingsRepository: Snapshot persistence (TOML file, SQLite, memory)
//   - SecretStore: Provider API keys (OS keyring). Optional; when nil keys
//     stay in the settings snapshot.
//   - LLMFactory / LLMService: Model listing and transform execution
package driven
