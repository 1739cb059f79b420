// Package domain defines the core settings entities for Scribe.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Value: A tagged setting value whose kind is fixed per key
//   - Snapshot: The complete key/value settings view
//   - Prompt, ProviderOption: Post-processing reference data
//   - OperationClass, Token: Async operation bookkeeping
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
