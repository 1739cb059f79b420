package domain

import "time"

// OperationClass groups async operations that supersede one another.
type OperationClass string

// Operation classes.
const (
	OpModelRefresh OperationClass = "model_refresh"
	OpTestRun      OperationClass = "test_run"
)

// String returns the string representation.
func (c OperationClass) String() string {
	return string(c)
}

// Token identifies one issued operation within its class. Tokens are
// monotonic per class and meaningful only within the process.
type Token uint64

// ModelCacheEntry is the last accepted model list for a provider.
type ModelCacheEntry struct {
	ProviderID     string
	Models         []string
	FetchedAtToken Token
}

// ModelRefresh is the outcome of a model list refresh. Stale is set when a
// newer refresh or an invalidation superseded this one; Models is then nil
// and the cache was not touched.
type ModelRefresh struct {
	ProviderID string
	Models     []string
	Stale      bool
}

// TestRunStatus is the visible phase of a transformation test run.
type TestRunStatus string

// Test run phases.
const (
	TestRunIdle      TestRunStatus = "idle"
	TestRunRunning   TestRunStatus = "running"
	TestRunSucceeded TestRunStatus = "succeeded"
	TestRunFailed    TestRunStatus = "failed"
)

// Description returns a human-readable description of the status.
func (s TestRunStatus) Description() string {
	switch s {
	case TestRunIdle:
		return "Idle"
	case TestRunRunning:
		return "Running"
	case TestRunSucceeded:
		return "Completed"
	case TestRunFailed:
		return "Failed"
	default:
		return unknownDescription
	}
}

// TestRunState is the visible state of the current test run.
type TestRunState struct {
	Status    TestRunStatus
	Token     Token
	Input     string
	Output    string
	Err       error
	StartedAt time.Time
	// Elapsed counts whole ticks since the run started.
	Elapsed time.Duration
}

// Active reports whether a run is in flight.
func (s TestRunState) Active() bool {
	return s.Status == TestRunRunning
}
