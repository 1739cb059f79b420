package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/ports/driven"
	"github.com/custodia-labs/scribe/internal/core/ports/driving"
	"github.com/custodia-labs/scribe/internal/logger"
)

// Verify interface compliance.
var _ driving.SettingsStore = (*SettingsStore)(nil)

// StoreOption configures a SettingsStore.
type StoreOption func(*storeOptions)

type storeOptions struct {
	tickInterval time.Duration
}

// WithTickInterval sets the elapsed counter resolution of test runs.
func WithTickInterval(d time.Duration) StoreOption {
	return func(o *storeOptions) {
		o.tickInterval = d
	}
}

// SettingsStore is the canonical in-memory settings view. It composes the
// update coordinator, the operation guard, the model cache and the test
// runner over one backend.
type SettingsStore struct {
	backend driven.SettingsBackend
	state   *settingsState

	coordinator *UpdateCoordinator
	guard       *OperationGuard
	models      *ModelCache
	runner      *TestRunner
	log         logger.Component

	lifeMu      sync.RWMutex
	defaults    domain.Snapshot
	initialized bool
	disposed    bool
}

// NewSettingsStore creates a store over backend. Call Initialize before use
// and Dispose when done.
func NewSettingsStore(backend driven.SettingsBackend, opts ...StoreOption) *SettingsStore {
	var o storeOptions
	for _, opt := range opts {
		opt(&o)
	}

	state := newSettingsState()
	guard := NewOperationGuard()
	return &SettingsStore{
		backend:     backend,
		state:       state,
		coordinator: newUpdateCoordinator(state, backend),
		guard:       guard,
		models:      NewModelCache(backend, guard),
		runner:      NewTestRunner(backend, guard, o.tickInterval),
		log:         logger.Component("settings"),
		defaults:    domain.Snapshot{},
	}
}

// Initialize fetches the snapshot and defaults concurrently and replaces
// the local snapshot with the result.
func (s *SettingsStore) Initialize(ctx context.Context) error {
	s.lifeMu.RLock()
	disposed := s.disposed
	s.lifeMu.RUnlock()
	if disposed {
		return domain.ErrDisposed
	}

	var settings, defaults domain.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		settings, err = s.backend.GetSettings(gctx)
		return domain.AsBoundaryError("get_settings", err)
	})
	g.Go(func() error {
		var err error
		defaults, err = s.backend.GetDefaults(gctx)
		return domain.AsBoundaryError("get_defaults", err)
	})
	if err := g.Wait(); err != nil {
		s.log.Error("initialize failed: %v", err)
		return &domain.InitError{Err: err}
	}

	s.state.mu.Lock()
	s.state.snapshot = settings.Clone()
	s.state.mu.Unlock()

	s.lifeMu.Lock()
	s.defaults = defaults.Clone()
	s.initialized = true
	s.lifeMu.Unlock()

	s.log.Debug("initialized with %d settings and %d defaults", len(settings), len(defaults))
	return nil
}

// Dispose cancels the active test run and waits for outstanding persists
// until ctx ends. Further calls fail with domain.ErrDisposed.
func (s *SettingsStore) Dispose(ctx context.Context) error {
	s.lifeMu.Lock()
	if s.disposed {
		s.lifeMu.Unlock()
		return nil
	}
	s.disposed = true
	s.lifeMu.Unlock()

	s.runner.Close()
	if err := s.coordinator.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for pending updates: %w", err)
	}
	return nil
}

func (s *SettingsStore) ready() error {
	s.lifeMu.RLock()
	defer s.lifeMu.RUnlock()
	switch {
	case s.disposed:
		return domain.ErrDisposed
	case !s.initialized:
		return domain.ErrNotInitialized
	default:
		return nil
	}
}

// GetSetting returns the current value of key.
func (s *SettingsStore) GetSetting(key domain.SettingKey) (domain.Value, bool) {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	v, ok := s.state.snapshot[key]
	return v, ok
}

// Snapshot returns a copy of the current snapshot.
func (s *SettingsStore) Snapshot() domain.Snapshot {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	return s.state.snapshot.Clone()
}

// Defaults returns a copy of the defaults fetched at initialization.
func (s *SettingsStore) Defaults() domain.Snapshot {
	s.lifeMu.RLock()
	defer s.lifeMu.RUnlock()
	return s.defaults.Clone()
}

// UpdateSetting validates value and hands it to the coordinator. Invalid
// writes resolve immediately with an error and leave the snapshot alone.
func (s *SettingsStore) UpdateSetting(
	ctx context.Context,
	key domain.SettingKey,
	value domain.Value,
) driving.PendingUpdate {
	if err := s.ready(); err != nil {
		return failedUpdate(key, err)
	}
	if err := domain.ValidateValue(key, value); err != nil {
		return failedUpdate(key, err)
	}
	return s.coordinator.Update(ctx, key, value)
}

// ResetSetting restores the default value of key.
func (s *SettingsStore) ResetSetting(ctx context.Context, key domain.SettingKey) driving.PendingUpdate {
	s.lifeMu.RLock()
	def, ok := s.defaults[key]
	s.lifeMu.RUnlock()
	if !ok {
		if err := s.ready(); err != nil {
			return failedUpdate(key, err)
		}
		return failedUpdate(key, fmt.Errorf("%w: no default for %s", domain.ErrUnknownSetting, key))
	}
	return s.UpdateSetting(ctx, key, def)
}

// IsUpdating reports whether a persist for key is outstanding.
func (s *SettingsStore) IsUpdating(key domain.SettingKey) bool {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	return s.state.pending[key] > 0
}

// PendingKeys lists keys with outstanding persists, sorted.
func (s *SettingsStore) PendingKeys() []domain.SettingKey {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	keys := make([]domain.SettingKey, 0, len(s.state.pending))
	for k := range s.state.pending {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// RefreshSettings re-fetches the snapshot and replaces the local copy.
// Pending bookkeeping is left alone; in-flight persists treat a replaced
// value as superseded.
func (s *SettingsStore) RefreshSettings(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	settings, err := s.backend.GetSettings(ctx)
	if err != nil {
		return domain.AsBoundaryError("get_settings", err)
	}

	s.state.mu.Lock()
	s.state.snapshot = settings.Clone()
	s.state.mu.Unlock()

	s.log.Debug("refreshed %d settings", len(settings))
	return nil
}

// RefreshModels fetches the model list for providerID.
func (s *SettingsStore) RefreshModels(ctx context.Context, providerID string) (*domain.ModelRefresh, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.models.Refresh(ctx, providerID)
}

// GetModels returns the cached model list for providerID.
func (s *SettingsStore) GetModels(providerID string) ([]string, bool) {
	return s.models.GetModels(providerID)
}

// InvalidateModels drops the cached model list for providerID.
func (s *SettingsStore) InvalidateModels(providerID string) {
	s.models.Invalidate(providerID)
}

func (s *SettingsStore) provider(providerID string) (domain.ProviderOption, error) {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	p, ok := s.state.snapshot.Provider(providerID)
	if !ok {
		return domain.ProviderOption{}, fmt.Errorf("%w: %s", domain.ErrProviderNotFound, providerID)
	}
	return p, nil
}

// SetProviderAPIKey stores apiKey for providerID and invalidates its models.
func (s *SettingsStore) SetProviderAPIKey(
	ctx context.Context,
	providerID, apiKey string,
) (driving.PendingUpdate, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if _, err := s.provider(providerID); err != nil {
		return nil, err
	}

	keys := s.Snapshot().StringMap(domain.KeyPostProcessAPIKeys)
	keys[providerID] = strings.TrimSpace(apiKey)
	p := s.UpdateSetting(ctx, domain.KeyPostProcessAPIKeys, domain.StringMap(keys))
	s.models.Invalidate(providerID)
	return p, nil
}

// SetProviderBaseURL changes the base URL of providerID. Only providers
// that allow base URL edits accept it.
func (s *SettingsStore) SetProviderBaseURL(
	ctx context.Context,
	providerID, baseURL string,
) (driving.PendingUpdate, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	target, err := s.provider(providerID)
	if err != nil {
		return nil, err
	}
	if !target.AllowBaseURLEdit {
		return nil, fmt.Errorf("%w: %s", domain.ErrBaseURLNotEditable, target.Label)
	}

	baseURL = strings.TrimSpace(baseURL)
	providers := s.Snapshot().Providers()
	for i := range providers {
		if providers[i].ID == providerID {
			providers[i].BaseURL = baseURL
		}
	}
	p := s.UpdateSetting(ctx, domain.KeyPostProcessProviders, domain.Providers(providers))
	s.models.Invalidate(providerID)
	return p, nil
}

// SetProviderModel selects model for providerID and records it among the
// provider's custom models.
func (s *SettingsStore) SetProviderModel(
	ctx context.Context,
	providerID, model string,
) (driving.PendingUpdate, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if _, err := s.provider(providerID); err != nil {
		return nil, err
	}

	model = strings.TrimSpace(model)
	snapshot := s.Snapshot()
	models := snapshot.StringMap(domain.KeyPostProcessModels)
	models[providerID] = model
	updates := []driving.PendingUpdate{
		s.UpdateSetting(ctx, domain.KeyPostProcessModels, domain.StringMap(models)),
	}

	custom := snapshot.StringListMap(domain.KeyPostProcessCustomModels)
	if model != "" && !slices.Contains(custom[providerID], model) {
		custom[providerID] = append(custom[providerID], model)
		updates = append(updates,
			s.UpdateSetting(ctx, domain.KeyPostProcessCustomModels, domain.StringListMap(custom)))
	}
	return joinUpdates(updates...), nil
}

// BeginTestRun starts a test run over input.
func (s *SettingsStore) BeginTestRun(ctx context.Context, input string) (domain.Token, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.runner.Begin(ctx, input), nil
}

// CancelTestRun resets the visible test run state to idle.
func (s *SettingsStore) CancelTestRun() {
	s.runner.Cancel()
}

// CancelTestRunToken cancels the run identified by token if it is still
// the run in flight. A newer run is left alone.
func (s *SettingsStore) CancelTestRunToken(token domain.Token) bool {
	return s.runner.CancelToken(token)
}

// TestRunState returns the visible test run state.
func (s *SettingsStore) TestRunState() domain.TestRunState {
	return s.runner.State()
}

// AwaitTestRun waits for the run identified by token to end.
func (s *SettingsStore) AwaitTestRun(ctx context.Context, token domain.Token) (domain.TestRunState, error) {
	return s.runner.Await(ctx, token)
}

// AddPrompt creates a prompt through the backend and appends the confirmed
// prompt to the snapshot.
func (s *SettingsStore) AddPrompt(ctx context.Context, name, text string) (domain.Prompt, error) {
	if err := s.ready(); err != nil {
		return domain.Prompt{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Prompt{}, fmt.Errorf("%w: prompt name is required", domain.ErrInvalidInput)
	}

	prompt, err := s.backend.AddPrompt(ctx, name, text)
	if err != nil {
		return domain.Prompt{}, domain.AsBoundaryError("add_prompt", err)
	}

	s.applyConfirmed(func(snapshot domain.Snapshot) {
		prompts := append(snapshot.Prompts(), prompt)
		snapshot[domain.KeyPostProcessPrompts] = domain.Prompts(prompts)
	}, domain.KeyPostProcessPrompts)
	return prompt, nil
}

// UpdatePrompt edits a prompt through the backend and mirrors the change.
func (s *SettingsStore) UpdatePrompt(ctx context.Context, prompt domain.Prompt) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.backend.UpdatePrompt(ctx, prompt); err != nil {
		return domain.AsBoundaryError("update_prompt", err)
	}

	s.applyConfirmed(func(snapshot domain.Snapshot) {
		prompts := snapshot.Prompts()
		for i := range prompts {
			if prompts[i].ID == prompt.ID {
				prompts[i] = prompt
			}
		}
		snapshot[domain.KeyPostProcessPrompts] = domain.Prompts(prompts)
	}, domain.KeyPostProcessPrompts)
	return nil
}

// DeletePrompt removes a prompt through the backend and mirrors the change.
// The minimum prompt count is enforced by callers via PromptCount.
func (s *SettingsStore) DeletePrompt(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.backend.DeletePrompt(ctx, id); err != nil {
		return domain.AsBoundaryError("delete_prompt", err)
	}

	s.applyConfirmed(func(snapshot domain.Snapshot) {
		prompts := slices.DeleteFunc(snapshot.Prompts(), func(p domain.Prompt) bool { return p.ID == id })
		snapshot[domain.KeyPostProcessPrompts] = domain.Prompts(prompts)

		if selected, ok := snapshot.SelectedPromptID(); ok && selected == id {
			if len(prompts) > 0 {
				snapshot[domain.KeyPostProcessSelectedPromptID] = domain.OptionalString(&prompts[0].ID)
			} else {
				snapshot[domain.KeyPostProcessSelectedPromptID] = domain.OptionalString(nil)
			}
		}
	}, domain.KeyPostProcessPrompts, domain.KeyPostProcessSelectedPromptID)
	return nil
}

// applyConfirmed mutates the snapshot with a change the backend already
// accepted. Touched keys whose value changed are claimed by a fresh write
// so in-flight writes to them reconcile as superseded.
func (s *SettingsStore) applyConfirmed(mutate func(domain.Snapshot), touched ...domain.SettingKey) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	before := make(map[domain.SettingKey]domain.Value, len(touched))
	for _, key := range touched {
		before[key] = s.state.snapshot[key]
	}
	mutate(s.state.snapshot)
	for _, key := range touched {
		if !before[key].Equal(s.state.snapshot[key]) {
			s.state.claim(key)
		}
	}
}

// Prompts returns the configured prompts.
func (s *SettingsStore) Prompts() []domain.Prompt {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	return s.state.snapshot.Prompts()
}

// PromptCount returns the number of configured prompts.
func (s *SettingsStore) PromptCount() int {
	return len(s.Prompts())
}
