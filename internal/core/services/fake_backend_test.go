package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/ports/driven"
)

// waitTimeout bounds every blocking receive in these tests.
const waitTimeout = 2 * time.Second

type persistCall struct {
	partial domain.Snapshot
	reply   chan error
}

type listCall struct {
	providerID string
	reply      chan listReply
}

type listReply struct {
	models []string
	err    error
}

type transformCall struct {
	input string
	reply chan transformReply
}

type transformReply struct {
	output string
	err    error
}

// fakeBackend is a SettingsBackend whose slow calls can be held open and
// resolved by the test in any order. With manual unset, persist succeeds
// immediately and model lists come from models.
type fakeBackend struct {
	settings    domain.Snapshot
	defaults    domain.Snapshot
	settingsErr error
	defaultsErr error
	manual      bool
	models      map[string][]string

	persists   chan persistCall
	lists      chan listCall
	transforms chan transformCall

	mu        sync.Mutex
	persisted []domain.Snapshot
	nextID    int
	deleteErr error
}

var _ driven.SettingsBackend = (*fakeBackend)(nil)

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		settings:   domain.DefaultSnapshot(),
		defaults:   domain.DefaultSnapshot(),
		models:     map[string][]string{},
		persists:   make(chan persistCall, 16),
		lists:      make(chan listCall, 16),
		transforms: make(chan transformCall, 16),
	}
}

func (f *fakeBackend) GetSettings(_ context.Context) (domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settingsErr != nil {
		return nil, f.settingsErr
	}
	return f.settings.Clone(), nil
}

func (f *fakeBackend) GetDefaults(_ context.Context) (domain.Snapshot, error) {
	if f.defaultsErr != nil {
		return nil, f.defaultsErr
	}
	return f.defaults.Clone(), nil
}

func (f *fakeBackend) Persist(_ context.Context, partial domain.Snapshot) error {
	f.mu.Lock()
	f.persisted = append(f.persisted, partial)
	f.mu.Unlock()

	if !f.manual {
		return nil
	}
	call := persistCall{partial: partial, reply: make(chan error, 1)}
	f.persists <- call
	return <-call.reply
}

func (f *fakeBackend) ListModels(ctx context.Context, providerID string) ([]string, error) {
	if !f.manual {
		models, ok := f.models[providerID]
		if !ok {
			return nil, domain.NewDomainError("Provider '%s' not found", providerID)
		}
		return models, nil
	}
	call := listCall{providerID: providerID, reply: make(chan listReply, 1)}
	f.lists <- call
	select {
	case r := <-call.reply:
		return r.models, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RunTransform ignores ctx cancellation so tests can resolve a call that
// was cancelled locally.
func (f *fakeBackend) RunTransform(_ context.Context, input string) (string, error) {
	call := transformCall{input: input, reply: make(chan transformReply, 1)}
	f.transforms <- call
	r := <-call.reply
	return r.output, r.err
}

func (f *fakeBackend) AddPrompt(_ context.Context, name, text string) (domain.Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return domain.Prompt{ID: fmt.Sprintf("prompt_%d", f.nextID), Name: name, Text: text}, nil
}

func (f *fakeBackend) UpdatePrompt(_ context.Context, prompt domain.Prompt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !slices.ContainsFunc(f.settings.Prompts(), func(p domain.Prompt) bool { return p.ID == prompt.ID }) {
		return domain.NewDomainError("Prompt with id '%s' not found", prompt.ID)
	}
	return nil
}

func (f *fakeBackend) DeletePrompt(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteErr
}

func (f *fakeBackend) persistCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.persisted)
}

func nextPersist(t *testing.T, f *fakeBackend) persistCall {
	t.Helper()
	select {
	case call := <-f.persists:
		return call
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for persist call")
		return persistCall{}
	}
}

func nextList(t *testing.T, f *fakeBackend) listCall {
	t.Helper()
	select {
	case call := <-f.lists:
		return call
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for list call")
		return listCall{}
	}
}

func nextTransform(t *testing.T, f *fakeBackend) transformCall {
	t.Helper()
	select {
	case call := <-f.transforms:
		return call
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for transform call")
		return transformCall{}
	}
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for completion")
	}
}

// newTestStore returns an initialized store over backend.
func newTestStore(t *testing.T, backend *fakeBackend, opts ...StoreOption) *SettingsStore {
	t.Helper()
	store := NewSettingsStore(backend, opts...)
	require.NoError(t, store.Initialize(context.Background()))
	t.Cleanup(func() {
		store.runner.Cancel()
	})
	return store
}
