package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scribe/internal/core/domain"
)

func newTestCoordinator(t *testing.T) (*UpdateCoordinator, *settingsState, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	backend.manual = true
	state := newSettingsState()
	return newUpdateCoordinator(state, backend), state, backend
}

func TestUpdateCoordinator_WritesBeforePersist(t *testing.T) {
	c, state, backend := newTestCoordinator(t)

	p := c.Update(context.Background(), domain.KeyDebugMode, domain.Bool(true))

	assert.True(t, state.snapshot[domain.KeyDebugMode].Equal(domain.Bool(true)))
	assert.Equal(t, 1, state.pending[domain.KeyDebugMode])
	assert.NoError(t, p.Err(), "no outcome while pending")

	call := nextPersist(t, backend)
	assert.Equal(t, domain.Snapshot{domain.KeyDebugMode: domain.Bool(true)}, call.partial)
	call.reply <- nil

	require.NoError(t, p.Wait(context.Background()))
	assert.Empty(t, state.pending)
	assert.False(t, p.RolledBack())
}

func TestUpdateCoordinator_RollbackRemovesAbsentKey(t *testing.T) {
	c, state, backend := newTestCoordinator(t)

	p := c.Update(context.Background(), domain.KeySelectedModel, domain.String("tiny"))
	nextPersist(t, backend).reply <- errors.New("connection reset")

	err := p.Wait(context.Background())
	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "persist", te.Op)
	assert.True(t, p.RolledBack())
	_, present := state.snapshot[domain.KeySelectedModel]
	assert.False(t, present)
	assert.Zero(t, state.current[domain.KeySelectedModel])
}

func TestUpdateCoordinator_ReplacedSnapshotIsNotRolledBack(t *testing.T) {
	c, state, backend := newTestCoordinator(t)
	state.snapshot[domain.KeySoundTheme] = domain.String("marimba")

	p := c.Update(context.Background(), domain.KeySoundTheme, domain.String("pop"))
	call := nextPersist(t, backend)

	state.mu.Lock()
	state.snapshot = domain.Snapshot{domain.KeySoundTheme: domain.String("custom")}
	state.mu.Unlock()

	call.reply <- errors.New("disk full")
	require.Error(t, p.Wait(context.Background()))

	assert.False(t, p.RolledBack())
	assert.True(t, state.snapshot[domain.KeySoundTheme].Equal(domain.String("custom")))
}

func TestUpdateCoordinator_OnePersistPerCall(t *testing.T) {
	backend := newFakeBackend()
	c := newUpdateCoordinator(newSettingsState(), backend)

	for _, v := range []float64{1, 2, 3} {
		c.Update(context.Background(), domain.KeyHistoryLimit, domain.Number(v))
	}
	require.NoError(t, c.Wait(context.Background()))

	assert.Equal(t, 3, backend.persistCount())
}

func TestUpdateCoordinator_PersistOutlivesCallerContext(t *testing.T) {
	c, state, backend := newTestCoordinator(t)
	ctx, cancel := context.WithCancel(context.Background())

	p := c.Update(ctx, domain.KeyDebugMode, domain.Bool(true))
	cancel()
	assert.ErrorIs(t, p.Wait(ctx), context.Canceled)

	nextPersist(t, backend).reply <- nil
	waitDone(t, p.Done())
	assert.NoError(t, p.Err())
	assert.True(t, state.snapshot[domain.KeyDebugMode].Equal(domain.Bool(true)))
}

func TestUpdateCoordinator_WaitHonoursContext(t *testing.T) {
	c, _, backend := newTestCoordinator(t)
	c.Update(context.Background(), domain.KeyDebugMode, domain.Bool(true))
	call := nextPersist(t, backend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Wait(ctx), context.Canceled)

	call.reply <- nil
	assert.NoError(t, c.Wait(context.Background()))
}

func TestFailedUpdate(t *testing.T) {
	p := failedUpdate(domain.KeyDebugMode, domain.ErrInvalidInput)

	waitDone(t, p.Done())
	assert.Equal(t, domain.KeyDebugMode, p.Key())
	assert.ErrorIs(t, p.Err(), domain.ErrInvalidInput)
	assert.False(t, p.RolledBack())
}

func TestJoinUpdates(t *testing.T) {
	ok := failedUpdate(domain.KeyDebugMode, nil)
	bad := newPendingUpdate(domain.KeySelectedModel)

	joined := joinUpdates(ok, bad)
	assert.Equal(t, domain.KeyDebugMode, joined.Key())

	bad.resolve(errors.New("rejected"), true)
	waitDone(t, joined.Done())
	assert.EqualError(t, joined.Wait(context.Background()), "rejected")
	assert.True(t, joined.RolledBack())

	assert.Same(t, ok, joinUpdates(ok))
}
