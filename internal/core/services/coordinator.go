package services

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/ports/driven"
	"github.com/custodia-labs/scribe/internal/core/ports/driving"
	"github.com/custodia-labs/scribe/internal/logger"
)

// settingsState is the shared mutable state behind a SettingsStore.
// current holds, per key, the id of the write whose value the snapshot
// shows. Ids come from lastWrite and are never reused.
type settingsState struct {
	mu        sync.RWMutex
	snapshot  domain.Snapshot
	pending   map[domain.SettingKey]int
	current   map[domain.SettingKey]uint64
	lastWrite uint64
}

func newSettingsState() *settingsState {
	return &settingsState{
		snapshot: domain.Snapshot{},
		pending:  make(map[domain.SettingKey]int),
		current:  make(map[domain.SettingKey]uint64),
	}
}

// claim makes a fresh write current for key and returns its id. Callers
// hold mu.
func (st *settingsState) claim(key domain.SettingKey) uint64 {
	st.lastWrite++
	st.current[key] = st.lastWrite
	return st.lastWrite
}

// UpdateCoordinator applies setting writes locally, persists them in the
// background and reconciles the snapshot when each persist resolves.
type UpdateCoordinator struct {
	state   *settingsState
	backend driven.SettingsBackend
	log     logger.Component

	wg sync.WaitGroup
}

func newUpdateCoordinator(state *settingsState, backend driven.SettingsBackend) *UpdateCoordinator {
	return &UpdateCoordinator{
		state:   state,
		backend: backend,
		log:     logger.Component("coordinator"),
	}
}

// Update writes value for key into the snapshot before returning and
// persists it asynchronously. The persist outlives ctx cancellation but
// keeps its values.
func (c *UpdateCoordinator) Update(ctx context.Context, key domain.SettingKey, value domain.Value) *PendingUpdate {
	p := newPendingUpdate(key)

	c.state.mu.Lock()
	w := write{value: value, prevWrite: c.state.current[key]}
	w.previous, w.hadPrevious = c.state.snapshot[key]
	c.state.snapshot[key] = value
	w.id = c.state.claim(key)
	c.state.pending[key]++
	c.state.mu.Unlock()

	c.log.Debug("write %s=%s (write %d)", key, value, w.id)

	persistCtx := context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.backend.Persist(persistCtx, domain.Snapshot{key: value})
		c.reconcile(p, w, domain.AsBoundaryError("persist", err))
	}()

	return p
}

// write records what one Update replaced so a failed persist can restore it.
type write struct {
	id          uint64
	value       domain.Value
	previous    domain.Value
	hadPrevious bool
	prevWrite   uint64
}

// reconcile settles one persist. A write is superseded once a later write
// became current or the snapshot no longer shows its value. A failed write
// that is still current restores the previous value and makes the write
// that produced it current again, so that write can roll back in turn.
func (c *UpdateCoordinator) reconcile(p *PendingUpdate, w write, err error) {
	key := p.key

	c.state.mu.Lock()
	shown, present := c.state.snapshot[key]
	superseded := c.state.current[key] != w.id || !present || !shown.Equal(w.value)

	rolledBack := false
	if err != nil && !superseded {
		if w.hadPrevious {
			c.state.snapshot[key] = w.previous
		} else {
			delete(c.state.snapshot, key)
		}
		c.state.current[key] = w.prevWrite
		rolledBack = true
	}

	c.state.pending[key]--
	if c.state.pending[key] <= 0 {
		delete(c.state.pending, key)
	}
	c.state.mu.Unlock()

	switch {
	case rolledBack:
		c.log.Warn("persist %s failed, rolled back: %v", key, err)
	case err != nil:
		c.log.Debug("persist %s failed after being superseded: %v", key, err)
	case superseded:
		c.log.Debug("persist %s confirmed (superseded, write %d)", key, w.id)
	default:
		c.log.Debug("persist %s confirmed (write %d)", key, w.id)
	}

	p.resolve(err, rolledBack)
}

// Wait blocks until every outstanding persist has reconciled or ctx ends.
func (c *UpdateCoordinator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PendingUpdate is the handle returned for one optimistic write.
type PendingUpdate struct {
	key        domain.SettingKey
	done       chan struct{}
	err        error
	rolledBack bool
}

var _ driving.PendingUpdate = (*PendingUpdate)(nil)

func newPendingUpdate(key domain.SettingKey) *PendingUpdate {
	return &PendingUpdate{key: key, done: make(chan struct{})}
}

// failedUpdate returns an already resolved handle for a write that was
// rejected before touching the snapshot.
func failedUpdate(key domain.SettingKey, err error) *PendingUpdate {
	p := newPendingUpdate(key)
	p.resolve(err, false)
	return p
}

func (p *PendingUpdate) resolve(err error, rolledBack bool) {
	p.err = err
	p.rolledBack = rolledBack
	close(p.done)
}

// Key returns the setting being written.
func (p *PendingUpdate) Key() domain.SettingKey {
	return p.key
}

// Done is closed once the update has been reconciled.
func (p *PendingUpdate) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until reconciliation or ctx ends.
func (p *PendingUpdate) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the outcome, or nil while still pending.
func (p *PendingUpdate) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// RolledBack reports whether the optimistic value was reverted.
func (p *PendingUpdate) RolledBack() bool {
	select {
	case <-p.done:
		return p.rolledBack
	default:
		return false
	}
}

// updateGroup joins several writes issued by one logical change.
type updateGroup struct {
	parts []driving.PendingUpdate
	done  chan struct{}
}

var _ driving.PendingUpdate = (*updateGroup)(nil)

func joinUpdates(parts ...driving.PendingUpdate) driving.PendingUpdate {
	if len(parts) == 1 {
		return parts[0]
	}
	g := &updateGroup{parts: parts, done: make(chan struct{})}
	go func() {
		for _, p := range parts {
			<-p.Done()
		}
		close(g.done)
	}()
	return g
}

func (g *updateGroup) Key() domain.SettingKey {
	return g.parts[0].Key()
}

func (g *updateGroup) Done() <-chan struct{} {
	return g.done
}

func (g *updateGroup) Wait(ctx context.Context) error {
	select {
	case <-g.done:
		return g.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *updateGroup) Err() error {
	var errs []error
	for _, p := range g.parts {
		if err := p.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (g *updateGroup) RolledBack() bool {
	for _, p := range g.parts {
		if p.RolledBack() {
			return true
		}
	}
	return false
}
