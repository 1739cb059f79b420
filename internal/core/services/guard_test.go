package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/scribe/internal/core/domain"
)

func TestOperationGuard_NewestIsCurrent(t *testing.T) {
	guard := NewOperationGuard()

	first := guard.Begin(domain.OpModelRefresh)
	assert.True(t, first.IsCurrent())

	second := guard.Begin(domain.OpModelRefresh)
	assert.False(t, first.IsCurrent())
	assert.True(t, second.IsCurrent())
	assert.Greater(t, second.Token(), first.Token())
}

func TestOperationGuard_ClassesAreIndependent(t *testing.T) {
	guard := NewOperationGuard()

	refresh := guard.Begin(domain.OpModelRefresh)
	run := guard.Begin(domain.OpTestRun)

	assert.True(t, refresh.IsCurrent())
	assert.True(t, run.IsCurrent())
	assert.Equal(t, domain.OpTestRun, run.Class())
}

func TestOperationGuard_Invalidate(t *testing.T) {
	guard := NewOperationGuard()

	op := guard.Begin(domain.OpTestRun)
	guard.Invalidate(domain.OpTestRun)

	assert.False(t, op.IsCurrent())
	assert.False(t, op.Commit(func() { t.Fatal("stale commit applied") }))

	next := guard.Begin(domain.OpTestRun)
	assert.Greater(t, next.Token(), guard.Current(domain.OpModelRefresh))
	assert.Equal(t, next.Token(), guard.Current(domain.OpTestRun))
}

func TestOperationGuard_InvalidateFor(t *testing.T) {
	guard := NewOperationGuard()

	assert.False(t, guard.InvalidateFor(domain.OpModelRefresh, "openai"), "nothing issued yet")

	op := guard.BeginFor(domain.OpModelRefresh, "openai")
	assert.Equal(t, "openai", op.Subject())

	assert.False(t, guard.InvalidateFor(domain.OpModelRefresh, "groq"))
	assert.True(t, op.IsCurrent())

	assert.True(t, guard.InvalidateFor(domain.OpModelRefresh, "openai"))
	assert.False(t, op.IsCurrent())
	assert.False(t, guard.InvalidateFor(domain.OpModelRefresh, "openai"), "already superseded")
}

func TestOperationGuard_Commit(t *testing.T) {
	guard := NewOperationGuard()
	op := guard.Begin(domain.OpModelRefresh)

	applied := false
	assert.True(t, op.Commit(func() { applied = true }))
	assert.True(t, applied)
}

func TestOperationGuard_ConcurrentBegin(t *testing.T) {
	guard := NewOperationGuard()

	const n = 50
	tokens := make(chan domain.Token, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens <- guard.Begin(domain.OpModelRefresh).Token()
		}()
	}
	wg.Wait()
	close(tokens)

	seen := make(map[domain.Token]bool)
	for tok := range tokens {
		assert.False(t, seen[tok], "duplicate token %d", tok)
		seen[tok] = true
	}
	assert.Equal(t, domain.Token(n), guard.Current(domain.OpModelRefresh))
}
