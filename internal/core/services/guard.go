package services

import (
	"sync"

	"github.com/custodia-labs/scribe/internal/core/domain"
)

// OperationGuard issues monotonic tokens per operation class so that only
// the most recently issued operation may affect shared state.
type OperationGuard struct {
	mu      sync.Mutex
	current map[domain.OperationClass]domain.Token
	// subject is what the current operation of each class works on.
	subject map[domain.OperationClass]string
}

// NewOperationGuard creates a guard with every class at token zero.
func NewOperationGuard() *OperationGuard {
	return &OperationGuard{
		current: make(map[domain.OperationClass]domain.Token),
		subject: make(map[domain.OperationClass]string),
	}
}

// Begin issues a new token for class, making every earlier token stale.
func (g *OperationGuard) Begin(class domain.OperationClass) *Operation {
	return g.BeginFor(class, "")
}

// BeginFor is Begin for an operation working on subject, such as a
// provider id. See InvalidateFor.
func (g *OperationGuard) BeginFor(class domain.OperationClass, subject string) *Operation {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current[class]++
	g.subject[class] = subject
	return &Operation{guard: g, class: class, token: g.current[class], subject: subject}
}

// Invalidate makes every outstanding token of class stale without
// starting a new operation.
func (g *OperationGuard) Invalidate(class domain.OperationClass) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current[class]++
	g.subject[class] = ""
}

// InvalidateFor makes the current operation of class stale only when it
// works on subject. Reports whether it did.
func (g *OperationGuard) InvalidateFor(class domain.OperationClass, subject string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current[class] == 0 || g.subject[class] != subject {
		return false
	}
	g.current[class]++
	g.subject[class] = ""
	return true
}

// Current returns the newest token issued or reserved for class.
func (g *OperationGuard) Current(class domain.OperationClass) domain.Token {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current[class]
}

func (g *OperationGuard) isCurrent(class domain.OperationClass, token domain.Token) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current[class] == token
}

// commitIfCurrent runs apply while holding the guard lock if token is still
// current, so no Begin or Invalidate can interleave between the check and
// the state change. Reports whether apply ran.
func (g *OperationGuard) commitIfCurrent(class domain.OperationClass, token domain.Token, apply func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current[class] != token {
		return false
	}
	apply()
	return true
}

// Operation is one issued call within an operation class.
type Operation struct {
	guard   *OperationGuard
	class   domain.OperationClass
	token   domain.Token
	subject string
}

// Token returns the token issued to this operation.
func (o *Operation) Token() domain.Token {
	return o.token
}

// Subject returns what the operation works on, if anything.
func (o *Operation) Subject() string {
	return o.subject
}

// Class returns the operation class.
func (o *Operation) Class() domain.OperationClass {
	return o.class
}

// IsCurrent reports whether this operation is still the newest in its class.
func (o *Operation) IsCurrent() bool {
	return o.guard.isCurrent(o.class, o.token)
}

// Commit runs apply only if the operation is still current. The check and
// apply are atomic with respect to Begin and Invalidate.
func (o *Operation) Commit(apply func()) bool {
	return o.guard.commitIfCurrent(o.class, o.token, apply)
}
