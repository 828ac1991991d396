// Package credits maintains the locally cached credit balance. The backend
// remains the source of truth; the cache exists so the UI can reflect a
// deduction immediately after a completed generation.
package credits

import (
	"sync"

	"github.com/fanforge/fanforge-go/internal/logger"
	"github.com/fanforge/fanforge-go/internal/models"
)

// RedirectFunc is invoked when the backend reports insufficient credit.
// It navigates the caller to the billing surface; the original task is
// never retried.
type RedirectFunc func()

// Ledger is the optimistic local credit cache. All mutations go through
// DeductOnce or Set, never through direct balance writes.
type Ledger struct {
	mu       sync.Mutex
	balance  int
	deducted map[models.TaskID]struct{}
	subs     []func(balance int)
}

// NewLedger creates a ledger seeded with the given balance.
func NewLedger(balance int) *Ledger {
	return &Ledger{
		balance:  balance,
		deducted: make(map[models.TaskID]struct{}),
	}
}

// Balance returns the cached balance.
func (l *Ledger) Balance() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// Set replaces the cached balance with an authoritative value from the
// backend and notifies subscribers.
func (l *Ledger) Set(balance int) {
	l.mu.Lock()
	l.balance = balance
	subs := append([]func(int){}, l.subs...)
	l.mu.Unlock()

	for _, fn := range subs {
		fn(balance)
	}
}

// Subscribe registers a balance-changed callback.
func (l *Ledger) Subscribe(fn func(balance int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, fn)
}

// DeductOnce debits the balance by amount for the given task. At most one
// deduction happens per task id, so a duplicated terminal notification is a
// no-op. Returns true when the deduction was applied.
func (l *Ledger) DeductOnce(taskID models.TaskID, amount int) bool {
	l.mu.Lock()
	if _, done := l.deducted[taskID]; done {
		l.mu.Unlock()
		logger.Debug("Credit deduction for task %s already applied, skipping", taskID)
		return false
	}
	l.deducted[taskID] = struct{}{}
	l.balance -= amount
	balance := l.balance
	subs := append([]func(int){}, l.subs...)
	l.mu.Unlock()

	logger.Info("Deducted %d credits for task %s (balance: %d)", amount, taskID, balance)
	for _, fn := range subs {
		fn(balance)
	}
	return true
}
