// Package quota implements the per-user generation allowance.  Quotas are
// reset lazily: every read path (login, generation) applies the reset rule
// before looking at Remaining, so no background job is needed.
package quota

import (
	"errors"
	"time"

	"github.com/iliyamo/quizgen/internal/clock"
	"github.com/iliyamo/quizgen/internal/model"
)

const (
	// DefaultAllowance is the number of generations granted per window.
	DefaultAllowance = 5
	// DefaultWindow is the rolling period after which the allowance resets.
	DefaultWindow = 5 * time.Hour
)

// ErrQuotaExhausted is returned when no generation is left in the window.
var ErrQuotaExhausted = errors.New("quota exhausted")

// Ledger applies the reset, reserve and commit rules to model.Quota values.
// It holds no state of its own; persistence and row locking belong to the
// caller.
type Ledger struct {
	clock     clock.Clock
	allowance int
	window    time.Duration
}

// NewLedger returns a Ledger.  Non-positive allowance or window fall back
// to the defaults.
func NewLedger(c clock.Clock, allowance int, window time.Duration) *Ledger {
	if c == nil {
		c = clock.Real()
	}
	if allowance <= 0 {
		allowance = DefaultAllowance
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Ledger{clock: c, allowance: allowance, window: window}
}

// Allowance reports the number of generations granted per window.
func (l *Ledger) Allowance() int { return l.allowance }

// Fresh returns the quota a newly registered user starts with.
func (l *Ledger) Fresh(userID uint64) model.Quota {
	return model.Quota{UserID: userID, Remaining: l.allowance, LastReset: l.clock.Now()}
}

// Reset restores the allowance when more than one window has passed since
// LastReset.  The boolean reports whether q changed and must be saved.
func (l *Ledger) Reset(q model.Quota) (model.Quota, bool) {
	now := l.clock.Now()
	if now.Sub(q.LastReset) > l.window {
		q.Remaining = l.allowance
		q.LastReset = now
		return q, true
	}
	return q, false
}

// CheckAndReserve applies Reset and then requires at least one generation
// to be left.  It never decrements; see Commit.
func (l *Ledger) CheckAndReserve(q model.Quota) (model.Quota, error) {
	q, _ = l.Reset(q)
	if q.Remaining <= 0 {
		return q, ErrQuotaExhausted
	}
	return q, nil
}

// Commit charges one generation.  It must run in the same transaction that
// stores the generated quiz.
func (l *Ledger) Commit(q model.Quota) (model.Quota, error) {
	if q.Remaining <= 0 {
		return q, ErrQuotaExhausted
	}
	q.Remaining--
	return q, nil
}

// NextReset is the earliest moment at which Reset will restore the allowance.
func (l *Ledger) NextReset(q model.Quota) time.Time {
	return q.LastReset.Add(l.window)
}

// RetryAfter is how long a caller with an exhausted quota has to wait.
func (l *Ledger) RetryAfter(q model.Quota) time.Duration {
	d := l.NextReset(q).Sub(l.clock.Now())
	if d < 0 {
		return 0
	}
	return d
}
