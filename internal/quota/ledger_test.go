package quota

import (
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/quizgen/internal/clock"
	"github.com/iliyamo/quizgen/internal/model"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFreshQuota(t *testing.T) {
	t.Parallel()

	ledger := NewLedger(clock.NewFake(epoch), 0, 0)
	q := ledger.Fresh(7)
	if q.UserID != 7 || q.Remaining != DefaultAllowance || !q.LastReset.Equal(epoch) {
		t.Fatalf("Fresh = %+v, want user 7 remaining %d at %v", q, DefaultAllowance, epoch)
	}
}

func TestCheckAndReserve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		remaining     int
		elapsed       time.Duration
		wantErr       error
		wantRemaining int
		wantReset     bool
	}{
		{name: "available", remaining: 3, elapsed: time.Hour, wantRemaining: 3},
		{name: "exhausted inside window", remaining: 0, elapsed: 5 * time.Hour, wantErr: ErrQuotaExhausted, wantRemaining: 0},
		{name: "exhausted then window passed", remaining: 0, elapsed: 5*time.Hour + time.Second, wantRemaining: 5, wantReset: true},
		{name: "negative restored", remaining: -2, elapsed: 6 * time.Hour, wantRemaining: 5, wantReset: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			fake := clock.NewFake(epoch)
			ledger := NewLedger(fake, DefaultAllowance, DefaultWindow)
			fake.Advance(test.elapsed)

			got, err := ledger.CheckAndReserve(model.Quota{UserID: 1, Remaining: test.remaining, LastReset: epoch})
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("err = %v, want %v", err, test.wantErr)
			}
			if got.Remaining != test.wantRemaining {
				t.Errorf("remaining = %d, want %d", got.Remaining, test.wantRemaining)
			}
			if test.wantReset && !got.LastReset.Equal(fake.Now()) {
				t.Errorf("last_reset = %v, want %v", got.LastReset, fake.Now())
			}
			if !test.wantReset && !got.LastReset.Equal(epoch) {
				t.Errorf("last_reset moved to %v without a reset", got.LastReset)
			}
		})
	}
}

func TestCommitNeverNegative(t *testing.T) {
	t.Parallel()

	ledger := NewLedger(clock.NewFake(epoch), 5, DefaultWindow)
	q := model.Quota{Remaining: 1, LastReset: epoch}

	q, err := ledger.Commit(q)
	if err != nil || q.Remaining != 0 {
		t.Fatalf("Commit = %+v, %v; want remaining 0", q, err)
	}
	q, err = ledger.Commit(q)
	if !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("second Commit err = %v, want ErrQuotaExhausted", err)
	}
	if q.Remaining != 0 {
		t.Errorf("remaining = %d after failed commit", q.Remaining)
	}
}

func TestResetReportsChange(t *testing.T) {
	t.Parallel()

	fake := clock.NewFake(epoch)
	ledger := NewLedger(fake, 5, DefaultWindow)
	q := model.Quota{Remaining: 2, LastReset: epoch}

	if _, changed := ledger.Reset(q); changed {
		t.Fatal("Reset changed a quota inside its window")
	}
	fake.Advance(DefaultWindow + time.Minute)
	got, changed := ledger.Reset(q)
	if !changed || got.Remaining != 5 {
		t.Fatalf("Reset = %+v changed=%v, want remaining 5 changed", got, changed)
	}
}

func TestRetryAfter(t *testing.T) {
	t.Parallel()

	fake := clock.NewFake(epoch)
	ledger := NewLedger(fake, 5, DefaultWindow)
	q := model.Quota{Remaining: 0, LastReset: epoch}

	fake.Advance(2 * time.Hour)
	if got := ledger.RetryAfter(q); got != 3*time.Hour {
		t.Errorf("RetryAfter = %v, want 3h", got)
	}
	if got := ledger.NextReset(q); !got.Equal(epoch.Add(DefaultWindow)) {
		t.Errorf("NextReset = %v", got)
	}
	fake.Advance(4 * time.Hour)
	if got := ledger.RetryAfter(q); got != 0 {
		t.Errorf("RetryAfter past window = %v, want 0", got)
	}
}
