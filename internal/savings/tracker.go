// Package savings derives the accumulated savings total from the ledger and
// tracks the user-set target against it.
package savings

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"dompet/internal/core"
	"dompet/internal/store"
)

// Progress carries the percentage before and after a recomputation so the
// rendering collaborator can animate between the two.
type Progress struct {
	Previous float64 `json:"previous"`
	Current  float64 `json:"current"`
}

// Tracker persists the savings state and recomputes the derived current
// total after every ledger mutation.
type Tracker struct {
	mu    sync.Mutex
	store store.Store
}

func NewTracker(st store.Store) *Tracker {
	return &Tracker{store: st}
}

// ComputeCurrent sums the positive monthly balances: months that closed at
// a net loss contribute nothing rather than subtracting. Always a full
// rescan of the active collection.
func ComputeCurrent(txs []core.Transaction) core.Money {
	var total int64
	for _, balance := range core.AllMonthlyBalances(txs) {
		if balance > 0 {
			total += balance
		}
	}
	return core.Money{Cents: total}
}

// State returns the stored savings state, defaulting to zero target and
// zero current when nothing has been saved yet.
func (t *Tracker) State(ctx context.Context) (core.SavingsState, error) {
	var state core.SavingsState
	if err := store.Load(ctx, t.store, store.KeySavings, &state); err != nil {
		return core.SavingsState{}, fmt.Errorf("load savings: %w", err)
	}
	return state, nil
}

// Recompute replaces the derived current total from the given transactions
// and returns the previous and new progress percentages.
func (t *Tracker) Recompute(ctx context.Context, txs []core.Transaction) (Progress, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, err := t.State(ctx)
	if err != nil {
		return Progress{}, err
	}

	prev := percent(state.Current, state.Target)
	state.Current = ComputeCurrent(txs)
	if err := store.Save(ctx, t.store, store.KeySavings, state); err != nil {
		return Progress{}, fmt.Errorf("save savings: %w", err)
	}

	return Progress{
		Previous: prev,
		Current:  percent(state.Current, state.Target),
	}, nil
}

// SetTarget stores a new positive savings target. The current total is left
// for the next recomputation.
func (t *Tracker) SetTarget(ctx context.Context, target core.Money) error {
	if err := target.Validate(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	state, err := t.State(ctx)
	if err != nil {
		return err
	}
	state.Target = target
	if err := store.Save(ctx, t.store, store.KeySavings, state); err != nil {
		return fmt.Errorf("save savings: %w", err)
	}

	slog.InfoContext(ctx, "Savings target set", "target_cents", target.Cents)
	return nil
}

// ClearTarget resets both target and current to zero. Clearing when no
// target is set surfaces ErrNotFound so the caller can show a notice.
func (t *Tracker) ClearTarget(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, err := t.State(ctx)
	if err != nil {
		return err
	}
	if !state.HasTarget() {
		return fmt.Errorf("clear savings target: %w", core.ErrNotFound)
	}
	if err := store.Save(ctx, t.store, store.KeySavings, core.SavingsState{}); err != nil {
		return fmt.Errorf("save savings: %w", err)
	}

	slog.InfoContext(ctx, "Savings target cleared")
	return nil
}

// CurrentProgress returns the stored progress percentage.
func (t *Tracker) CurrentProgress(ctx context.Context) (float64, error) {
	state, err := t.State(ctx)
	if err != nil {
		return 0, err
	}
	return percent(state.Current, state.Target), nil
}

// percent maps current/target to [0,100]; no target means zero progress,
// and overshooting the target caps at 100.
func percent(current, target core.Money) float64 {
	if target.Cents <= 0 {
		return 0
	}
	p := float64(current.Cents) / float64(target.Cents) * 100
	if p > 100 {
		return 100
	}
	return p
}
