// Package archive manages the soft-deletion lifecycle: moving transactions
// between the active and archive collections, and the timed two-phase purge
// that can still be cancelled mid-countdown.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"dompet/internal/core"
	"dompet/internal/store"
)

// CountdownTicks is how many one-second ticks a pending deletion survives
// before the purge becomes irreversible.
const CountdownTicks = 5

// Hooks are the observable events of the lifecycle, consumed by the
// rendering collaborator. Either may be nil.
type Hooks struct {
	CountdownTick func(id int64, remaining int)
	ItemPurged    func(id int64)
}

// Lifecycle moves transactions between the active and archive collections.
// A transaction lives in exactly one of the two at any time; both moves are
// remove-then-insert at the front of the destination.
type Lifecycle struct {
	mu    *sync.Mutex
	store store.Store
	sched *Scheduler
	ticks int
	hooks Hooks
}

// NewLifecycle builds the archive lifecycle. mu must be the same lock the
// ledger service uses: both sides rewrite the active collection, and the
// one-of-two-collections invariant only holds if their load-then-write
// cycles never interleave. A nil mu gets a private lock.
func NewLifecycle(st store.Store, sched *Scheduler, mu *sync.Mutex, hooks Hooks) *Lifecycle {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &Lifecycle{
		mu:    mu,
		store: st,
		sched: sched,
		ticks: CountdownTicks,
		hooks: hooks,
	}
}

// Archived returns the archive collection, most recently archived first.
func (l *Lifecycle) Archived(ctx context.Context) ([]core.Transaction, error) {
	var txs []core.Transaction
	if err := store.Load(ctx, l.store, store.KeyArchive, &txs); err != nil {
		return nil, fmt.Errorf("load archive: %w", err)
	}
	return txs, nil
}

func (l *Lifecycle) active(ctx context.Context) ([]core.Transaction, error) {
	var txs []core.Transaction
	if err := store.Load(ctx, l.store, store.KeyTransactions, &txs); err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return txs, nil
}

// Archive moves the transaction out of the active collection and prepends
// it to the archive. It reports whether anything moved; an unknown id is a
// silent no-op.
func (l *Lifecycle) Archive(ctx context.Context, id int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	activeTxs, err := l.active(ctx)
	if err != nil {
		return false, err
	}

	idx := indexOf(activeTxs, id)
	if idx < 0 {
		return false, nil
	}
	item := activeTxs[idx]
	activeTxs = append(activeTxs[:idx], activeTxs[idx+1:]...)

	archived, err := l.Archived(ctx)
	if err != nil {
		return false, err
	}
	archived = append([]core.Transaction{item}, archived...)

	if err := store.Save(ctx, l.store, store.KeyTransactions, activeTxs); err != nil {
		return false, fmt.Errorf("save transactions: %w", err)
	}
	if err := store.Save(ctx, l.store, store.KeyArchive, archived); err != nil {
		return false, fmt.Errorf("save archive: %w", err)
	}

	slog.InfoContext(ctx, "Transaction archived", "id", id)
	return true, nil
}

// Restore moves the transaction back to the front of the active collection.
// Leaving the archived state implicitly cancels any pending deletion for
// the id. An unknown id is a silent no-op.
func (l *Lifecycle) Restore(ctx context.Context, id int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sched.Cancel(id)

	archived, err := l.Archived(ctx)
	if err != nil {
		return false, err
	}

	idx := indexOf(archived, id)
	if idx < 0 {
		return false, nil
	}
	item := archived[idx]
	archived = append(archived[:idx], archived[idx+1:]...)

	activeTxs, err := l.active(ctx)
	if err != nil {
		return false, err
	}
	activeTxs = append([]core.Transaction{item}, activeTxs...)

	if err := store.Save(ctx, l.store, store.KeyArchive, archived); err != nil {
		return false, fmt.Errorf("save archive: %w", err)
	}
	if err := store.Save(ctx, l.store, store.KeyTransactions, activeTxs); err != nil {
		return false, fmt.Errorf("save transactions: %w", err)
	}

	slog.InfoContext(ctx, "Transaction restored", "id", id)
	return true, nil
}

// ConfirmDelete starts the purge countdown for an archived id. It reports
// false when the id is not in the archive, or when a countdown for it is
// already running, which makes repeat confirmations idempotent.
func (l *Lifecycle) ConfirmDelete(ctx context.Context, id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	archived, err := l.Archived(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Confirm delete failed loading archive", "id", id, "error", err)
		return false
	}
	if indexOf(archived, id) < 0 {
		return false
	}

	started := l.sched.Start(id, l.ticks, l.hooks.CountdownTick, l.purge)
	if started {
		slog.InfoContext(ctx, "Archive deletion countdown started", "id", id, "ticks", l.ticks)
	}
	return started
}

// CancelDelete stops a running countdown. It reports whether one was
// actually running; cancelling an idle id has no effect.
func (l *Lifecycle) CancelDelete(id int64) bool {
	cancelled := l.sched.Cancel(id)
	if cancelled {
		slog.Info("Archive deletion cancelled", "id", id)
	}
	return cancelled
}

// PendingDelete reports whether a countdown is running for id.
func (l *Lifecycle) PendingDelete(id int64) bool {
	return l.sched.Active(id)
}

// purge permanently removes the id from the archive once the countdown
// expires. The id never reappears. A restore that won the race leaves
// nothing to remove.
func (l *Lifecycle) purge(id int64) {
	ctx := context.Background()

	l.mu.Lock()
	archived, err := l.Archived(ctx)
	if err != nil {
		l.mu.Unlock()
		slog.Error("Purge failed loading archive", "id", id, "error", err)
		return
	}

	idx := indexOf(archived, id)
	if idx < 0 {
		l.mu.Unlock()
		return
	}
	archived = append(archived[:idx], archived[idx+1:]...)
	if err := store.Save(ctx, l.store, store.KeyArchive, archived); err != nil {
		l.mu.Unlock()
		slog.Error("Purge failed saving archive", "id", id, "error", err)
		return
	}
	l.mu.Unlock()

	slog.Info("Archived transaction purged", "id", id)
	if l.hooks.ItemPurged != nil {
		l.hooks.ItemPurged(id)
	}
}

func indexOf(txs []core.Transaction, id int64) int {
	for i := range txs {
		if txs[i].ID == id {
			return i
		}
	}
	return -1
}
