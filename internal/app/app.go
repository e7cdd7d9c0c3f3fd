// Package app is the application facade: it composes the ledger, archive,
// and savings services behind the inbound command set, and fans state-change
// notifications out to registered listeners (the rendering collaborators).
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dompet/internal/archive"
	"dompet/internal/core"
	"dompet/internal/ledger"
	"dompet/internal/savings"
	"dompet/internal/store"
)

// Listener receives the notifications emitted by the core. Implementations
// must not block; they run on the mutating goroutine or a countdown tick.
type Listener interface {
	TransactionsChanged(view ledger.View)
	SavingsChanged(progress savings.Progress)
	CountdownTick(id int64, remaining int)
	ItemPurged(id int64)
}

// Options tune the timers for tests; zero values take the production
// defaults (one-second countdown ticks, one-minute rollover polls).
type Options struct {
	PageSize          int
	CountdownInterval time.Duration
	RolloverInterval  time.Duration
	Now               func() time.Time
}

// App wires the services over one shared store and owns the month-rollover
// poller from the original behavior.
type App struct {
	store   store.Store
	ledger  *ledger.Service
	archive *archive.Lifecycle
	savings *savings.Tracker
	sched   *archive.Scheduler

	rolloverInterval time.Duration
	now              func() time.Time

	mu        sync.Mutex
	listeners []Listener
}

func New(st store.Store, opts Options) *App {
	if opts.CountdownInterval <= 0 {
		opts.CountdownInterval = time.Second
	}
	if opts.RolloverInterval <= 0 {
		opts.RolloverInterval = time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	a := &App{
		store:            st,
		savings:          savings.NewTracker(st),
		sched:            archive.NewScheduler(opts.CountdownInterval),
		rolloverInterval: opts.RolloverInterval,
		now:              opts.Now,
	}

	// One lock for both services: each rewrites the active collection, and
	// a transaction must never end up in both collections at once.
	collections := &sync.Mutex{}
	a.ledger = ledger.NewService(st, opts.PageSize, collections)
	a.archive = archive.NewLifecycle(st, a.sched, collections, archive.Hooks{
		CountdownTick: a.emitCountdownTick,
		ItemPurged:    a.emitItemPurged,
	})
	return a
}

// AddListener registers a notification consumer.
func (a *App) AddListener(l Listener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, l)
}

func (a *App) snapshotListeners() []Listener {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Listener(nil), a.listeners...)
}

// SaveTransaction inserts or edits a transaction, then refreshes views.
func (a *App) SaveTransaction(ctx context.Context, tx core.Transaction, editID int64) error {
	if err := a.ledger.Save(ctx, tx, editID); err != nil {
		return err
	}
	return a.afterMutation(ctx)
}

// DeleteTransaction removes a transaction from the active collection.
func (a *App) DeleteTransaction(ctx context.Context, id int64) error {
	if err := a.ledger.Delete(ctx, id); err != nil {
		return err
	}
	return a.afterMutation(ctx)
}

// TogglePin flips a transaction's pinned flag.
func (a *App) TogglePin(ctx context.Context, id int64) error {
	if err := a.ledger.TogglePin(ctx, id); err != nil {
		return err
	}
	return a.afterMutation(ctx)
}

// Search updates the session keyword and re-emits the view.
func (a *App) Search(ctx context.Context, keyword string) error {
	a.ledger.SetKeyword(keyword)
	return a.emitTransactionsChanged(ctx)
}

// SetPage moves the session to the requested page and re-emits the view.
func (a *App) SetPage(ctx context.Context, page int) error {
	a.ledger.SetPage(page)
	return a.emitTransactionsChanged(ctx)
}

// Archive soft-deletes a transaction into the archive collection.
func (a *App) Archive(ctx context.Context, id int64) error {
	moved, err := a.archive.Archive(ctx, id)
	if err != nil {
		return err
	}
	if !moved {
		return nil
	}
	return a.afterMutation(ctx)
}

// Restore moves an archived transaction back to the active collection.
func (a *App) Restore(ctx context.Context, id int64) error {
	moved, err := a.archive.Restore(ctx, id)
	if err != nil {
		return err
	}
	if !moved {
		return nil
	}
	return a.afterMutation(ctx)
}

// ConfirmDelete starts the purge countdown for an archived transaction.
// Ids not currently in the archive are rejected.
func (a *App) ConfirmDelete(ctx context.Context, id int64) bool {
	return a.archive.ConfirmDelete(ctx, id)
}

// CancelDelete aborts a running purge countdown.
func (a *App) CancelDelete(id int64) bool {
	return a.archive.CancelDelete(id)
}

// SetSavingsTarget stores a new target and refreshes the progress view.
func (a *App) SetSavingsTarget(ctx context.Context, target core.Money) error {
	if err := a.savings.SetTarget(ctx, target); err != nil {
		return err
	}
	return a.emitSavingsChanged(ctx)
}

// ClearSavingsTarget resets the savings state. Clearing with no target set
// returns core.ErrNotFound for the collaborator to surface as a notice.
func (a *App) ClearSavingsTarget(ctx context.Context) error {
	if err := a.savings.ClearTarget(ctx); err != nil {
		return err
	}
	return a.emitSavingsChanged(ctx)
}

// ToggleHideNominal flips the stored visibility preference and returns the
// new value. It affects rendering only, never computed values.
func (a *App) ToggleHideNominal(ctx context.Context) (bool, error) {
	hidden, err := a.HideNominal(ctx)
	if err != nil {
		return false, err
	}
	hidden = !hidden
	if err := store.Save(ctx, a.store, store.KeyHideNominal, hidden); err != nil {
		return false, fmt.Errorf("save visibility preference: %w", err)
	}
	return hidden, nil
}

// HideNominal returns the stored visibility preference, default false.
func (a *App) HideNominal(ctx context.Context) (bool, error) {
	var hidden bool
	if err := store.Load(ctx, a.store, store.KeyHideNominal, &hidden); err != nil {
		return false, fmt.Errorf("load visibility preference: %w", err)
	}
	return hidden, nil
}

// Query returns the current ledger page for the session state.
func (a *App) Query(ctx context.Context) (ledger.View, error) {
	return a.ledger.Query(ctx)
}

// CurrentMonthOverview aggregates the wall-clock month.
func (a *App) CurrentMonthOverview(ctx context.Context) (core.MonthTotals, error) {
	return a.ledger.MonthAggregates(ctx, core.MonthKeyAt(a.now()))
}

// Archived lists the archive collection.
func (a *App) Archived(ctx context.Context) ([]core.Transaction, error) {
	return a.archive.Archived(ctx)
}

// SavingsState returns the stored target and derived current total.
func (a *App) SavingsState(ctx context.Context) (core.SavingsState, error) {
	return a.savings.State(ctx)
}

// PendingDelete reports whether an archived id has a countdown running.
func (a *App) PendingDelete(id int64) bool {
	return a.archive.PendingDelete(id)
}

// Run drives the month-rollover poll until ctx is cancelled. The poll is a
// coarse substitute for a calendar event: it may lag a real month boundary
// by up to the poll interval.
func (a *App) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.rolloverInterval)
	defer ticker.Stop()

	lastMonth := core.MonthKeyAt(a.now())
	for {
		select {
		case <-ctx.Done():
			a.sched.Stop()
			return ctx.Err()
		case <-ticker.C:
			nowMonth := core.MonthKeyAt(a.now())
			if nowMonth == lastMonth {
				continue
			}
			lastMonth = nowMonth
			slog.InfoContext(ctx, "New month started", "month", nowMonth)
			if err := a.emitTransactionsChangedNotice(ctx, "Saldo bulan baru dimulai"); err != nil {
				slog.ErrorContext(ctx, "Month rollover refresh failed", "error", err)
			}
		}
	}
}

// afterMutation re-derives everything the collections feed: the query view
// and the savings total.
func (a *App) afterMutation(ctx context.Context) error {
	if err := a.emitTransactionsChanged(ctx); err != nil {
		return err
	}
	return a.emitSavingsChanged(ctx)
}

func (a *App) emitTransactionsChanged(ctx context.Context) error {
	return a.emitTransactionsChangedNotice(ctx, "")
}

func (a *App) emitTransactionsChangedNotice(ctx context.Context, notice string) error {
	view, err := a.ledger.Query(ctx)
	if err != nil {
		return err
	}
	view.Notice = notice
	for _, l := range a.snapshotListeners() {
		l.TransactionsChanged(view)
	}
	return nil
}

func (a *App) emitSavingsChanged(ctx context.Context) error {
	txs, err := a.ledger.Transactions(ctx)
	if err != nil {
		return err
	}
	progress, err := a.savings.Recompute(ctx, txs)
	if err != nil {
		return err
	}
	for _, l := range a.snapshotListeners() {
		l.SavingsChanged(progress)
	}
	return nil
}

func (a *App) emitCountdownTick(id int64, remaining int) {
	for _, l := range a.snapshotListeners() {
		l.CountdownTick(id, remaining)
	}
}

func (a *App) emitItemPurged(id int64) {
	for _, l := range a.snapshotListeners() {
		l.ItemPurged(id)
	}
	if err := a.emitTransactionsChanged(context.Background()); err != nil {
		slog.Error("Post-purge refresh failed", "id", id, "error", err)
	}
}
