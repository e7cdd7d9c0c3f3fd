// Package ledger owns the active-transaction collection and the query
// session state (keyword and page) that used to live in UI globals.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dompet/internal/core"
	"dompet/internal/store"
)

const DefaultPageSize = 8

// View is one query-able page of the ledger, handed to the rendering
// collaborator on every transactions-changed notification.
type View struct {
	Items      []core.Transaction `json:"items"`
	Keyword    string             `json:"keyword"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalCount int                `json:"total_count"`
	TotalPages int                `json:"total_pages"`

	// Notice carries a transient user-facing message, currently only the
	// month-rollover toast. Empty on ordinary refreshes.
	Notice string `json:"notice,omitempty"`
}

// Service wraps the persistent store with the ledger operations.
// All methods are safe for concurrent use.
type Service struct {
	mu       *sync.Mutex
	store    store.Store
	pageSize int
	keyword  string
	page     int
	lastID   int64
	now      func() time.Time
}

// NewService builds a ledger service over the store. mu serializes every
// read-modify-write of the stored collections; callers that also mutate the
// active collection elsewhere (the archive lifecycle does) must pass the
// same lock, or an interleaved load-then-write resurrects moved entries.
// A nil mu gets a private lock.
func NewService(st store.Store, pageSize int, mu *sync.Mutex) *Service {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &Service{
		mu:       mu,
		store:    st,
		pageSize: pageSize,
		page:     1,
		now:      time.Now,
	}
}

// Transactions returns the full active collection, newest insertion first.
func (s *Service) Transactions(ctx context.Context) ([]core.Transaction, error) {
	var txs []core.Transaction
	if err := store.Load(ctx, s.store, store.KeyTransactions, &txs); err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return txs, nil
}

func (s *Service) saveTransactions(ctx context.Context, txs []core.Transaction) error {
	if err := store.Save(ctx, s.store, store.KeyTransactions, txs); err != nil {
		return fmt.Errorf("save transactions: %w", err)
	}
	return nil
}

// Save validates and persists a transaction. With editID zero it inserts at
// the front of the collection under a fresh id with pinned unset. With a
// non-zero editID it overwrites every field of the matching transaction
// except id and pinned; an editID that no longer exists is a silent no-op.
func (s *Service) Save(ctx context.Context, tx core.Transaction, editID int64) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.Transactions(ctx)
	if err != nil {
		return err
	}

	if editID != 0 {
		for i := range txs {
			if txs[i].ID == editID {
				tx.ID = txs[i].ID
				tx.Pinned = txs[i].Pinned
				txs[i] = tx
				return s.saveTransactions(ctx, txs)
			}
		}
		slog.InfoContext(ctx, "Edit target no longer exists, ignoring save",
			"id", editID)
		return nil
	}

	tx.ID = s.nextID()
	tx.Pinned = false
	txs = append([]core.Transaction{tx}, txs...)
	return s.saveTransactions(ctx, txs)
}

// Delete removes the transaction with the given id; absent ids are ignored.
func (s *Service) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.Transactions(ctx)
	if err != nil {
		return err
	}
	kept := txs[:0]
	for _, t := range txs {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	return s.saveTransactions(ctx, kept)
}

// TogglePin flips the pinned flag of the given transaction.
func (s *Service) TogglePin(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.Transactions(ctx)
	if err != nil {
		return err
	}
	for i := range txs {
		if txs[i].ID == id {
			txs[i].Pinned = !txs[i].Pinned
			return s.saveTransactions(ctx, txs)
		}
	}
	return fmt.Errorf("toggle pin %d: %w", id, core.ErrNotFound)
}

// SetKeyword updates the search keyword and rewinds to the first page.
func (s *Service) SetKeyword(keyword string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyword = keyword
	s.page = 1
}

func (s *Service) SetPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page < 1 {
		page = 1
	}
	s.page = page
}

// Query filters, sorts, and paginates the active collection using the
// current session state. A page left pointing past the end of a shrunk
// result set heals back to page 1 and the session state follows.
func (s *Service) Query(ctx context.Context) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.Transactions(ctx)
	if err != nil {
		return View{}, err
	}

	filtered := core.SortForView(core.Search(txs, s.keyword))
	items, page := core.Paginate(filtered, s.page, s.pageSize)
	s.page = page

	totalPages := (len(filtered) + s.pageSize - 1) / s.pageSize
	return View{
		Items:      items,
		Keyword:    s.keyword,
		Page:       page,
		PageSize:   s.pageSize,
		TotalCount: len(filtered),
		TotalPages: totalPages,
	}, nil
}

// MonthAggregates computes the income/expense/balance totals for one month.
func (s *Service) MonthAggregates(ctx context.Context, monthKey string) (core.MonthTotals, error) {
	txs, err := s.Transactions(ctx)
	if err != nil {
		return core.MonthTotals{}, err
	}
	return core.MonthlyAggregates(txs, monthKey), nil
}

// nextID issues a creation-time millisecond id, bumped past the previous
// one when the clock has not advanced. Callers must hold s.mu.
func (s *Service) nextID() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}
