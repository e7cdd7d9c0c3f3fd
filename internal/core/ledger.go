package core

import (
	"sort"
	"strings"
)

// MonthTotals are the aggregates for one calendar month.
type MonthTotals struct {
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
	Balance Money `json:"balance"`
}

// Search keeps the transactions whose description, category, or ISO date
// contains keyword, case-insensitive. An empty keyword matches everything.
func Search(txs []Transaction, keyword string) []Transaction {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return append([]Transaction(nil), txs...)
	}
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if strings.Contains(strings.ToLower(t.Description), keyword) ||
			strings.Contains(strings.ToLower(t.Category), keyword) ||
			strings.Contains(t.Date.String(), keyword) {
			out = append(out, t)
		}
	}
	return out
}

// SortForView orders transactions for display: pinned entries first, then
// most recently created (highest id) first. The sort is stable so pinned
// entries keep their relative order.
func SortForView(txs []Transaction) []Transaction {
	out := append([]Transaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pinned != out[j].Pinned {
			return out[i].Pinned
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// Paginate slices a 1-indexed page out of txs. A page that would start
// beyond the end of the set resets to page 1, healing stale page state left
// over from a previously larger result set. It returns the page slice and
// the page index actually used.
func Paginate(txs []Transaction, page, size int) ([]Transaction, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	if (page-1)*size >= len(txs) {
		page = 1
	}
	start := (page - 1) * size
	end := start + size
	if start > len(txs) {
		start = len(txs)
	}
	if end > len(txs) {
		end = len(txs)
	}
	return txs[start:end], page
}

// MonthlyAggregates sums income and expense over the transactions whose
// date falls in the given YYYY-MM month.
func MonthlyAggregates(txs []Transaction, monthKey string) MonthTotals {
	var totals MonthTotals
	for _, t := range txs {
		if t.Date.MonthKey() != monthKey {
			continue
		}
		switch t.Type {
		case Income:
			totals.Income.Cents += t.Amount.Cents
		case Expense:
			totals.Expense.Cents += t.Amount.Cents
		}
	}
	totals.Balance.Cents = totals.Income.Cents - totals.Expense.Cents
	return totals
}

// AllMonthlyBalances maps each month key to its net balance in cents.
// Income contributes positively, expense negatively.
func AllMonthlyBalances(txs []Transaction) map[string]int64 {
	balances := make(map[string]int64)
	for _, t := range txs {
		key := t.Date.MonthKey()
		switch t.Type {
		case Income:
			balances[key] += t.Amount.Cents
		case Expense:
			balances[key] -= t.Amount.Cents
		}
	}
	return balances
}
