package core

import (
	"strings"
	"testing"
)

func sampleTransactions() []Transaction {
	return []Transaction{
		{ID: 5, Type: Expense, Description: "Coffee beans", Amount: Money{Cents: 4500}, Category: "Food", Date: NewDate(2024, 5, 3)},
		{ID: 4, Type: Income, Description: "Salary", Amount: Money{Cents: 1000000}, Category: "Job", Date: NewDate(2024, 5, 1)},
		{ID: 3, Type: Expense, Description: "Bus ticket", Amount: Money{Cents: 350}, Category: "Transport", Date: NewDate(2024, 4, 28), Pinned: true},
		{ID: 2, Type: Income, Description: "Freelance gig", Amount: Money{Cents: 250000}, Category: "Job", Date: NewDate(2024, 4, 15)},
		{ID: 1, Type: Expense, Description: "Rent", Amount: Money{Cents: 800000}, Category: "Housing", Date: NewDate(2024, 4, 1)},
	}
}

func TestSearch(t *testing.T) {
	txs := sampleTransactions()

	cases := []struct {
		keyword string
		want    int
	}{
		{"", 5},
		{"  ", 5},
		{"salary", 1},
		{"SALARY", 1},
		{"job", 2},   // category match
		{"2024-04", 3}, // date match
		{"nothing-matches", 0},
	}
	for i, tc := range cases {
		got := Search(txs, tc.keyword)
		if len(got) != tc.want {
			t.Fatalf("case %d (%q): got %d results, want %d", i, tc.keyword, len(got), tc.want)
		}
		kw := strings.ToLower(strings.TrimSpace(tc.keyword))
		for _, tx := range got {
			if kw == "" {
				continue
			}
			if !strings.Contains(strings.ToLower(tx.Description), kw) &&
				!strings.Contains(strings.ToLower(tx.Category), kw) &&
				!strings.Contains(tx.Date.String(), kw) {
				t.Fatalf("case %d: %q kept transaction %d without a match", i, tc.keyword, tx.ID)
			}
		}
	}
}

func TestSearchDoesNotMutateInput(t *testing.T) {
	txs := sampleTransactions()
	_ = Search(txs, "salary")
	if txs[0].ID != 5 {
		t.Fatalf("input slice mutated")
	}
}

func TestSortForView(t *testing.T) {
	sorted := SortForView(sampleTransactions())

	for i := 0; i < len(sorted)-1; i++ {
		a, b := sorted[i], sorted[i+1]
		if !a.Pinned && b.Pinned {
			t.Fatalf("pinned entry %d sorted after unpinned %d", b.ID, a.ID)
		}
		if a.Pinned == b.Pinned && a.ID < b.ID {
			t.Fatalf("id order violated: %d before %d", a.ID, b.ID)
		}
	}
	if sorted[0].ID != 3 {
		t.Fatalf("expected pinned transaction first, got %d", sorted[0].ID)
	}
}

func TestPaginate(t *testing.T) {
	txs := SortForView(sampleTransactions())

	page1, got := Paginate(txs, 1, 2)
	if got != 1 || len(page1) != 2 {
		t.Fatalf("page 1: got page=%d len=%d", got, len(page1))
	}
	page3, got := Paginate(txs, 3, 2)
	if got != 3 || len(page3) != 1 {
		t.Fatalf("page 3: got page=%d len=%d", got, len(page3))
	}

	// A page beyond the end self-heals to page 1.
	healed, got := Paginate(txs, 4, 2)
	if got != 1 {
		t.Fatalf("expected reset to page 1, got %d", got)
	}
	if len(healed) != 2 || healed[0].ID != txs[0].ID {
		t.Fatalf("healed page is not the first page")
	}
}

func TestPaginateReassemblesWholeSet(t *testing.T) {
	txs := SortForView(sampleTransactions())

	var all []Transaction
	for page := 1; ; page++ {
		items, got := Paginate(txs, page, 2)
		if got != page {
			break // ran past the end
		}
		all = append(all, items...)
		if len(items) < 2 {
			break
		}
	}

	if len(all) != len(txs) {
		t.Fatalf("concatenated pages have %d items, want %d", len(all), len(txs))
	}
	for i := range all {
		if all[i].ID != txs[i].ID {
			t.Fatalf("position %d: got id %d want %d", i, all[i].ID, txs[i].ID)
		}
	}
}

func TestMonthlyAggregates(t *testing.T) {
	totals := MonthlyAggregates(sampleTransactions(), "2024-05")
	if totals.Income.Cents != 1000000 {
		t.Fatalf("income: got %d", totals.Income.Cents)
	}
	if totals.Expense.Cents != 4500 {
		t.Fatalf("expense: got %d", totals.Expense.Cents)
	}
	if totals.Balance.Cents != 995500 {
		t.Fatalf("balance: got %d", totals.Balance.Cents)
	}

	empty := MonthlyAggregates(sampleTransactions(), "2023-01")
	if empty.Income.Cents != 0 || empty.Expense.Cents != 0 || empty.Balance.Cents != 0 {
		t.Fatalf("empty month should aggregate to zero: %+v", empty)
	}
}

func TestAllMonthlyBalances(t *testing.T) {
	balances := AllMonthlyBalances(sampleTransactions())

	if len(balances) != 2 {
		t.Fatalf("expected 2 months, got %d", len(balances))
	}
	if balances["2024-05"] != 995500 {
		t.Fatalf("2024-05: got %d", balances["2024-05"])
	}
	// 250000 - 350 - 800000
	if balances["2024-04"] != -550350 {
		t.Fatalf("2024-04: got %d", balances["2024-04"])
	}
}
