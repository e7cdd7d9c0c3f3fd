package core

import (
	"encoding/json"
	"testing"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-05-01")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.String() != "2024-05-01" {
		t.Fatalf("round trip mismatch: %s", d.String())
	}
	if d.MonthKey() != "2024-05" {
		t.Fatalf("month key mismatch: %s", d.MonthKey())
	}

	bads := []string{"", "2024-13-01", "01-05-2024", "2024-05", "yesterday"}
	for i, s := range bads {
		if _, err := ParseDate(s); err == nil {
			t.Fatalf("case %d expected error for %q", i, s)
		}
	}
}

func TestTypeValidate(t *testing.T) {
	cases := []struct {
		ty Type
		ok bool
	}{
		{Income, true},
		{Expense, true},
		{Type(""), false},
		{Type("transfer"), false},
	}
	for i, tc := range cases {
		err := tc.ty.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: -5}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Type:        Income,
		Description: "Salary",
		Amount:      Money{Cents: 100},
		Category:    "Job",
		Date:        NewDate(2024, 5, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Type: "other", Description: "a", Amount: Money{Cents: 1}, Category: "c", Date: NewDate(2024, 5, 1)},
		{Type: Income, Description: "  ", Amount: Money{Cents: 1}, Category: "c", Date: NewDate(2024, 5, 1)},
		{Type: Income, Description: "a", Amount: Money{Cents: 0}, Category: "c", Date: NewDate(2024, 5, 1)},
		{Type: Income, Description: "a", Amount: Money{Cents: 1}, Category: "", Date: NewDate(2024, 5, 1)},
		{Type: Income, Description: "a", Amount: Money{Cents: 1}, Category: "c"},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestTransactionJSONRoundTrip(t *testing.T) {
	tx := Transaction{
		ID:          1714550400000,
		Type:        Expense,
		Description: "Groceries",
		Amount:      Money{Cents: 125000},
		Category:    "Food",
		Date:        NewDate(2024, 5, 1),
		Pinned:      true,
	}

	raw, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Transaction
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.ID != tx.ID || back.Type != tx.Type || back.Description != tx.Description ||
		back.Amount != tx.Amount || back.Category != tx.Category ||
		back.Date.String() != tx.Date.String() || back.Pinned != tx.Pinned {
		t.Fatalf("round trip mismatch: got %+v want %+v", back, tx)
	}
}
