package core

import (
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"
)

func validTx() Transaction {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return Transaction{
		ID:            "a",
		Type:          Income,
		Division:      Personal,
		Category:      "Salary",
		Amount:        Money{Cents: 2000000},
		Description:   "Monthly salary",
		Date:          now,
		CreatedAt:     now,
		EditableUntil: now.Add(EditWindow),
	}
}

func TestTransactionValidate(t *testing.T) {
	cases := []struct {
		name  string
		mut   func(*Transaction)
		field string
	}{
		{"ok", func(*Transaction) {}, ""},
		{"bad type", func(tx *Transaction) { tx.Type = "gift" }, "type"},
		{"bad division", func(tx *Transaction) { tx.Division = "All" }, "division"},
		{"blank category", func(tx *Transaction) { tx.Category = "  " }, "category"},
		{"blank description", func(tx *Transaction) { tx.Description = "" }, "description"},
		{"negative amount", func(tx *Transaction) { tx.Amount = Money{Cents: -1} }, "amount"},
		{"zero date", func(tx *Transaction) { tx.Date = time.Time{} }, "date"},
	}
	for _, tc := range cases {
		tx := validTx()
		tc.mut(&tx)
		err := tx.Validate()
		if tc.field == "" {
			if err != nil {
				t.Fatalf("%s: unexpected error %v", tc.name, err)
			}
			continue
		}
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != tc.field {
			t.Fatalf("%s: expected validation error on %s, got %v", tc.name, tc.field, err)
		}
	}
}

func TestEditable(t *testing.T) {
	tx := validTx()
	if !tx.Editable(tx.EditableUntil) {
		t.Fatalf("record must be editable exactly at the deadline")
	}
	if tx.Editable(tx.EditableUntil.Add(time.Millisecond)) {
		t.Fatalf("record must be locked after the deadline")
	}
}

func TestPatchApplyKeepsIdentity(t *testing.T) {
	tx := validTx()
	cat := "Bonus"
	typ := Expense
	p := Patch{Category: &cat, Type: &typ}
	p.Apply(&tx)
	if tx.Category != "Bonus" || tx.Type != Expense {
		t.Fatalf("patch not applied: %+v", tx)
	}
	if tx.ID != "a" || tx.Description != "Monthly salary" || !tx.EditableUntil.Equal(tx.CreatedAt.Add(EditWindow)) {
		t.Fatalf("untouched fields changed: %+v", tx)
	}
	if (Patch{}).Empty() != true || p.Empty() {
		t.Fatalf("Empty mismatch")
	}
}

func TestFilterMatches(t *testing.T) {
	tx := validTx()
	from := tx.Date.Add(-time.Hour)
	to := tx.Date
	before := tx.Date.Add(-2 * time.Hour)
	cases := []struct {
		f    Filter
		want bool
	}{
		{Filter{}, true},
		{Filter{Division: "Personal"}, true},
		{Filter{Division: "Office"}, false},
		{Filter{Category: "Salary"}, true},
		{Filter{Category: "salary"}, false},
		{Filter{From: &from, To: &to}, true},
		{Filter{To: &before}, false},
	}
	for i, tc := range cases {
		if got := tc.f.Matches(tx); got != tc.want {
			t.Fatalf("case %d: got %v want %v", i, got, tc.want)
		}
	}
}

func TestLessOrdersByDateDesc(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []Transaction{
		{ID: "old", Date: base},
		{ID: "new", Date: base.Add(48 * time.Hour)},
		{ID: "mid", Date: base.Add(24 * time.Hour)},
	}
	sort.Slice(txs, func(i, j int) bool { return Less(txs[i], txs[j]) })
	if txs[0].ID != "new" || txs[1].ID != "mid" || txs[2].ID != "old" {
		t.Fatalf("unexpected order: %s %s %s", txs[0].ID, txs[1].ID, txs[2].ID)
	}
}

func TestDateDecoding(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2024-03-05"`), &d); err != nil {
		t.Fatalf("calendar date: %v", err)
	}
	if !d.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("got %v", d.Time)
	}
	if err := json.Unmarshal([]byte(`"2024-03-05T10:30:00+02:00"`), &d); err != nil {
		t.Fatalf("rfc3339: %v", err)
	}
	if !d.Equal(time.Date(2024, 3, 5, 8, 30, 0, 0, time.UTC)) {
		t.Fatalf("got %v", d.Time)
	}
	if err := json.Unmarshal([]byte(`"yesterday"`), &d); err == nil {
		t.Fatalf("expected error")
	}
	if got := EndOfDay(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)); got.Format(time.RFC3339Nano) != "2024-03-05T23:59:59.999Z" {
		t.Fatalf("EndOfDay = %s", got.Format(time.RFC3339Nano))
	}
}
