package core

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"0.01", 1, true},
		{"0", 0, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-20000", 2000000, true},
		{"-0.015", 2, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"1e30", 0, false},
		{"10000000000000", MaxAmountCents, true},
		{"10000000000000.004", MaxAmountCents, true},
		{"10000000000000.01", 0, false},
		{"99999999999999", 0, false},
		{"0.0009", 0, true},
		{"1e-999999999", 0, true},
		{"1e999999999", 0, false},
		{"-1e999999999", 0, false},
		{"0." + strings.Repeat("0", 70) + "1", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
			continue
		}
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != "amount" {
			t.Fatalf("%q expected amount validation error, got %v", tc.in, err)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		out   string
	}{
		{`20000`, 2000000, `20000`},
		{`"12.50"`, 1250, `12.5`},
		{`0.1`, 10, `0.1`},
		{`-3.333`, 333, `3.33`},
	}
	for _, tc := range cases {
		var m Money
		if err := json.Unmarshal([]byte(tc.in), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.in, err)
		}
		if m.Cents != tc.cents {
			t.Fatalf("unmarshal %s: expected %d cents, got %d", tc.in, tc.cents, m.Cents)
		}
		b, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(b) != tc.out {
			t.Fatalf("marshal %d: expected %s, got %s", m.Cents, tc.out, b)
		}
	}

	var m Money
	if err := json.Unmarshal([]byte(`true`), &m); err == nil {
		t.Fatalf("expected error for boolean amount")
	}
}

func TestMoneyArithmeticIsExact(t *testing.T) {
	a, _ := ParseAmount("0.1")
	b, _ := ParseAmount("0.2")
	if got := a.Add(b); got.Cents != 30 || got.String() != "0.30" {
		t.Fatalf("0.1+0.2 = %s (%d cents)", got, got.Cents)
	}
	if got := a.Sub(b); got.Cents != -10 {
		t.Fatalf("0.1-0.2 = %d cents", got.Cents)
	}
}

func TestParseAmountHugeExponentIsRejectedQuickly(t *testing.T) {
	for _, in := range []string{"1e999999999", "1e50000000", "123.45e2000000000"} {
		done := make(chan error, 1)
		go func() {
			_, err := ParseAmount(in)
			done <- err
		}()
		select {
		case err := <-done:
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != "amount" {
				t.Errorf("%q expected amount validation error, got %v", in, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("ParseAmount(%q) did not return within 2s", in)
		}
	}
}

func TestMoneyValidateBounds(t *testing.T) {
	if err := (Money{Cents: MaxAmountCents}).Validate(); err != nil {
		t.Errorf("max amount rejected: %v", err)
	}
	if err := (Money{Cents: MaxAmountCents + 1}).Validate(); err == nil {
		t.Error("amount above the maximum accepted")
	}
	if err := (Money{Cents: -1}).Validate(); err == nil {
		t.Error("negative amount accepted")
	}
}

func TestCheckedAdd(t *testing.T) {
	cases := []struct {
		a, b int64
		want int64
		ok   bool
	}{
		{10, 20, 30, true},
		{math.MaxInt64 - 1, 1, math.MaxInt64, true},
		{math.MaxInt64, 1, 0, false},
		{math.MinInt64, -1, 0, false},
		{-5, -5, -10, true},
	}
	for _, tc := range cases {
		got, ok := Money{Cents: tc.a}.CheckedAdd(Money{Cents: tc.b})
		if ok != tc.ok || got.Cents != tc.want {
			t.Errorf("%d+%d = %d,%v want %d,%v", tc.a, tc.b, got.Cents, ok, tc.want, tc.ok)
		}
	}
}

func TestSummarize(t *testing.T) {
	big := Money{Cents: MaxAmountCents}
	txs := []Transaction{
		{Type: Income, Amount: big},
		{Type: Income, Amount: big},
		{Type: Expense, Amount: Money{Cents: 5}},
	}
	st, err := Summarize(txs)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if st.Income.Cents != 2*MaxAmountCents || st.Expense.Cents != 5 || st.Net.Cents != 2*MaxAmountCents-5 {
		t.Errorf("Summarize() = %+v", st)
	}

	wrapping := []Transaction{
		{Type: Income, Amount: Money{Cents: math.MaxInt64}},
		{Type: Income, Amount: Money{Cents: 1}},
	}
	if _, err := Summarize(wrapping); !errors.Is(err, ErrTotalOverflow) {
		t.Errorf("Summarize() error = %v, want ErrTotalOverflow", err)
	}
}
