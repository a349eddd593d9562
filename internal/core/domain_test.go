package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"100", 100, true},
		{"100.50", 100.5, true},
		{" 30 ", 30, true},
		{"0", 0, true},
		{"", 0, false},
		{"abc", 0, false},
		{"12,34", 0, false},
		{"-5", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"+Inf", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("ParseAmount(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("ParseAmount(%q) expected ErrInvalidAmount, got %v", tc.in, err)
		}
	}
}

func TestParseTxType(t *testing.T) {
	if typ, err := ParseTxType("credit"); err != nil || typ != Credit {
		t.Fatalf("expected credit, got %v %v", typ, err)
	}
	if typ, err := ParseTxType("debit"); err != nil || typ != Debit {
		t.Fatalf("expected debit, got %v %v", typ, err)
	}
	for _, bad := range []string{"", "CREDIT", "loan", "given"} {
		if _, err := ParseTxType(bad); !errors.Is(err, ErrInvalidType) {
			t.Fatalf("ParseTxType(%q) expected ErrInvalidType, got %v", bad, err)
		}
	}
}

func TestNewTransaction(t *testing.T) {
	txn, err := NewTransaction("t1", "p1", "100.25", Credit, "lunch", time.Time{})
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}
	if txn.Amount != 100.25 {
		t.Errorf("amount = %v, want 100.25", txn.Amount)
	}
	if txn.Date.IsZero() || txn.CreatedAt.IsZero() {
		t.Error("expected date and createdAt to be stamped")
	}

	if _, err := NewTransaction("t2", "p1", "not-a-number", Credit, "", time.Time{}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := NewTransaction("t3", "p1", "10", "loan", "", time.Time{}); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestPersonValidate(t *testing.T) {
	good := NewPerson("p1", "Alice", "123", "a@example.com", "")
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		p    Person
		want error
	}{
		{Person{ID: "", Name: "Alice", CreatedAt: Now()}, ErrEmptyID},
		{Person{ID: "p1", Name: "", CreatedAt: Now()}, ErrEmptyName},
		{Person{ID: "p1", Name: "  ", CreatedAt: Now()}, ErrEmptyName},
		{Person{ID: "p1", Name: "Alice"}, ErrInvalidDate},
	}
	for i, tc := range cases {
		if err := tc.p.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d: got %v, want %v", i, err, tc.want)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		ID:        "t1",
		PersonID:  "p1",
		Amount:    10,
		Type:      Debit,
		Date:      Now(),
		CreatedAt: Now(),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		mutate func(Transaction) Transaction
		want   error
	}{
		{func(x Transaction) Transaction { x.ID = ""; return x }, ErrEmptyID},
		{func(x Transaction) Transaction { x.PersonID = ""; return x }, ErrMissingPerson},
		{func(x Transaction) Transaction { x.Amount = -1; return x }, ErrInvalidAmount},
		{func(x Transaction) Transaction { x.Type = "loan"; return x }, ErrInvalidType},
		{func(x Transaction) Transaction { x.Date = time.Time{}; return x }, ErrInvalidDate},
	}
	for i, tc := range cases {
		if err := tc.mutate(good).Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d: got %v, want %v", i, err, tc.want)
		}
	}
}

func TestRecordRoundTrip(t *testing.T) {
	p := NewPerson("p1", "Alice", "+91 55512", "alice@example.com", "file:///photos/alice.jpg")
	back, err := PersonFromRecord(p.Record())
	if err != nil {
		t.Fatalf("PersonFromRecord: %v", err)
	}
	if back.ID != p.ID || back.Name != p.Name || back.Phone != p.Phone ||
		back.Email != p.Email || back.ImageURI != p.ImageURI || !back.CreatedAt.Equal(p.CreatedAt) {
		t.Errorf("person round trip mismatch: got %+v, want %+v", back, p)
	}

	txn, err := NewTransaction("t1", "p1", "99.99", Debit, "groceries", Now())
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}
	got, err := TransactionFromRecord(txn.Record())
	if err != nil {
		t.Fatalf("TransactionFromRecord: %v", err)
	}
	if got.ID != txn.ID || got.PersonID != txn.PersonID || got.Amount != txn.Amount ||
		got.Type != txn.Type || got.Description != txn.Description ||
		!got.Date.Equal(txn.Date) || !got.CreatedAt.Equal(txn.CreatedAt) {
		t.Errorf("transaction round trip mismatch: got %+v, want %+v", got, txn)
	}
}

func TestRecordRejectsBadFields(t *testing.T) {
	if _, err := PersonFromRecord(PersonRecord{ID: "p1", Name: "Alice", CreatedAt: "yesterday"}); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	rec := TransactionRecord{ID: "t1", PersonID: "p1", Amount: 5, Type: "loan", Date: Now().Format(TimeLayout), CreatedAt: Now().Format(TimeLayout)}
	if _, err := TransactionFromRecord(rec); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}
