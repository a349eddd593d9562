package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"khata/internal/cache"
	"khata/internal/core"
	"khata/internal/storage"
)

func newTestLedger(t *testing.T) *LedgerService {
	t.Helper()
	store := storage.New(filepath.Join(t.TempDir(), "khata.db"))
	svc := NewLedgerService(store, cache.NewLRUCache[core.PersonStats](64, time.Minute))
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestLedgerScenario(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	alice, err := svc.AddPerson(ctx, "Alice", "", "", "")
	if err != nil {
		t.Fatalf("AddPerson: %v", err)
	}
	if alice.ID == "" {
		t.Fatal("expected generated id")
	}

	stats, err := svc.StatsForPerson(ctx, alice.ID)
	if err != nil {
		t.Fatalf("StatsForPerson: %v", err)
	}
	if stats.Balance != 0 {
		t.Errorf("fresh person balance = %v, want 0", stats.Balance)
	}

	if _, err := svc.AddTransaction(ctx, alice.ID, "100", core.Credit, "", time.Time{}); err != nil {
		t.Fatalf("AddTransaction credit: %v", err)
	}
	stats, _ = svc.StatsForPerson(ctx, alice.ID)
	if stats.Balance != 100 || stats.GivenTotal != 100 || stats.TakenTotal != 0 {
		t.Errorf("after credit: %+v, want balance=100 given=100 taken=0", stats)
	}

	if _, err := svc.AddTransaction(ctx, alice.ID, "30", core.Debit, "", time.Time{}); err != nil {
		t.Fatalf("AddTransaction debit: %v", err)
	}
	stats, _ = svc.StatsForPerson(ctx, alice.ID)
	if stats.Balance != 70 {
		t.Errorf("after debit balance = %v, want 70", stats.Balance)
	}
	if stats.TransactionCount != 2 {
		t.Errorf("count = %d, want 2", stats.TransactionCount)
	}
	if stats.LastTransactionDate == nil {
		t.Error("expected a last transaction date")
	}

	if err := svc.DeletePerson(ctx, alice.ID); err != nil {
		t.Fatalf("DeletePerson: %v", err)
	}
	txns, err := svc.TransactionsForPerson(ctx, alice.ID)
	if err != nil {
		t.Fatalf("TransactionsForPerson: %v", err)
	}
	if len(txns) != 0 {
		t.Errorf("expected cascade delete, found %d transactions", len(txns))
	}
}

func TestSaveRejectsInvalidEntities(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	if _, err := svc.AddPerson(ctx, "", "", "", ""); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if _, err := svc.AddTransaction(ctx, "p1", "ten rupees", core.Credit, "", time.Time{}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := svc.AddTransaction(ctx, "p1", "10", "loan", "", time.Time{}); !errors.Is(err, core.ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestSaveTransactionRequiresPerson(t *testing.T) {
	svc := newTestLedger(t)
	_, err := svc.AddTransaction(context.Background(), "nobody", "10", core.Credit, "", time.Time{})
	if !errors.Is(err, core.ErrMissingPerson) {
		t.Fatalf("expected ErrMissingPerson, got %v", err)
	}
}

func TestEditReplacesTransaction(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	alice, err := svc.AddPerson(ctx, "Alice", "", "", "")
	if err != nil {
		t.Fatalf("AddPerson: %v", err)
	}
	txn, err := svc.AddTransaction(ctx, alice.ID, "100", core.Credit, "first", time.Time{})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	txn.Amount = 250
	txn.Description = "edited"
	if err := svc.SaveTransaction(ctx, txn); err != nil {
		t.Fatalf("SaveTransaction edit: %v", err)
	}

	txns, _ := svc.TransactionsForPerson(ctx, alice.ID)
	if len(txns) != 1 {
		t.Fatalf("expected 1 transaction after edit, got %d", len(txns))
	}
	if txns[0].Amount != 250 || txns[0].Description != "edited" {
		t.Errorf("edit did not take: %+v", txns[0])
	}
}

func TestStatsCacheInvalidation(t *testing.T) {
	svc := newTestLedger(t)
	ctx := context.Background()

	alice, err := svc.AddPerson(ctx, "Alice", "", "", "")
	if err != nil {
		t.Fatalf("AddPerson: %v", err)
	}
	if _, err := svc.AddTransaction(ctx, alice.ID, "100", core.Credit, "", time.Time{}); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	stats, _ := svc.StatsForPerson(ctx, alice.ID)
	if stats.Balance != 100 {
		t.Fatalf("balance = %v, want 100", stats.Balance)
	}

	// A write for the person must not leave the memoized value behind.
	if _, err := svc.AddTransaction(ctx, alice.ID, "40", core.Debit, "", time.Time{}); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	stats, _ = svc.StatsForPerson(ctx, alice.ID)
	if stats.Balance != 60 {
		t.Errorf("stale stats after write: balance = %v, want 60", stats.Balance)
	}

	// Deleting a transaction drops the whole cache.
	txns, _ := svc.TransactionsForPerson(ctx, alice.ID)
	if err := svc.DeleteTransaction(ctx, txns[0].ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	stats, _ = svc.StatsForPerson(ctx, alice.ID)
	if stats.TransactionCount != 1 {
		t.Errorf("stale stats after delete: count = %d, want 1", stats.TransactionCount)
	}
}

func TestGenerateID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := GenerateID()
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
		if len(id) < 14 {
			t.Fatalf("id suspiciously short: %s", id)
		}
	}
}
