// Package services holds the typed façade over the persistence store
// and the backup/restore flow built on top of it.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"khata/internal/cache"
	"khata/internal/core"
	"khata/internal/storage"
)

// LedgerService converts between stored records and domain entities,
// validates writes, and computes per-person statistics. It is the only
// way callers reach the store.
type LedgerService struct {
	store storage.Store
	stats cache.Cache[core.PersonStats] // nil disables memoization
}

// NewLedgerService wraps a store. The stats cache may be nil.
func NewLedgerService(store storage.Store, stats cache.Cache[core.PersonStats]) *LedgerService {
	return &LedgerService{store: store, stats: stats}
}

// Initialize prepares the underlying store.
func (s *LedgerService) Initialize(ctx context.Context) error {
	return s.store.Initialize(ctx)
}

// Close releases the underlying store.
func (s *LedgerService) Close() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close ledger store: %w", err)
	}
	return nil
}

// Persons lists every person, ordered by name.
func (s *LedgerService) Persons(ctx context.Context) ([]core.Person, error) {
	recs, err := s.store.ListPersons(ctx)
	if err != nil {
		return nil, err
	}
	persons := make([]core.Person, 0, len(recs))
	for _, r := range recs {
		p, err := core.PersonFromRecord(r)
		if err != nil {
			slog.WarnContext(ctx, "Skipping unreadable person row", "person_id", r.ID, "error", err)
			continue
		}
		persons = append(persons, p)
	}
	return persons, nil
}

// AddPerson creates a person with a generated id and saves it.
func (s *LedgerService) AddPerson(ctx context.Context, name, phone, email, imageURI string) (core.Person, error) {
	p := core.NewPerson(GenerateID(), name, phone, email, imageURI)
	if err := s.SavePerson(ctx, p); err != nil {
		return core.Person{}, err
	}
	return p, nil
}

// SavePerson validates and upserts a person (full-record replace).
func (s *LedgerService) SavePerson(ctx context.Context, p core.Person) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.store.UpsertPerson(ctx, p.Record()); err != nil {
		return err
	}
	s.invalidate(p.ID)
	return nil
}

// DeletePerson removes a person and all their transactions.
func (s *LedgerService) DeletePerson(ctx context.Context, id string) error {
	if err := s.store.DeletePerson(ctx, id); err != nil {
		return err
	}
	s.invalidate(id)
	return nil
}

// Transactions lists every transaction, newest first.
func (s *LedgerService) Transactions(ctx context.Context) ([]core.Transaction, error) {
	recs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	return s.convertTransactions(ctx, recs), nil
}

// TransactionsForPerson lists one person's transactions, newest first.
func (s *LedgerService) TransactionsForPerson(ctx context.Context, personID string) ([]core.Transaction, error) {
	recs, err := s.store.ListTransactionsForPerson(ctx, personID)
	if err != nil {
		return nil, err
	}
	return s.convertTransactions(ctx, recs), nil
}

func (s *LedgerService) convertTransactions(ctx context.Context, recs []core.TransactionRecord) []core.Transaction {
	txns := make([]core.Transaction, 0, len(recs))
	for _, r := range recs {
		t, err := core.TransactionFromRecord(r)
		if err != nil {
			slog.WarnContext(ctx, "Skipping unreadable transaction row", "transaction_id", r.ID, "error", err)
			continue
		}
		txns = append(txns, t)
	}
	return txns
}

// AddTransaction parses the raw amount, creates a transaction with a
// generated id and saves it.
func (s *LedgerService) AddTransaction(ctx context.Context, personID, amount string, typ core.TxType, description string, date time.Time) (core.Transaction, error) {
	t, err := core.NewTransaction(GenerateID(), personID, amount, typ, description, date)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := s.SaveTransaction(ctx, t); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// SaveTransaction validates and upserts a transaction. The referenced
// person must exist.
func (s *LedgerService) SaveTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := s.store.UpsertTransaction(ctx, t.Record()); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("person %s: %w", t.PersonID, core.ErrMissingPerson)
		}
		return err
	}
	s.invalidate(t.PersonID)
	return nil
}

// DeleteTransaction removes one transaction. Stats for its person can
// no longer be told apart cheaply, so the whole cache is dropped.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.purge()
	return nil
}

// StatsForPerson returns the derived balance/given/taken summary for
// one person, memoized until the next write touching them.
func (s *LedgerService) StatsForPerson(ctx context.Context, personID string) (core.PersonStats, error) {
	if s.stats != nil {
		if cached, ok := s.stats.Get(personID); ok {
			return cached, nil
		}
	}

	txns, err := s.TransactionsForPerson(ctx, personID)
	if err != nil {
		return core.PersonStats{}, err
	}
	stats := core.StatsFor(txns)
	if s.stats != nil {
		s.stats.Set(personID, stats)
	}
	return stats, nil
}

// ClearAll empties the store.
func (s *LedgerService) ClearAll(ctx context.Context) error {
	if err := s.store.ClearAll(ctx); err != nil {
		return err
	}
	s.purge()
	return nil
}

// ExportSnapshot returns the full store contents as a snapshot.
func (s *LedgerService) ExportSnapshot(ctx context.Context) (core.Snapshot, error) {
	return s.store.ExportSnapshot(ctx)
}

// ImportSnapshot atomically replaces the store contents.
func (s *LedgerService) ImportSnapshot(ctx context.Context, snap core.Snapshot) error {
	if err := s.store.ImportSnapshot(ctx, snap); err != nil {
		return err
	}
	s.purge()
	return nil
}

func (s *LedgerService) invalidate(personID string) {
	if s.stats != nil {
		s.stats.Delete(personID)
	}
}

func (s *LedgerService) purge() {
	if s.stats != nil {
		s.stats.Purge()
	}
}

// GenerateID produces an id unique with overwhelming probability for a
// single installation: millisecond timestamp prefix (ids sort roughly
// by creation time) plus a random suffix.
func GenerateID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + suffix
}

// isForeignKeyViolation detects the SQLite referential-integrity error
// without depending on driver-specific error types.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
