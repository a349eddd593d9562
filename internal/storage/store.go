// Package storage provides the SQLite-backed persistence layer for the
// ledger: two tables (persons, transactions) plus snapshot export and
// atomic import for backups.
package storage

import (
	"context"

	"khata/internal/core"
)

// Store is the persistence contract the service layer depends on.
//
// Listing operations degrade to an empty result when the underlying
// engine fails (logged, never fatal); every write propagates its error.
// Deleting a missing id is a no-op.
type Store interface {
	// Initialize opens or creates the backing database and schema.
	// Calling it again while open is a no-op; concurrent first calls
	// are collapsed into a single initialization.
	Initialize(ctx context.Context) error

	ListPersons(ctx context.Context) ([]core.PersonRecord, error)
	UpsertPerson(ctx context.Context, rec core.PersonRecord) error
	// DeletePerson removes the person and, in the same durable unit,
	// every transaction referencing them.
	DeletePerson(ctx context.Context, id string) error

	ListTransactions(ctx context.Context) ([]core.TransactionRecord, error)
	ListTransactionsForPerson(ctx context.Context, personID string) ([]core.TransactionRecord, error)
	UpsertTransaction(ctx context.Context, rec core.TransactionRecord) error
	DeleteTransaction(ctx context.Context, id string) error

	// ClearAll empties both tables in one transaction.
	ClearAll(ctx context.Context) error
	// ExportSnapshot returns the full current contents.
	ExportSnapshot(ctx context.Context) (core.Snapshot, error)
	// ImportSnapshot replaces all contents with the snapshot's, all or
	// nothing: a failure leaves the prior state intact.
	ImportSnapshot(ctx context.Context, snap core.Snapshot) error

	Close() error
}
