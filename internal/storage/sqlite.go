package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	"khata/internal/core"
)

// ErrInitialization wraps any failure to open the database or set up
// the schema. Operations keep returning it until a retry succeeds.
var ErrInitialization = errors.New("store initialization failed")

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store on a local SQLite file.
//
// The zero of the lifecycle is "not open": Initialize (or the first
// operation, which initializes lazily) opens the file and runs
// migrations. Concurrent initialization attempts share a single flight,
// so exactly one schema setup runs and a failure stays retryable.
type SQLiteStore struct {
	path string

	mu   sync.Mutex
	db   *sql.DB
	init singleflight.Group
}

// New returns an unopened store for the given database path.
func New(dbPath string) *SQLiteStore {
	return &SQLiteStore{path: dbPath}
}

// Initialize opens or creates the database and brings the schema up to
// date. Safe to call repeatedly and concurrently.
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	_, err, _ := s.init.Do("initialize", func() (any, error) {
		s.mu.Lock()
		already := s.db != nil
		s.mu.Unlock()
		if already {
			return nil, nil
		}

		db, err := s.open()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInitialization, err)
		}

		s.mu.Lock()
		s.db = db
		s.mu.Unlock()
		return nil, nil
	})
	return err
}

func (s *SQLiteStore) open() (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// The pragma rides on the DSN so every pooled connection enforces
	// foreign keys; a plain PRAGMA exec only reaches one connection.
	dsn := "file:" + s.path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// Single logical writer model.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(s.path); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Close releases the database handle. The store can be re-initialized
// afterwards.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// ensureInitialized covers callers that skipped the explicit startup
// step, matching the lazy-open behavior of the original store.
func (s *SQLiteStore) ensureInitialized(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db != nil {
		return db, nil
	}

	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	db = s.db
	s.mu.Unlock()
	if db == nil {
		return nil, ErrInitialization
	}
	return db, nil
}

// ListPersons returns every person ordered by name. Engine failures
// degrade to an empty result so a transient read error cannot take the
// caller down.
func (s *SQLiteStore) ListPersons(ctx context.Context) ([]core.PersonRecord, error) {
	db, err := s.ensureInitialized(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Read degraded to empty result", "operation", "list persons", "error", err)
		return nil, nil
	}
	recs, err := listPersons(ctx, db)
	if err != nil {
		slog.WarnContext(ctx, "Read degraded to empty result", "operation", "list persons", "error", err)
		return nil, nil
	}
	return recs, nil
}

func listPersons(ctx context.Context, db *sql.DB) ([]core.PersonRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, phone, email, imageUri, createdAt FROM persons ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query persons: %w", err)
	}
	defer rows.Close()

	var recs []core.PersonRecord
	for rows.Next() {
		var r core.PersonRecord
		var phone, email, imageURI sql.NullString
		if err := rows.Scan(&r.ID, &r.Name, &phone, &email, &imageURI, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		r.Phone, r.Email, r.ImageURI = phone.String, email.String, imageURI.String
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate persons: %w", err)
	}
	return recs, nil
}

// UpsertPerson inserts or replaces the person keyed on id.
func (s *SQLiteStore) UpsertPerson(ctx context.Context, rec core.PersonRecord) error {
	db, err := s.ensureInitialized(ctx)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT OR REPLACE INTO persons (id, name, phone, email, imageUri, createdAt)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, nullable(rec.Phone), nullable(rec.Email), nullable(rec.ImageURI), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert person: %w", err)
	}
	return nil
}

// DeletePerson removes the person row. The transactions referencing it
// go with it through the declared ON DELETE CASCADE, so the pair is one
// durable unit. Deleting a missing id is a no-op.
func (s *SQLiteStore) DeletePerson(ctx context.Context, id string) error {
	db, err := s.ensureInitialized(ctx)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM persons WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	return nil
}

// ListTransactions returns every transaction, newest date first.
// Failures degrade to an empty result.
func (s *SQLiteStore) ListTransactions(ctx context.Context) ([]core.TransactionRecord, error) {
	return s.listTransactionsWhere(ctx, "list transactions", "", nil)
}

// ListTransactionsForPerson returns one person's transactions, newest
// date first. Failures degrade to an empty result.
func (s *SQLiteStore) ListTransactionsForPerson(ctx context.Context, personID string) ([]core.TransactionRecord, error) {
	return s.listTransactionsWhere(ctx, "list transactions for person", "WHERE personId = ?", []any{personID})
}

func (s *SQLiteStore) listTransactionsWhere(ctx context.Context, op, where string, args []any) ([]core.TransactionRecord, error) {
	db, err := s.ensureInitialized(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Read degraded to empty result", "operation", op, "error", err)
		return nil, nil
	}
	recs, err := listTransactions(ctx, db, where, args...)
	if err != nil {
		slog.WarnContext(ctx, "Read degraded to empty result", "operation", op, "error", err)
		return nil, nil
	}
	return recs, nil
}

func listTransactions(ctx context.Context, db *sql.DB, where string, args ...any) ([]core.TransactionRecord, error) {
	query := `SELECT id, personId, amount, type, description, date, createdAt FROM transactions `
	if where != "" {
		query += where + " "
	}
	query += `ORDER BY date DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var recs []core.TransactionRecord
	for rows.Next() {
		var r core.TransactionRecord
		var description sql.NullString
		if err := rows.Scan(&r.ID, &r.PersonID, &r.Amount, &r.Type, &description, &r.Date, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		r.Description = description.String
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return recs, nil
}

// UpsertTransaction inserts or replaces the transaction keyed on id.
// The referenced person must exist; the foreign key rejects orphans.
func (s *SQLiteStore) UpsertTransaction(ctx context.Context, rec core.TransactionRecord) error {
	db, err := s.ensureInitialized(ctx)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT OR REPLACE INTO transactions (id, personId, amount, type, description, date, createdAt)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.PersonID, rec.Amount, rec.Type, nullable(rec.Description), rec.Date, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert transaction: %w", err)
	}
	return nil
}

// DeleteTransaction removes one transaction. Missing id is a no-op.
func (s *SQLiteStore) DeleteTransaction(ctx context.Context, id string) error {
	db, err := s.ensureInitialized(ctx)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

// ClearAll deletes every row from both tables atomically.
func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	db, err := s.ensureInitialized(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM persons`); err != nil {
		return fmt.Errorf("clear persons: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}
	slog.InfoContext(ctx, "All ledger data cleared")
	return nil
}

// ExportSnapshot captures the full store contents. Unlike the listing
// operations this propagates read failures: an incomplete backup must
// never look like a successful one.
func (s *SQLiteStore) ExportSnapshot(ctx context.Context) (core.Snapshot, error) {
	db, err := s.ensureInitialized(ctx)
	if err != nil {
		return core.Snapshot{}, err
	}

	persons, err := listPersons(ctx, db)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("export snapshot: %w", err)
	}
	txns, err := listTransactions(ctx, db, "")
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("export snapshot: %w", err)
	}

	if persons == nil {
		persons = []core.PersonRecord{}
	}
	if txns == nil {
		txns = []core.TransactionRecord{}
	}
	return core.Snapshot{
		Version:      core.SnapshotVersion,
		ExportDate:   core.Now().Format(core.TimeLayout),
		Persons:      persons,
		Transactions: txns,
	}, nil
}

// ImportSnapshot replaces all contents with the snapshot's inside one
// transaction: clear both tables, insert persons, insert transactions.
// Any failure rolls the store back to its pre-import state.
func (s *SQLiteStore) ImportSnapshot(ctx context.Context, snap core.Snapshot) error {
	db, err := s.ensureInitialized(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM persons`); err != nil {
		return fmt.Errorf("clear persons: %w", err)
	}

	for _, p := range snap.Persons {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO persons (id, name, phone, email, imageUri, createdAt)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, nullable(p.Phone), nullable(p.Email), nullable(p.ImageURI), p.CreatedAt)
		if err != nil {
			return fmt.Errorf("import person %s: %w", p.ID, err)
		}
	}
	for _, t := range snap.Transactions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (id, personId, amount, type, description, date, createdAt)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.PersonID, t.Amount, t.Type, nullable(t.Description), t.Date, t.CreatedAt)
		if err != nil {
			return fmt.Errorf("import transaction %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	slog.InfoContext(ctx, "Snapshot imported",
		"persons", len(snap.Persons), "transactions", len(snap.Transactions))
	return nil
}

// nullable maps the empty string to NULL so optional columns store the
// same value whichever path wrote them.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
