package core

import (
	"fmt"
	"time"
)

// Flat records are the shape entities take at the persistence boundary
// and inside backup documents. Field names match the backup format
// exactly; converting an entity to a record and back is lossless.

type PersonRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	ImageURI  string `json:"imageUri"`
	CreatedAt string `json:"createdAt"`
}

type TransactionRecord struct {
	ID          string  `json:"id"`
	PersonID    string  `json:"personId"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	CreatedAt   string  `json:"createdAt"`
}

// Snapshot is the complete export of the store at a point in time and
// doubles as the backup document.
type Snapshot struct {
	Version      string              `json:"version"`
	ExportDate   string              `json:"exportDate"`
	Persons      []PersonRecord      `json:"persons"`
	Transactions []TransactionRecord `json:"transactions"`
}

// SnapshotVersion identifies the backup document format.
const SnapshotVersion = "1.0.0"

// Record flattens a Person for persistence or backup.
func (p Person) Record() PersonRecord {
	return PersonRecord{
		ID:        p.ID,
		Name:      p.Name,
		Phone:     p.Phone,
		Email:     p.Email,
		ImageURI:  p.ImageURI,
		CreatedAt: p.CreatedAt.Format(TimeLayout),
	}
}

// PersonFromRecord is the exact inverse of Person.Record.
func PersonFromRecord(r PersonRecord) (Person, error) {
	createdAt, err := parseTime(r.CreatedAt)
	if err != nil {
		return Person{}, fmt.Errorf("person %s: %w", r.ID, err)
	}
	return Person{
		ID:        r.ID,
		Name:      r.Name,
		Phone:     r.Phone,
		Email:     r.Email,
		ImageURI:  r.ImageURI,
		CreatedAt: createdAt,
	}, nil
}

// Record flattens a Transaction for persistence or backup.
func (t Transaction) Record() TransactionRecord {
	return TransactionRecord{
		ID:          t.ID,
		PersonID:    t.PersonID,
		Amount:      t.Amount,
		Type:        string(t.Type),
		Description: t.Description,
		Date:        t.Date.Format(TimeLayout),
		CreatedAt:   t.CreatedAt.Format(TimeLayout),
	}
}

// TransactionFromRecord is the exact inverse of Transaction.Record.
func TransactionFromRecord(r TransactionRecord) (Transaction, error) {
	typ, err := ParseTxType(r.Type)
	if err != nil {
		return Transaction{}, fmt.Errorf("transaction %s: %w", r.ID, err)
	}
	date, err := parseTime(r.Date)
	if err != nil {
		return Transaction{}, fmt.Errorf("transaction %s: %w", r.ID, err)
	}
	createdAt, err := parseTime(r.CreatedAt)
	if err != nil {
		return Transaction{}, fmt.Errorf("transaction %s: %w", r.ID, err)
	}
	return Transaction{
		ID:          r.ID,
		PersonID:    r.PersonID,
		Amount:      r.Amount,
		Type:        typ,
		Description: r.Description,
		Date:        date,
		CreatedAt:   createdAt,
	}, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}
