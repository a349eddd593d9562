// Package core defines the ledger's domain entities and the derived
// values computed from them.
package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the wire format for every timestamp in the ledger:
// RFC 3339 with millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

const (
	// Credit is money given to a person (raises their balance).
	Credit TxType = "credit"
	// Debit is money taken from a person (lowers their balance).
	Debit TxType = "debit"
)

type (
	// TxType is the direction of a transaction. Amounts are always
	// positive magnitudes; the type carries the sign.
	TxType string

	Person struct {
		ID        string
		Name      string
		Phone     string
		Email     string
		ImageURI  string
		CreatedAt time.Time
	}

	Transaction struct {
		ID          string
		PersonID    string
		Amount      float64
		Type        TxType
		Description string
		Date        time.Time
		CreatedAt   time.Time
	}
)

var (
	ErrEmptyID       = errors.New("empty id")
	ErrEmptyName     = errors.New("empty name")
	ErrMissingPerson = errors.New("missing person id")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidDate   = errors.New("invalid date")
)

// ParseTxType validates a raw transaction type string.
func ParseTxType(s string) (TxType, error) {
	switch TxType(s) {
	case Credit, Debit:
		return TxType(s), nil
	}
	return "", ErrInvalidType
}

// ParseAmount converts a user-entered amount string to a float64
// magnitude. Negative, non-finite and non-numeric input is rejected.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// Now returns the current UTC time truncated to the precision the wire
// format carries, so stamped values survive a serialization round trip.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// NewPerson builds a Person stamped with the current creation time.
func NewPerson(id, name, phone, email, imageURI string) Person {
	return Person{
		ID:        id,
		Name:      name,
		Phone:     phone,
		Email:     email,
		ImageURI:  imageURI,
		CreatedAt: Now(),
	}
}

// NewTransaction builds a Transaction from a raw amount string, parsing
// and rejecting invalid amounts before anything is persisted. A zero
// date defaults to the current time.
func NewTransaction(id, personID, amount string, typ TxType, description string, date time.Time) (Transaction, error) {
	v, err := ParseAmount(amount)
	if err != nil {
		return Transaction{}, err
	}
	if _, err := ParseTxType(string(typ)); err != nil {
		return Transaction{}, err
	}
	if date.IsZero() {
		date = Now()
	}
	return Transaction{
		ID:          id,
		PersonID:    personID,
		Amount:      v,
		Type:        typ,
		Description: description,
		Date:        date,
		CreatedAt:   Now(),
	}, nil
}

func (p Person) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.CreatedAt.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(t.PersonID) == "" {
		return ErrMissingPerson
	}
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) || t.Amount < 0 {
		return ErrInvalidAmount
	}
	if _, err := ParseTxType(string(t.Type)); err != nil {
		return err
	}
	if t.Date.IsZero() || t.CreatedAt.IsZero() {
		return ErrInvalidDate
	}
	return nil
}
