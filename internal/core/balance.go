package core

import "time"

// PersonStats is the per-person summary the dashboard consumes. All of
// it is derived from the person's transactions and never stored.
type PersonStats struct {
	Balance             float64
	GivenTotal          float64
	TakenTotal          float64
	TransactionCount    int
	LastTransactionDate *time.Time // nil when the person has no transactions
}

// ComputeBalance reduces a transaction list to credits minus debits.
// An empty list yields 0.
func ComputeBalance(txns []Transaction) float64 {
	var balance float64
	for _, t := range txns {
		if t.Type == Credit {
			balance += t.Amount
		} else {
			balance -= t.Amount
		}
	}
	return balance
}

// StatsFor aggregates a person's transactions into PersonStats.
func StatsFor(txns []Transaction) PersonStats {
	stats := PersonStats{TransactionCount: len(txns)}
	for _, t := range txns {
		if t.Type == Credit {
			stats.GivenTotal += t.Amount
		} else {
			stats.TakenTotal += t.Amount
		}
		if stats.LastTransactionDate == nil || t.Date.After(*stats.LastTransactionDate) {
			d := t.Date
			stats.LastTransactionDate = &d
		}
	}
	stats.Balance = ComputeBalance(txns)
	return stats
}
