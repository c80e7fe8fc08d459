package domain

import (
	"fmt"
	"time"
)

// TransactionKind is the closed set of transaction types.
type TransactionKind string

const (
	KindIncome  TransactionKind = "income"
	KindExpense TransactionKind = "expense"
)

// Valid reports whether the kind is one of the closed set.
func (k TransactionKind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Transaction is a single income or expense record owned by a user.
// Records are never physically removed; DeletedAt marks a soft delete and
// soft-deleted rows are excluded from all reads, summaries and dedup sets.
type Transaction struct {
	ID          string
	UserID      string
	Description string
	Amount      float64 // always > 0; Kind carries the direction
	Kind        TransactionKind
	Date        time.Time // calendar date, time component ignored
	CreatedAt   time.Time
	DeletedAt   *time.Time
}

// Deleted reports whether the transaction has been soft-deleted.
func (t *Transaction) Deleted() bool {
	return t.DeletedAt != nil
}

// NormalizedTransaction is the provider-neutral shape every Open Finance
// source must produce. It is transient: built fresh per sync, never persisted.
type NormalizedTransaction struct {
	Description string          `json:"description"`
	Amount      float64         `json:"amount"`
	Kind        TransactionKind `json:"type"`
	Date        time.Time       `json:"date"`
}

// Validate checks the candidate against the Transaction invariants. A failing
// candidate is skipped during sync, it never aborts the batch.
func (n NormalizedTransaction) Validate() error {
	if n.Description == "" {
		return fmt.Errorf("empty description")
	}
	if n.Amount <= 0 {
		return fmt.Errorf("amount must be positive, got %.2f", n.Amount)
	}
	if !n.Kind.Valid() {
		return fmt.Errorf("invalid kind %q", n.Kind)
	}
	if n.Date.IsZero() {
		return fmt.Errorf("missing date")
	}
	return nil
}
