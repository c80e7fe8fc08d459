package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/gestorfin/backend/internal/domain"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	UserID      string  `bigquery:"user_id"`     // REQUIRED
	Description string  `bigquery:"description"` // REQUIRED STRING
	Amount      float64 `bigquery:"amount"`      // REQUIRED FLOAT64
	Kind        string  `bigquery:"kind"`        // REQUIRED, income|expense

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	CreatedTS time.Time              `bigquery:"created_ts"` // REQUIRED
	DeletedTS bigquery.NullTimestamp `bigquery:"deleted_ts"` // NULLABLE
}

func transactionToRow(t *domain.Transaction) *TransactionRow {
	row := &TransactionRow{
		TransactionID:   t.ID,
		UserID:          t.UserID,
		Description:     t.Description,
		Amount:          t.Amount,
		Kind:            string(t.Kind),
		TransactionDate: civil.DateOf(t.Date),
		CreatedTS:       t.CreatedAt,
	}
	if t.DeletedAt != nil {
		row.DeletedTS = bigquery.NullTimestamp{Timestamp: *t.DeletedAt, Valid: true}
	}
	return row
}

func transactionFromRow(r *TransactionRow) *domain.Transaction {
	t := &domain.Transaction{
		ID:          r.TransactionID,
		UserID:      r.UserID,
		Description: r.Description,
		Amount:      r.Amount,
		Kind:        domain.TransactionKind(r.Kind),
		Date:        r.TransactionDate.In(time.UTC),
		CreatedAt:   r.CreatedTS,
	}
	if r.DeletedTS.Valid {
		ts := r.DeletedTS.Timestamp
		t.DeletedAt = &ts
	}
	return t
}
