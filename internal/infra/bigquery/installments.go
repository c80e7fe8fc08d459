package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/gestorfin/backend/internal/domain"
)

type InstallmentRow struct {
	InstallmentID string `bigquery:"installment_id"` // REQUIRED

	UserID       string  `bigquery:"user_id"`       // REQUIRED
	Description  string  `bigquery:"description"`   // REQUIRED STRING
	MonthlyValue float64 `bigquery:"monthly_value"` // REQUIRED FLOAT64
	TotalMonths  int64   `bigquery:"total_months"`  // REQUIRED INT64

	DateAdded civil.Date `bigquery:"date_added"` // REQUIRED

	CreatedTS time.Time              `bigquery:"created_ts"` // REQUIRED
	DeletedTS bigquery.NullTimestamp `bigquery:"deleted_ts"` // NULLABLE
}

func installmentToRow(i *domain.Installment) *InstallmentRow {
	row := &InstallmentRow{
		InstallmentID: i.ID,
		UserID:        i.UserID,
		Description:   i.Description,
		MonthlyValue:  i.MonthlyValue,
		TotalMonths:   int64(i.TotalMonths),
		DateAdded:     civil.DateOf(i.DateAdded),
		CreatedTS:     i.CreatedAt,
	}
	if i.DeletedAt != nil {
		row.DeletedTS = bigquery.NullTimestamp{Timestamp: *i.DeletedAt, Valid: true}
	}
	return row
}

func installmentFromRow(r *InstallmentRow) *domain.Installment {
	i := &domain.Installment{
		ID:           r.InstallmentID,
		UserID:       r.UserID,
		Description:  r.Description,
		MonthlyValue: r.MonthlyValue,
		TotalMonths:  int(r.TotalMonths),
		DateAdded:    r.DateAdded.In(time.UTC),
		CreatedAt:    r.CreatedTS,
	}
	if r.DeletedTS.Valid {
		ts := r.DeletedTS.Timestamp
		i.DeletedAt = &ts
	}
	return i
}
