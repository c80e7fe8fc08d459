package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/gestorfin/backend/internal/domain"
)

type InvestmentRow struct {
	InvestmentID string `bigquery:"investment_id"` // REQUIRED

	UserID    string `bigquery:"user_id"`    // REQUIRED
	Name      string `bigquery:"name"`       // REQUIRED STRING
	AssetType string `bigquery:"asset_type"` // REQUIRED, closed set

	Amount        float64 `bigquery:"amount"`         // REQUIRED FLOAT64, quantity held
	PurchasePrice float64 `bigquery:"purchase_price"` // REQUIRED FLOAT64
	CurrentPrice  float64 `bigquery:"current_price"`  // REQUIRED FLOAT64
	TargetReturn  float64 `bigquery:"target_return"`  // NULLABLE-as-zero FLOAT64

	PurchaseDate civil.Date          `bigquery:"purchase_date"` // REQUIRED
	Notes        bigquery.NullString `bigquery:"notes"`         // NULLABLE

	CreatedTS time.Time              `bigquery:"created_ts"` // REQUIRED
	DeletedTS bigquery.NullTimestamp `bigquery:"deleted_ts"` // NULLABLE
}

func investmentToRow(v *domain.Investment) *InvestmentRow {
	row := &InvestmentRow{
		InvestmentID:  v.ID,
		UserID:        v.UserID,
		Name:          v.Name,
		AssetType:     string(v.AssetType),
		Amount:        v.Amount,
		PurchasePrice: v.PurchasePrice,
		CurrentPrice:  v.CurrentPrice,
		TargetReturn:  v.TargetReturn,
		PurchaseDate:  civil.DateOf(v.PurchaseDate),
		CreatedTS:     v.CreatedAt,
	}
	if v.Notes != "" {
		row.Notes = bigquery.NullString{StringVal: v.Notes, Valid: true}
	}
	if v.DeletedAt != nil {
		row.DeletedTS = bigquery.NullTimestamp{Timestamp: *v.DeletedAt, Valid: true}
	}
	return row
}

func investmentFromRow(r *InvestmentRow) *domain.Investment {
	v := &domain.Investment{
		ID:            r.InvestmentID,
		UserID:        r.UserID,
		Name:          r.Name,
		AssetType:     domain.AssetType(r.AssetType),
		Amount:        r.Amount,
		PurchasePrice: r.PurchasePrice,
		CurrentPrice:  r.CurrentPrice,
		TargetReturn:  r.TargetReturn,
		PurchaseDate:  r.PurchaseDate.In(time.UTC),
		CreatedAt:     r.CreatedTS,
	}
	if r.Notes.Valid {
		v.Notes = r.Notes.StringVal
	}
	if r.DeletedTS.Valid {
		ts := r.DeletedTS.Timestamp
		v.DeletedAt = &ts
	}
	return v
}
