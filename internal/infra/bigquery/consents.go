package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/gestorfin/backend/internal/domain"
)

type ConsentRow struct {
	ConsentID string `bigquery:"consent_id"` // REQUIRED

	UserID   string `bigquery:"user_id"`  // REQUIRED
	Token    string `bigquery:"token"`    // REQUIRED, unique among live rows
	Provider string `bigquery:"provider"` // REQUIRED
	Scopes   string `bigquery:"scopes"`   // REQUIRED
	Status   string `bigquery:"status"`   // REQUIRED, active|revoked|expired

	CreatedTS time.Time              `bigquery:"created_ts"` // REQUIRED
	DeletedTS bigquery.NullTimestamp `bigquery:"deleted_ts"` // NULLABLE
}

func consentToRow(c *domain.Consent) *ConsentRow {
	row := &ConsentRow{
		ConsentID: c.ID,
		UserID:    c.UserID,
		Token:     c.Token,
		Provider:  c.Provider,
		Scopes:    c.Scopes,
		Status:    string(c.Status),
		CreatedTS: c.CreatedAt,
	}
	if c.DeletedAt != nil {
		row.DeletedTS = bigquery.NullTimestamp{Timestamp: *c.DeletedAt, Valid: true}
	}
	return row
}

func consentFromRow(r *ConsentRow) *domain.Consent {
	c := &domain.Consent{
		ID:        r.ConsentID,
		UserID:    r.UserID,
		Token:     r.Token,
		Provider:  r.Provider,
		Scopes:    r.Scopes,
		Status:    domain.ConsentStatus(r.Status),
		CreatedAt: r.CreatedTS,
	}
	if r.DeletedTS.Valid {
		ts := r.DeletedTS.Timestamp
		c.DeletedAt = &ts
	}
	return c
}
