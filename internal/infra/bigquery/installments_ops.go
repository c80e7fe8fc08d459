package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/gestorfin/backend/internal/domain"
	"github.com/gestorfin/backend/internal/store"
)

const installmentColumns = `
	installment_id,
	user_id,
	description,
	monthly_value,
	total_months,
	date_added,
	created_ts,
	deleted_ts`

// InsertInstallment persists a new installment purchase.
func (s *Store) InsertInstallment(ctx context.Context, inst *domain.Installment) error {
	row := installmentToRow(inst)

	q := s.client.Query(`
		INSERT INTO ` + s.table(installmentsTable) + ` (` + installmentColumns + `)
		VALUES (@installment_id, @user_id, @description, @monthly_value, @total_months, @date_added, @created_ts, NULL)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "installment_id", Value: row.InstallmentID},
		{Name: "user_id", Value: row.UserID},
		{Name: "description", Value: row.Description},
		{Name: "monthly_value", Value: row.MonthlyValue},
		{Name: "total_months", Value: row.TotalMonths},
		{Name: "date_added", Value: row.DateAdded},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if err := s.runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertInstallment: %w", err)
	}
	return nil
}

// ListInstallments returns the user's live installments, oldest first.
func (s *Store) ListInstallments(ctx context.Context, userID string) ([]*domain.Installment, error) {
	q := s.client.Query(`
		SELECT ` + installmentColumns + `
		FROM ` + s.table(installmentsTable) + `
		WHERE user_id = @user_id
		  AND deleted_ts IS NULL
		ORDER BY date_added, created_ts
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListInstallments: query read: %w", err)
	}

	var insts []*domain.Installment
	for {
		var row InstallmentRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListInstallments: iter next: %w", err)
		}
		insts = append(insts, installmentFromRow(&row))
	}
	return insts, nil
}

// GetInstallment returns a live installment by id, or store.ErrNotFound.
func (s *Store) GetInstallment(ctx context.Context, userID, id string) (*domain.Installment, error) {
	q := s.client.Query(`
		SELECT ` + installmentColumns + `
		FROM ` + s.table(installmentsTable) + `
		WHERE installment_id = @installment_id
		  AND user_id = @user_id
		  AND deleted_ts IS NULL
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "installment_id", Value: id},
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetInstallment: query read: %w", err)
	}

	var row InstallmentRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, fmt.Errorf("GetInstallment: installment %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetInstallment: iter next: %w", err)
	}
	return installmentFromRow(&row), nil
}

// UpdateInstallment overwrites the mutable fields of a live installment.
func (s *Store) UpdateInstallment(ctx context.Context, inst *domain.Installment) error {
	q := s.client.Query(`
		UPDATE ` + s.table(installmentsTable) + `
		SET description = @description,
		    monthly_value = @monthly_value,
		    total_months = @total_months,
		    date_added = @date_added
		WHERE installment_id = @installment_id
		  AND user_id = @user_id
		  AND deleted_ts IS NULL
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "description", Value: inst.Description},
		{Name: "monthly_value", Value: inst.MonthlyValue},
		{Name: "total_months", Value: int64(inst.TotalMonths)},
		{Name: "date_added", Value: civil.DateOf(inst.DateAdded)},
		{Name: "installment_id", Value: inst.ID},
		{Name: "user_id", Value: inst.UserID},
	}

	if err := s.runDML(ctx, q); err != nil {
		return fmt.Errorf("UpdateInstallment: %w", err)
	}
	return nil
}

// SoftDeleteInstallment stamps deleted_ts.
func (s *Store) SoftDeleteInstallment(ctx context.Context, userID, id string) error {
	q := s.client.Query(`
		UPDATE ` + s.table(installmentsTable) + `
		SET deleted_ts = CURRENT_TIMESTAMP()
		WHERE installment_id = @installment_id
		  AND user_id = @user_id
		  AND deleted_ts IS NULL
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "installment_id", Value: id},
		{Name: "user_id", Value: userID},
	}

	if err := s.runDML(ctx, q); err != nil {
		return fmt.Errorf("SoftDeleteInstallment: %w", err)
	}
	return nil
}
