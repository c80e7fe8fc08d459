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

const investmentColumns = `
	investment_id,
	user_id,
	name,
	asset_type,
	amount,
	purchase_price,
	current_price,
	target_return,
	purchase_date,
	notes,
	created_ts,
	deleted_ts`

// InsertInvestment persists a new position.
func (s *Store) InsertInvestment(ctx context.Context, inv *domain.Investment) error {
	row := investmentToRow(inv)

	q := s.client.Query(`
		INSERT INTO ` + s.table(investmentsTable) + ` (` + investmentColumns + `)
		VALUES (@investment_id, @user_id, @name, @asset_type, @amount, @purchase_price,
		        @current_price, @target_return, @purchase_date, @notes, @created_ts, NULL)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "investment_id", Value: row.InvestmentID},
		{Name: "user_id", Value: row.UserID},
		{Name: "name", Value: row.Name},
		{Name: "asset_type", Value: row.AssetType},
		{Name: "amount", Value: row.Amount},
		{Name: "purchase_price", Value: row.PurchasePrice},
		{Name: "current_price", Value: row.CurrentPrice},
		{Name: "target_return", Value: row.TargetReturn},
		{Name: "purchase_date", Value: row.PurchaseDate},
		{Name: "notes", Value: row.Notes},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if err := s.runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertInvestment: %w", err)
	}
	return nil
}

// ListInvestments returns live positions, optionally filtered by asset type.
func (s *Store) ListInvestments(ctx context.Context, userID string, assetType domain.AssetType) ([]*domain.Investment, error) {
	query := `
		SELECT ` + investmentColumns + `
		FROM ` + s.table(investmentsTable) + `
		WHERE user_id = @user_id
		  AND deleted_ts IS NULL
	`
	params := []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}
	if assetType != "" {
		query += `  AND asset_type = @asset_type
	`
		params = append(params, bigquery.QueryParameter{Name: "asset_type", Value: string(assetType)})
	}
	query += `	ORDER BY purchase_date, created_ts`

	q := s.client.Query(query)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListInvestments: query read: %w", err)
	}

	var invs []*domain.Investment
	for {
		var row InvestmentRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListInvestments: iter next: %w", err)
		}
		invs = append(invs, investmentFromRow(&row))
	}
	return invs, nil
}

// GetInvestment returns a live position by id, or store.ErrNotFound.
func (s *Store) GetInvestment(ctx context.Context, userID, id string) (*domain.Investment, error) {
	q := s.client.Query(`
		SELECT ` + investmentColumns + `
		FROM ` + s.table(investmentsTable) + `
		WHERE investment_id = @investment_id
		  AND user_id = @user_id
		  AND deleted_ts IS NULL
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "investment_id", Value: id},
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetInvestment: query read: %w", err)
	}

	var row InvestmentRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, fmt.Errorf("GetInvestment: investment %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetInvestment: iter next: %w", err)
	}
	return investmentFromRow(&row), nil
}

// UpdateInvestment overwrites the mutable fields of a live position.
func (s *Store) UpdateInvestment(ctx context.Context, inv *domain.Investment) error {
	row := investmentToRow(inv)

	q := s.client.Query(`
		UPDATE ` + s.table(investmentsTable) + `
		SET name = @name,
		    asset_type = @asset_type,
		    amount = @amount,
		    purchase_price = @purchase_price,
		    current_price = @current_price,
		    target_return = @target_return,
		    purchase_date = @purchase_date,
		    notes = @notes
		WHERE investment_id = @investment_id
		  AND user_id = @user_id
		  AND deleted_ts IS NULL
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "name", Value: row.Name},
		{Name: "asset_type", Value: row.AssetType},
		{Name: "amount", Value: row.Amount},
		{Name: "purchase_price", Value: row.PurchasePrice},
		{Name: "current_price", Value: row.CurrentPrice},
		{Name: "target_return", Value: row.TargetReturn},
		{Name: "purchase_date", Value: civil.DateOf(inv.PurchaseDate)},
		{Name: "notes", Value: row.Notes},
		{Name: "investment_id", Value: inv.ID},
		{Name: "user_id", Value: inv.UserID},
	}

	if err := s.runDML(ctx, q); err != nil {
		return fmt.Errorf("UpdateInvestment: %w", err)
	}
	return nil
}

// SoftDeleteInvestment stamps deleted_ts.
func (s *Store) SoftDeleteInvestment(ctx context.Context, userID, id string) error {
	q := s.client.Query(`
		UPDATE ` + s.table(investmentsTable) + `
		SET deleted_ts = CURRENT_TIMESTAMP()
		WHERE investment_id = @investment_id
		  AND user_id = @user_id
		  AND deleted_ts IS NULL
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "investment_id", Value: id},
		{Name: "user_id", Value: userID},
	}

	if err := s.runDML(ctx, q); err != nil {
		return fmt.Errorf("SoftDeleteInvestment: %w", err)
	}
	return nil
}
