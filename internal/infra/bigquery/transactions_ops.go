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

const transactionColumns = `
	transaction_id,
	user_id,
	description,
	amount,
	kind,
	transaction_date,
	created_ts,
	deleted_ts`

// InsertTransactions inserts the batch through the streaming inserter. The
// inserter either accepts the whole batch or reports an error; callers treat
// a returned error as zero rows imported.
func (s *Store) InsertTransactions(ctx context.Context, txs []*domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	rows := make([]*TransactionRow, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, transactionToRow(t))
	}

	table := s.client.DatasetInProject(s.projectID, s.datasetID).Table(transactionsTable)
	if err := table.Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return nil
}

// ListTransactions returns the user's live transactions, newest date first.
func (s *Store) ListTransactions(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	q := s.client.Query(`
		SELECT ` + transactionColumns + `
		FROM ` + s.table(transactionsTable) + `
		WHERE user_id = @user_id
		  AND deleted_ts IS NULL
		ORDER BY transaction_date DESC, created_ts DESC
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: query read: %w", err)
	}

	var txs []*domain.Transaction
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: iter next: %w", err)
		}
		txs = append(txs, transactionFromRow(&row))
	}
	return txs, nil
}

// GetTransaction returns a live transaction by id, or store.ErrNotFound.
func (s *Store) GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	q := s.client.Query(`
		SELECT ` + transactionColumns + `
		FROM ` + s.table(transactionsTable) + `
		WHERE transaction_id = @transaction_id
		  AND user_id = @user_id
		  AND deleted_ts IS NULL
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: id},
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: query read: %w", err)
	}

	var row TransactionRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, fmt.Errorf("GetTransaction: transaction %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: iter next: %w", err)
	}
	return transactionFromRow(&row), nil
}

// UpdateTransaction overwrites the mutable fields of a live transaction.
func (s *Store) UpdateTransaction(ctx context.Context, tx *domain.Transaction) error {
	q := s.client.Query(`
		UPDATE ` + s.table(transactionsTable) + `
		SET description = @description,
		    amount = @amount,
		    kind = @kind,
		    transaction_date = @transaction_date
		WHERE transaction_id = @transaction_id
		  AND user_id = @user_id
		  AND deleted_ts IS NULL
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "description", Value: tx.Description},
		{Name: "amount", Value: tx.Amount},
		{Name: "kind", Value: string(tx.Kind)},
		{Name: "transaction_date", Value: civil.DateOf(tx.Date)},
		{Name: "transaction_id", Value: tx.ID},
		{Name: "user_id", Value: tx.UserID},
	}

	if err := s.runDML(ctx, q); err != nil {
		return fmt.Errorf("UpdateTransaction: %w", err)
	}
	return nil
}

// SoftDeleteTransaction stamps deleted_ts. The row survives for audit but
// stops matching every live read.
func (s *Store) SoftDeleteTransaction(ctx context.Context, userID, id string) error {
	q := s.client.Query(`
		UPDATE ` + s.table(transactionsTable) + `
		SET deleted_ts = CURRENT_TIMESTAMP()
		WHERE transaction_id = @transaction_id
		  AND user_id = @user_id
		  AND deleted_ts IS NULL
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: id},
		{Name: "user_id", Value: userID},
	}

	if err := s.runDML(ctx, q); err != nil {
		return fmt.Errorf("SoftDeleteTransaction: %w", err)
	}
	return nil
}
