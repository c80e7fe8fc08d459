// Package bigquery implements the Record Store on BigQuery. One table per
// record type in a single dataset, soft deletes via a deleted_ts column,
// batch inserts through the streaming inserter and mutations through
// parameterized DML.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/gestorfin/backend/internal/store"
)

const (
	transactionsTable = "transactions"
	consentsTable     = "consents"
	installmentsTable = "installments"
	investmentsTable  = "investments"
)

// Store is a BigQuery-backed store.Store bound to one project and dataset.
type Store struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewStore creates a store with its own BigQuery client.
func NewStore(ctx context.Context, projectID, datasetID string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewStore: bigquery client: %w", err)
	}
	return NewStoreWithClient(client, projectID, datasetID), nil
}

// NewStoreWithClient creates a store over an existing client. The caller
// keeps ownership of the client.
func NewStoreWithClient(client *bigquery.Client, projectID, datasetID string) *Store {
	return &Store{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
	}
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// table returns the fully qualified `project.dataset.table` name for use in
// query text.
func (s *Store) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", s.projectID, s.datasetID, name)
}

// runDML executes a parameterized DML statement and waits for completion.
func (s *Store) runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

var _ store.Store = (*Store)(nil)
