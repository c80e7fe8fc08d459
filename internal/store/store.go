// Package store defines the Record Store interfaces the rest of the
// application depends on. Two implementations exist: the BigQuery-backed
// store in internal/infra/bigquery and the in-memory store in
// internal/store/inmemory used for tests and local development.
package store

import (
	"context"
	"errors"

	"github.com/gestorfin/backend/internal/domain"
)

// ErrNotFound is returned by lookups whose target row does not exist or has
// been soft-deleted.
var ErrNotFound = errors.New("record not found")

// TransactionStore persists income/expense records. All reads exclude
// soft-deleted rows.
type TransactionStore interface {
	// InsertTransactions persists a batch as a single unit. Callers rely on
	// all-or-nothing behavior for sync writes.
	InsertTransactions(ctx context.Context, txs []*domain.Transaction) error

	// ListTransactions returns the user's live transactions, newest date first.
	ListTransactions(ctx context.Context, userID string) ([]*domain.Transaction, error)

	// GetTransaction returns a live transaction by id, or ErrNotFound.
	GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error)

	// UpdateTransaction overwrites the mutable fields of a live transaction.
	UpdateTransaction(ctx context.Context, tx *domain.Transaction) error

	// SoftDeleteTransaction stamps the deletion timestamp. The row survives
	// for audit but disappears from every read and from dedup sets.
	SoftDeleteTransaction(ctx context.Context, userID, id string) error
}

// ConsentStore persists Open Finance consents. Consents are never hard-deleted.
type ConsentStore interface {
	InsertConsent(ctx context.Context, c *domain.Consent) error

	// ListConsents returns the user's non-deleted consents, newest first.
	ListConsents(ctx context.Context, userID string) ([]*domain.Consent, error)

	// FindActiveConsent returns the most recently created active consent for
	// the user, or (nil, nil) when the user has none. Absence is an expected
	// condition, not an error.
	FindActiveConsent(ctx context.Context, userID string) (*domain.Consent, error)

	// FindConsentByToken looks a consent up by its external token among
	// non-deleted rows, returning (nil, nil) when unknown.
	FindConsentByToken(ctx context.Context, token string) (*domain.Consent, error)

	// UpdateConsentStatus persists a lifecycle transition.
	UpdateConsentStatus(ctx context.Context, id string, status domain.ConsentStatus) error
}

// InstallmentStore persists installment purchases.
type InstallmentStore interface {
	InsertInstallment(ctx context.Context, inst *domain.Installment) error
	ListInstallments(ctx context.Context, userID string) ([]*domain.Installment, error)
	GetInstallment(ctx context.Context, userID, id string) (*domain.Installment, error)
	UpdateInstallment(ctx context.Context, inst *domain.Installment) error
	SoftDeleteInstallment(ctx context.Context, userID, id string) error
}

// InvestmentStore persists investment positions.
type InvestmentStore interface {
	InsertInvestment(ctx context.Context, inv *domain.Investment) error

	// ListInvestments returns live positions, optionally filtered by asset type.
	ListInvestments(ctx context.Context, userID string, assetType domain.AssetType) ([]*domain.Investment, error)

	GetInvestment(ctx context.Context, userID, id string) (*domain.Investment, error)
	UpdateInvestment(ctx context.Context, inv *domain.Investment) error
	SoftDeleteInvestment(ctx context.Context, userID, id string) error
}

// Store aggregates every record type behind one dependency.
type Store interface {
	TransactionStore
	ConsentStore
	InstallmentStore
	InvestmentStore
}
