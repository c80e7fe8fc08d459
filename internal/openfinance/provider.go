package openfinance

import (
	"context"

	"github.com/gestorfin/backend/internal/domain"
)

// Provider is the capability every Open Finance data source implements.
// The orchestrator is wired against this interface once at startup and never
// branches on the concrete implementation.
type Provider interface {
	// Name is the provenance label reported in sync results.
	Name() string

	// FetchTransactions returns the user's transactions in the normalized
	// shape. The simulated provider ignores consentToken; the real provider
	// requires it for the token exchange.
	FetchTransactions(ctx context.Context, userID, consentToken string) ([]domain.NormalizedTransaction, error)
}
