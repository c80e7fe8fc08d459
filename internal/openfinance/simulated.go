package openfinance

import (
	"context"
	"time"

	"github.com/gestorfin/backend/internal/domain"
)

// SimulatedName is the source label of the simulated provider.
const SimulatedName = "open_finance_simulated"

// SimulatedProvider returns a fixed three-item statement stamped with the
// current date. Deterministic and side-effect-free; the default provider and
// the one used throughout the tests.
type SimulatedProvider struct {
	// Clock overrides the date stamp; nil means time.Now.
	Clock func() time.Time
}

// Name implements Provider.
func (p *SimulatedProvider) Name() string {
	return SimulatedName
}

// FetchTransactions implements Provider. Inputs are ignored in the
// simulation; a real integration maps userID to external account ids.
func (p *SimulatedProvider) FetchTransactions(ctx context.Context, userID, consentToken string) ([]domain.NormalizedTransaction, error) {
	now := time.Now()
	if p.Clock != nil {
		now = p.Clock()
	}
	today := now.Truncate(24 * time.Hour)

	return []domain.NormalizedTransaction{
		{Description: "Depósito Open Finance", Amount: 987.65, Kind: domain.KindIncome, Date: today},
		{Description: "Supermercado Open Finance", Amount: 152.30, Kind: domain.KindExpense, Date: today},
		{Description: "Boleto Energia", Amount: 210.15, Kind: domain.KindExpense, Date: today},
	}, nil
}

var _ Provider = (*SimulatedProvider)(nil)
