// Package inmemory provides a map-backed Record Store. It is safe for
// concurrent use. Data is lost on restart - production deployments use the
// BigQuery store in internal/infra/bigquery.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gestorfin/backend/internal/domain"
	"github.com/gestorfin/backend/internal/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu           sync.RWMutex
	transactions map[string]*domain.Transaction
	consents     map[string]*domain.Consent
	installments map[string]*domain.Installment
	investments  map[string]*domain.Investment
	seq          int // insertion counter, breaks ordering ties
	seqOf        map[string]int
}

// NewStore creates an empty in-memory record store.
func NewStore() *Store {
	return &Store{
		transactions: make(map[string]*domain.Transaction),
		consents:     make(map[string]*domain.Consent),
		installments: make(map[string]*domain.Installment),
		investments:  make(map[string]*domain.Investment),
		seqOf:        make(map[string]int),
	}
}

func (s *Store) track(id string) {
	s.seq++
	s.seqOf[id] = s.seq
}

// InsertTransactions implements store.TransactionStore. The batch is applied
// atomically under the write lock.
func (s *Store) InsertTransactions(ctx context.Context, txs []*domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range txs {
		if tx.ID == "" {
			return fmt.Errorf("transaction ID is required")
		}
		if _, exists := s.transactions[tx.ID]; exists {
			return fmt.Errorf("duplicate transaction ID %s", tx.ID)
		}
	}
	for _, tx := range txs {
		txCopy := *tx
		s.transactions[tx.ID] = &txCopy
		s.track(tx.ID)
	}
	return nil
}

// ListTransactions implements store.TransactionStore.
func (s *Store) ListTransactions(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Transaction
	for _, tx := range s.transactions {
		if tx.UserID != userID || tx.Deleted() {
			continue
		}
		txCopy := *tx
		result = append(result, &txCopy)
	}

	// Newest date first; insertion order breaks same-date ties.
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return s.seqOf[result[i].ID] > s.seqOf[result[j].ID]
	})
	return result, nil
}

// GetTransaction implements store.TransactionStore.
func (s *Store) GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.transactions[id]
	if !exists || tx.UserID != userID || tx.Deleted() {
		return nil, store.ErrNotFound
	}
	txCopy := *tx
	return &txCopy, nil
}

// UpdateTransaction implements store.TransactionStore.
func (s *Store) UpdateTransaction(ctx context.Context, tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.transactions[tx.ID]
	if !exists || current.UserID != tx.UserID || current.Deleted() {
		return store.ErrNotFound
	}
	txCopy := *tx
	txCopy.CreatedAt = current.CreatedAt
	s.transactions[tx.ID] = &txCopy
	return nil
}

// SoftDeleteTransaction implements store.TransactionStore.
func (s *Store) SoftDeleteTransaction(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, exists := s.transactions[id]
	if !exists || tx.UserID != userID || tx.Deleted() {
		return store.ErrNotFound
	}
	now := time.Now()
	tx.DeletedAt = &now
	return nil
}

// InsertConsent implements store.ConsentStore.
func (s *Store) InsertConsent(ctx context.Context, c *domain.Consent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" || c.Token == "" {
		return fmt.Errorf("consent ID and token are required")
	}
	for _, existing := range s.consents {
		if existing.Token == c.Token && existing.DeletedAt == nil {
			return fmt.Errorf("consent token %s already in use", c.Token)
		}
	}
	cCopy := *c
	s.consents[c.ID] = &cCopy
	s.track(c.ID)
	return nil
}

// ListConsents implements store.ConsentStore.
func (s *Store) ListConsents(ctx context.Context, userID string) ([]*domain.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Consent
	for _, c := range s.consents {
		if c.UserID != userID || c.DeletedAt != nil {
			continue
		}
		cCopy := *c
		result = append(result, &cCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return s.seqOf[result[i].ID] > s.seqOf[result[j].ID]
	})
	return result, nil
}

// FindActiveConsent implements store.ConsentStore.
func (s *Store) FindActiveConsent(ctx context.Context, userID string) (*domain.Consent, error) {
	consents, err := s.ListConsents(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, c := range consents {
		if c.Status == domain.ConsentActive {
			return c, nil
		}
	}
	return nil, nil
}

// FindConsentByToken implements store.ConsentStore.
func (s *Store) FindConsentByToken(ctx context.Context, token string) (*domain.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.consents {
		if c.Token == token && c.DeletedAt == nil {
			cCopy := *c
			return &cCopy, nil
		}
	}
	return nil, nil
}

// UpdateConsentStatus implements store.ConsentStore.
func (s *Store) UpdateConsentStatus(ctx context.Context, id string, status domain.ConsentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.consents[id]
	if !exists || c.DeletedAt != nil {
		return store.ErrNotFound
	}
	c.Status = status
	return nil
}

// InsertInstallment implements store.InstallmentStore.
func (s *Store) InsertInstallment(ctx context.Context, inst *domain.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inst.ID == "" {
		return fmt.Errorf("installment ID is required")
	}
	instCopy := *inst
	s.installments[inst.ID] = &instCopy
	s.track(inst.ID)
	return nil
}

// ListInstallments implements store.InstallmentStore.
func (s *Store) ListInstallments(ctx context.Context, userID string) ([]*domain.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Installment
	for _, inst := range s.installments {
		if inst.UserID != userID || inst.Deleted() {
			continue
		}
		instCopy := *inst
		result = append(result, &instCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].DateAdded.Equal(result[j].DateAdded) {
			return result[i].DateAdded.After(result[j].DateAdded)
		}
		return s.seqOf[result[i].ID] > s.seqOf[result[j].ID]
	})
	return result, nil
}

// GetInstallment implements store.InstallmentStore.
func (s *Store) GetInstallment(ctx context.Context, userID, id string) (*domain.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, exists := s.installments[id]
	if !exists || inst.UserID != userID || inst.Deleted() {
		return nil, store.ErrNotFound
	}
	instCopy := *inst
	return &instCopy, nil
}

// UpdateInstallment implements store.InstallmentStore.
func (s *Store) UpdateInstallment(ctx context.Context, inst *domain.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.installments[inst.ID]
	if !exists || current.UserID != inst.UserID || current.Deleted() {
		return store.ErrNotFound
	}
	instCopy := *inst
	instCopy.CreatedAt = current.CreatedAt
	s.installments[inst.ID] = &instCopy
	return nil
}

// SoftDeleteInstallment implements store.InstallmentStore.
func (s *Store) SoftDeleteInstallment(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, exists := s.installments[id]
	if !exists || inst.UserID != userID || inst.Deleted() {
		return store.ErrNotFound
	}
	now := time.Now()
	inst.DeletedAt = &now
	return nil
}

// InsertInvestment implements store.InvestmentStore.
func (s *Store) InsertInvestment(ctx context.Context, inv *domain.Investment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv.ID == "" {
		return fmt.Errorf("investment ID is required")
	}
	invCopy := *inv
	s.investments[inv.ID] = &invCopy
	s.track(inv.ID)
	return nil
}

// ListInvestments implements store.InvestmentStore.
func (s *Store) ListInvestments(ctx context.Context, userID string, assetType domain.AssetType) ([]*domain.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Investment
	for _, inv := range s.investments {
		if inv.UserID != userID || inv.Deleted() {
			continue
		}
		if assetType != "" && inv.AssetType != assetType {
			continue
		}
		invCopy := *inv
		result = append(result, &invCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].PurchaseDate.Equal(result[j].PurchaseDate) {
			return result[i].PurchaseDate.After(result[j].PurchaseDate)
		}
		return s.seqOf[result[i].ID] > s.seqOf[result[j].ID]
	})
	return result, nil
}

// GetInvestment implements store.InvestmentStore.
func (s *Store) GetInvestment(ctx context.Context, userID, id string) (*domain.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, exists := s.investments[id]
	if !exists || inv.UserID != userID || inv.Deleted() {
		return nil, store.ErrNotFound
	}
	invCopy := *inv
	return &invCopy, nil
}

// UpdateInvestment implements store.InvestmentStore.
func (s *Store) UpdateInvestment(ctx context.Context, inv *domain.Investment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.investments[inv.ID]
	if !exists || current.UserID != inv.UserID || current.Deleted() {
		return store.ErrNotFound
	}
	invCopy := *inv
	invCopy.CreatedAt = current.CreatedAt
	s.investments[inv.ID] = &invCopy
	return nil
}

// SoftDeleteInvestment implements store.InvestmentStore.
func (s *Store) SoftDeleteInvestment(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, exists := s.investments[id]
	if !exists || inv.UserID != userID || inv.Deleted() {
		return store.ErrNotFound
	}
	now := time.Now()
	inv.DeletedAt = &now
	return nil
}

// Ensure Store implements the full record store interface.
var _ store.Store = (*Store)(nil)
