package openfinance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gestorfin/backend/internal/domain"
	"github.com/gestorfin/backend/internal/logger"
	"github.com/gestorfin/backend/internal/store"
)

// Result summarizes one sync run.
type Result struct {
	Source   string
	Imported []*domain.Transaction
	Skipped  int
}

// Syncer orchestrates one provider pull: gate on an active consent, fetch,
// validate, dedupe against the user's live transactions and persist the
// remainder as a single batch.
type Syncer struct {
	provider Provider
	consents *ConsentManager
	store    store.TransactionStore

	// userMu serializes syncs per user. Two concurrent syncs for the same
	// user would both read the fingerprint set before either writes, and
	// each import the same candidates.
	mu     sync.Mutex
	userMu map[string]*sync.Mutex
}

// NewSyncer creates a syncer over the given provider and stores.
func NewSyncer(provider Provider, consents *ConsentManager, txStore store.TransactionStore) *Syncer {
	return &Syncer{
		provider: provider,
		consents: consents,
		store:    txStore,
		userMu:   make(map[string]*sync.Mutex),
	}
}

func (s *Syncer) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.userMu[userID]
	if !ok {
		mu = &sync.Mutex{}
		s.userMu[userID] = mu
	}
	return mu
}

// Sync runs one import for the user. Without an active consent it returns
// ErrNoActiveConsent and performs no writes. Candidates failing validation
// are skipped with a warning, not fatal. The insert is all or nothing: a
// storage failure imports zero transactions.
func (s *Syncer) Sync(ctx context.Context, userID string) (*Result, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "must not be empty"}
	}

	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	log := logger.FromContext(ctx)

	consent, err := s.consents.FindActiveConsent(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Sync: %w", err)
	}
	if consent == nil {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNoActiveConsent)
	}

	candidates, err := s.provider.FetchTransactions(ctx, userID, consent.Token)
	if err != nil {
		return nil, fmt.Errorf("Sync: fetch from %s: %w", s.provider.Name(), err)
	}

	valid := candidates[:0:0]
	for _, c := range candidates {
		if err := c.Validate(); err != nil {
			log.Warn().
				Err(err).
				Str("user_id", userID).
				Str("description", c.Description).
				Msg("Skipping malformed provider transaction")
			continue
		}
		valid = append(valid, c)
	}

	existing, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Sync: list transactions: %w", err)
	}

	accepted, skipped := Dedupe(valid, BuildExistingSet(existing))
	skipped += len(candidates) - len(valid)

	now := time.Now()
	imported := make([]*domain.Transaction, 0, len(accepted))
	for _, c := range accepted {
		imported = append(imported, &domain.Transaction{
			ID:          uuid.NewString(),
			UserID:      userID,
			Description: c.Description,
			Amount:      c.Amount,
			Kind:        c.Kind,
			Date:        c.Date,
			CreatedAt:   now,
		})
	}

	if len(imported) > 0 {
		if err := s.store.InsertTransactions(ctx, imported); err != nil {
			return nil, fmt.Errorf("Sync: insert batch: %w", err)
		}
	}

	log.Info().
		Str("user_id", userID).
		Str("source", s.provider.Name()).
		Int("imported", len(imported)).
		Int("skipped", skipped).
		Msg("Open Finance sync completed")

	return &Result{
		Source:   s.provider.Name(),
		Imported: imported,
		Skipped:  skipped,
	}, nil
}
