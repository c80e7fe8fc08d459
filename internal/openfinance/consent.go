package openfinance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gestorfin/backend/internal/domain"
	"github.com/gestorfin/backend/internal/logger"
	"github.com/gestorfin/backend/internal/store"
)

// DefaultScopes is the scope list granted when the caller does not ask for
// specific scopes: broad read access, no payment initiation.
const DefaultScopes = "accounts transactions"

// Lifecycle events deliverable by the provider's webhook.
const (
	EventRevoked = "revoked"
	EventExpired = "expired"
)

// ConsentManager owns the consent lifecycle: creation with defaults, the
// active-consent gate for syncs, and externally delivered transitions.
type ConsentManager struct {
	store store.ConsentStore
}

// NewConsentManager creates a consent manager over the given store.
func NewConsentManager(s store.ConsentStore) *ConsentManager {
	return &ConsentManager{store: s}
}

// ConsentRequest carries the optional creation fields. Zero values take the
// documented defaults.
type ConsentRequest struct {
	Token    string
	Provider string
	Scopes   string
	Status   domain.ConsentStatus
}

// CreateConsent persists a new consent for the user, applying defaults:
// random token, simulated provider, read scopes, active status.
func (m *ConsentManager) CreateConsent(ctx context.Context, userID string, req ConsentRequest) (*domain.Consent, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "must not be empty"}
	}

	token := req.Token
	if token == "" {
		token = uuid.NewString()
	}
	provider := req.Provider
	if provider == "" {
		provider = "simulated"
	}
	scopes := req.Scopes
	if scopes == "" {
		scopes = DefaultScopes
	}
	status := req.Status
	if status == "" {
		status = domain.ConsentActive
	}
	if !status.Valid() {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}

	consent := &domain.Consent{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     token,
		Provider:  provider,
		Scopes:    scopes,
		Status:    status,
		CreatedAt: time.Now(),
	}

	if err := m.store.InsertConsent(ctx, consent); err != nil {
		return nil, fmt.Errorf("CreateConsent: %w", err)
	}
	return consent, nil
}

// FindActiveConsent returns the user's most recently created active consent,
// or (nil, nil) when there is none. Absence gates the sync but is not an
// exceptional condition here; the orchestrator turns it into
// ErrNoActiveConsent.
func (m *ConsentManager) FindActiveConsent(ctx context.Context, userID string) (*domain.Consent, error) {
	consent, err := m.store.FindActiveConsent(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("FindActiveConsent: %w", err)
	}
	return consent, nil
}

// ListConsents returns the user's non-deleted consents, newest first.
func (m *ConsentManager) ListConsents(ctx context.Context, userID string) ([]*domain.Consent, error) {
	consents, err := m.store.ListConsents(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ListConsents: %w", err)
	}
	return consents, nil
}

// ApplyLifecycleEvent applies an externally delivered transition to the
// consent identified by token. Recognized events are "revoked" and "expired".
// The write is idempotent: re-applying an event to an already transitioned
// consent re-asserts the same status without error. Unknown events are
// rejected before any lookup side effects; unknown tokens yield ErrNotFound.
func (m *ConsentManager) ApplyLifecycleEvent(ctx context.Context, consentToken, event string) (*domain.Consent, error) {
	log := logger.FromContext(ctx)

	var target domain.ConsentStatus
	switch event {
	case EventRevoked:
		target = domain.ConsentRevoked
	case EventExpired:
		target = domain.ConsentExpired
	default:
		return nil, &ValidationError{Field: "event", Reason: fmt.Sprintf("unrecognized lifecycle event %q", event)}
	}

	consent, err := m.store.FindConsentByToken(ctx, consentToken)
	if err != nil {
		return nil, fmt.Errorf("ApplyLifecycleEvent: %w", err)
	}
	if consent == nil {
		return nil, fmt.Errorf("consent token %s: %w", consentToken, ErrNotFound)
	}

	if consent.Status == target {
		log.Info().
			Str("consent_id", consent.ID).
			Str("status", string(target)).
			Msg("Lifecycle event re-applied, status unchanged")
		return consent, nil
	}
	if consent.Status.Terminal() {
		// No transitions out of revoked/expired. Keep whichever terminal
		// state arrived first and let the provider's retry settle.
		log.Warn().
			Str("consent_id", consent.ID).
			Str("status", string(consent.Status)).
			Str("event", event).
			Msg("Ignoring lifecycle event for already terminal consent")
		return consent, nil
	}

	if err := m.store.UpdateConsentStatus(ctx, consent.ID, target); err != nil {
		return nil, fmt.Errorf("ApplyLifecycleEvent: update status: %w", err)
	}
	consent.Status = target

	log.Info().
		Str("consent_id", consent.ID).
		Str("user_id", consent.UserID).
		Str("status", string(target)).
		Msg("Consent lifecycle event applied")

	return consent, nil
}
