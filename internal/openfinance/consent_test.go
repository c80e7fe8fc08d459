package openfinance

import (
	"context"
	"errors"
	"testing"

	"github.com/gestorfin/backend/internal/domain"
	"github.com/gestorfin/backend/internal/store/inmemory"
)

func TestCreateConsent_Defaults(t *testing.T) {
	m := NewConsentManager(inmemory.NewStore())

	consent, err := m.CreateConsent(context.Background(), "user-1", ConsentRequest{})
	if err != nil {
		t.Fatalf("CreateConsent() error = %v", err)
	}

	if consent.ID == "" {
		t.Error("expected generated consent ID")
	}
	if consent.Token == "" {
		t.Error("expected generated token")
	}
	if consent.Provider != "simulated" {
		t.Errorf("Provider = %q, want %q", consent.Provider, "simulated")
	}
	if consent.Scopes != DefaultScopes {
		t.Errorf("Scopes = %q, want %q", consent.Scopes, DefaultScopes)
	}
	if consent.Status != domain.ConsentActive {
		t.Errorf("Status = %q, want %q", consent.Status, domain.ConsentActive)
	}
}

func TestCreateConsent_ExplicitFields(t *testing.T) {
	m := NewConsentManager(inmemory.NewStore())

	consent, err := m.CreateConsent(context.Background(), "user-1", ConsentRequest{
		Token:    "tok-abc",
		Provider: "open_finance",
		Scopes:   "accounts",
		Status:   domain.ConsentRevoked,
	})
	if err != nil {
		t.Fatalf("CreateConsent() error = %v", err)
	}
	if consent.Token != "tok-abc" || consent.Provider != "open_finance" ||
		consent.Scopes != "accounts" || consent.Status != domain.ConsentRevoked {
		t.Errorf("explicit fields not preserved: %+v", consent)
	}
}

func TestCreateConsent_Validation(t *testing.T) {
	m := NewConsentManager(inmemory.NewStore())

	if _, err := m.CreateConsent(context.Background(), "", ConsentRequest{}); err == nil {
		t.Error("expected error for empty user ID")
	}

	_, err := m.CreateConsent(context.Background(), "user-1", ConsentRequest{Status: "pending"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for unknown status, got %v", err)
	}
}

func TestFindActiveConsent(t *testing.T) {
	ctx := context.Background()
	m := NewConsentManager(inmemory.NewStore())

	got, err := m.FindActiveConsent(ctx, "user-1")
	if err != nil {
		t.Fatalf("FindActiveConsent() error = %v", err)
	}
	if got != nil {
		t.Errorf("expected nil consent for user without consents, got %+v", got)
	}

	if _, err := m.CreateConsent(ctx, "user-1", ConsentRequest{Status: domain.ConsentRevoked}); err != nil {
		t.Fatal(err)
	}
	created, err := m.CreateConsent(ctx, "user-1", ConsentRequest{})
	if err != nil {
		t.Fatal(err)
	}

	got, err = m.FindActiveConsent(ctx, "user-1")
	if err != nil {
		t.Fatalf("FindActiveConsent() error = %v", err)
	}
	if got == nil || got.ID != created.ID {
		t.Errorf("expected active consent %s, got %+v", created.ID, got)
	}
}

func TestApplyLifecycleEvent(t *testing.T) {
	ctx := context.Background()
	m := NewConsentManager(inmemory.NewStore())

	created, err := m.CreateConsent(ctx, "user-1", ConsentRequest{Token: "tok-1"})
	if err != nil {
		t.Fatal(err)
	}

	consent, err := m.ApplyLifecycleEvent(ctx, "tok-1", EventRevoked)
	if err != nil {
		t.Fatalf("ApplyLifecycleEvent() error = %v", err)
	}
	if consent.Status != domain.ConsentRevoked {
		t.Errorf("Status = %q, want %q", consent.Status, domain.ConsentRevoked)
	}

	// Re-applying the same event is idempotent.
	consent, err = m.ApplyLifecycleEvent(ctx, "tok-1", EventRevoked)
	if err != nil {
		t.Fatalf("repeated ApplyLifecycleEvent() error = %v", err)
	}
	if consent.Status != domain.ConsentRevoked {
		t.Errorf("Status after re-apply = %q, want %q", consent.Status, domain.ConsentRevoked)
	}

	// A different event on a terminal consent keeps the first state.
	consent, err = m.ApplyLifecycleEvent(ctx, "tok-1", EventExpired)
	if err != nil {
		t.Fatalf("ApplyLifecycleEvent() on terminal consent error = %v", err)
	}
	if consent.Status != domain.ConsentRevoked {
		t.Errorf("Status after conflicting event = %q, want %q", consent.Status, domain.ConsentRevoked)
	}

	// The revocation must gate syncs.
	active, err := m.FindActiveConsent(ctx, created.UserID)
	if err != nil {
		t.Fatal(err)
	}
	if active != nil {
		t.Errorf("expected no active consent after revocation, got %+v", active)
	}
}

func TestApplyLifecycleEvent_Errors(t *testing.T) {
	ctx := context.Background()
	m := NewConsentManager(inmemory.NewStore())

	_, err := m.ApplyLifecycleEvent(ctx, "tok-1", "renewed")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for unknown event, got %v", err)
	}

	_, err = m.ApplyLifecycleEvent(ctx, "no-such-token", EventRevoked)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown token, got %v", err)
	}
}
