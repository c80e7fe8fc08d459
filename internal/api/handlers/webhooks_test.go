package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gestorfin/backend/internal/jobs"
	"github.com/gestorfin/backend/internal/openfinance"
	"github.com/gestorfin/backend/internal/store/inmemory"
)

// recordingPublisher captures published archive jobs.
type recordingPublisher struct {
	mu   sync.Mutex
	jobs []*jobs.ArchiveWebhookJob
}

func (p *recordingPublisher) PublishArchiveWebhook(ctx context.Context, job *jobs.ArchiveWebhookJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []*jobs.ArchiveWebhookJob {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*jobs.ArchiveWebhookJob(nil), p.jobs...)
}

func newWebhookEnv(t *testing.T, secret string) (*WebhooksHandler, *openfinance.ConsentManager, *recordingPublisher) {
	t.Helper()
	st := inmemory.NewStore()
	consents := openfinance.NewConsentManager(st)
	publisher := &recordingPublisher{}
	handler := NewWebhooksHandler(consents, publisher, secret, zerolog.New(nil))
	return handler, consents, publisher
}

func postWebhook(t *testing.T, handler *WebhooksHandler, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/openfinance", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(signatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	handler.Receive(rec, req)
	return rec
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhook_ConsentRevoked(t *testing.T) {
	handler, consents, publisher := newWebhookEnv(t, "")

	consent, err := consents.CreateConsent(context.Background(), "u1", openfinance.ConsentRequest{Token: "tok-1"})
	if err != nil {
		t.Fatal(err)
	}

	body := []byte(`{"event":"consent.revoked","consent_id":"tok-1"}`)
	rec := postWebhook(t, handler, body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	active, err := consents.FindActiveConsent(context.Background(), consent.UserID)
	if err != nil {
		t.Fatal(err)
	}
	if active != nil {
		t.Errorf("expected no active consent after revocation, got %+v", active)
	}

	published := publisher.published()
	if len(published) != 1 {
		t.Fatalf("archived jobs = %d, want 1", len(published))
	}
	if !bytes.Equal(published[0].Payload, body) {
		t.Errorf("archived payload differs from raw body")
	}
}

func TestWebhook_ConsentExpired(t *testing.T) {
	handler, consents, _ := newWebhookEnv(t, "")

	if _, err := consents.CreateConsent(context.Background(), "u1", openfinance.ConsentRequest{Token: "tok-1"}); err != nil {
		t.Fatal(err)
	}

	rec := postWebhook(t, handler, []byte(`{"event":"consent.expired","consent_id":"tok-1"}`), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	consent, err := consents.FindActiveConsent(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if consent != nil {
		t.Error("expected consent to be expired")
	}
}

func TestWebhook_UnknownConsent(t *testing.T) {
	handler, _, _ := newWebhookEnv(t, "")

	rec := postWebhook(t, handler, []byte(`{"event":"consent.revoked","consent_id":"no-such"}`), "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestWebhook_UnrecognizedEvent(t *testing.T) {
	handler, _, publisher := newWebhookEnv(t, "")

	rec := postWebhook(t, handler, []byte(`{"event":"consent.renewed","consent_id":"tok-1"}`), "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(publisher.published()) != 0 {
		t.Error("rejected event must not be archived")
	}
}

func TestWebhook_LogOnlyEvents(t *testing.T) {
	handler, _, publisher := newWebhookEnv(t, "")

	for _, event := range []string{"transaction.created", "account.updated"} {
		rec := postWebhook(t, handler, []byte(`{"event":"`+event+`","consent_id":"tok-1"}`), "")
		if rec.Code != http.StatusOK {
			t.Errorf("event %s: status = %d, want 200", event, rec.Code)
		}
	}
	if len(publisher.published()) != 2 {
		t.Errorf("archived jobs = %d, want 2", len(publisher.published()))
	}
}

func TestWebhook_SignatureVerification(t *testing.T) {
	const secret = "shh"
	handler, consents, _ := newWebhookEnv(t, secret)

	if _, err := consents.CreateConsent(context.Background(), "u1", openfinance.ConsentRequest{Token: "tok-1"}); err != nil {
		t.Fatal(err)
	}
	body := []byte(`{"event":"consent.revoked","consent_id":"tok-1"}`)

	tests := []struct {
		name      string
		signature string
		want      int
	}{
		{"valid signature", sign(body, secret), http.StatusOK},
		{"missing signature", "", http.StatusUnauthorized},
		{"wrong signature", sign(body, "other-secret"), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postWebhook(t, handler, body, tt.signature)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}
