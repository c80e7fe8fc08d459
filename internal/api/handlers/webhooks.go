package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/gestorfin/backend/internal/api/middleware"
	"github.com/gestorfin/backend/internal/jobs"
	"github.com/gestorfin/backend/internal/openfinance"
)

// signatureHeader carries the hex HMAC-SHA256 of the raw request body.
const signatureHeader = "X-Webhook-Signature"

const maxWebhookBody = 1 << 20

// Webhook events that only get logged; no state change in this system.
const (
	eventTransactionCreated = "transaction.created"
	eventAccountUpdated     = "account.updated"
)

// WebhooksHandler receives provider lifecycle notifications. When a secret
// is configured, the request signature is verified before any processing;
// payloads are archived asynchronously when a publisher is wired.
type WebhooksHandler struct {
	consents  *openfinance.ConsentManager
	publisher jobs.Publisher
	secret    string
	log       zerolog.Logger
}

// NewWebhooksHandler creates a new webhooks handler. An empty secret
// disables signature verification; a nil publisher disables archiving.
func NewWebhooksHandler(consents *openfinance.ConsentManager, publisher jobs.Publisher, secret string, log zerolog.Logger) *WebhooksHandler {
	return &WebhooksHandler{
		consents:  consents,
		publisher: publisher,
		secret:    secret,
		log:       log,
	}
}

type webhookPayload struct {
	Event     string          `json:"event"`
	ConsentID string          `json:"consent_id"`
	Data      json.RawMessage `json:"data"`
}

// Receive handles POST /api/webhooks/openfinance.
func (h *WebhooksHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "unreadable_body")
		return
	}

	if h.secret != "" {
		if !verifySignature(body, r.Header.Get(signatureHeader), h.secret) {
			h.log.Warn().Msg("Webhook rejected: invalid signature")
			middleware.WriteError(w, http.StatusUnauthorized, "invalid_signature")
			return
		}
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_payload")
		return
	}

	switch payload.Event {
	case "consent.revoked", "consent.expired":
		h.applyConsentEvent(w, r, payload, body)
	case eventTransactionCreated, eventAccountUpdated:
		// Log-only events. A transaction.created notification does not
		// trigger an automatic sync; the next requested sync picks the
		// records up and dedup keeps it safe.
		h.log.Info().
			Str("event", payload.Event).
			Str("consent_id", payload.ConsentID).
			Msg("Webhook event received, no state change")
		h.archive(r, payload, body)
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "received"})
	default:
		middleware.WriteError(w, http.StatusBadRequest, "unrecognized_event")
	}
}

func (h *WebhooksHandler) applyConsentEvent(w http.ResponseWriter, r *http.Request, payload webhookPayload, body []byte) {
	// "consent.revoked" → "revoked", "consent.expired" → "expired"
	event := payload.Event[len("consent."):]

	consent, err := h.consents.ApplyLifecycleEvent(r.Context(), payload.ConsentID, event)
	if err != nil {
		if errors.Is(err, openfinance.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "consent_not_found")
			return
		}
		var verr *openfinance.ValidationError
		if errors.As(err, &verr) {
			middleware.WriteErrorDetails(w, http.StatusBadRequest, "invalid_event", verr.Error())
			return
		}
		h.log.Error().Err(err).Str("event", payload.Event).Msg("Failed to apply webhook event")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_apply_event")
		return
	}

	h.archive(r, payload, body)

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "applied",
		"consent": consent.ID,
		"state":   string(consent.Status),
	})
}

// archive enqueues the payload for GCS audit storage. Best effort: an
// enqueue failure is logged, never surfaced to the caller.
func (h *WebhooksHandler) archive(r *http.Request, payload webhookPayload, body []byte) {
	if h.publisher == nil {
		return
	}

	job := &jobs.ArchiveWebhookJob{
		EventType:    payload.Event,
		ConsentToken: payload.ConsentID,
		Payload:      body,
		ReceivedAt:   time.Now(),
	}
	if err := h.publisher.PublishArchiveWebhook(r.Context(), job); err != nil {
		h.log.Warn().Err(err).Str("event", payload.Event).Msg("Failed to enqueue webhook archive job")
	}
}

// verifySignature checks the hex HMAC-SHA256 of body against the header
// value using a constant-time comparison.
func verifySignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
