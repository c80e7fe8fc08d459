package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/gestorfin/backend/internal/api/middleware"
	"github.com/gestorfin/backend/internal/domain"
	"github.com/gestorfin/backend/internal/openfinance"
)

// OpenFinanceHandler handles consent management and sync endpoints.
type OpenFinanceHandler struct {
	consents *openfinance.ConsentManager
	syncer   *openfinance.Syncer
	log      zerolog.Logger
}

// NewOpenFinanceHandler creates a new Open Finance handler.
func NewOpenFinanceHandler(consents *openfinance.ConsentManager, syncer *openfinance.Syncer, log zerolog.Logger) *OpenFinanceHandler {
	return &OpenFinanceHandler{consents: consents, syncer: syncer, log: log}
}

// Routes mounts the handler under /users/{userID}/openfinance.
func (h *OpenFinanceHandler) Routes(r chi.Router) {
	r.Post("/consents", h.CreateConsent)
	r.Get("/consents", h.ListConsents)
	r.Post("/sync", h.Sync)
}

type consentRequest struct {
	Token    string `json:"token"`
	Provider string `json:"provider"`
	Scopes   string `json:"scopes"`
	Status   string `json:"status"`
}

// CreateConsent handles POST /api/users/{userID}/openfinance/consents.
// All body fields are optional; absent fields take documented defaults.
func (h *OpenFinanceHandler) CreateConsent(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req consentRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "invalid_request_body")
			return
		}
	}

	consent, err := h.consents.CreateConsent(r.Context(), userID, openfinance.ConsentRequest{
		Token:    req.Token,
		Provider: req.Provider,
		Scopes:   req.Scopes,
		Status:   domain.ConsentStatus(req.Status),
	})
	if err != nil {
		var verr *openfinance.ValidationError
		if errors.As(err, &verr) {
			middleware.WriteErrorDetails(w, http.StatusBadRequest, "invalid_consent", verr.Error())
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to create consent")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_create_consent")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, consentToJSON(consent))
}

// ListConsents handles GET /api/users/{userID}/openfinance/consents.
func (h *OpenFinanceHandler) ListConsents(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	consents, err := h.consents.ListConsents(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list consents")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_list_consents")
		return
	}

	page, perPage := pageParams(r)
	pageConsents, meta := paginate(consents, page, perPage)

	items := make([]consentJSON, 0, len(pageConsents))
	for _, c := range pageConsents {
		items = append(items, consentToJSON(c))
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":      items,
		"pagination": meta,
	})
}

// Sync handles POST /api/users/{userID}/openfinance/sync. Success is 201
// because net-new transactions were (possibly) created; a gated sync is a
// client-correctable 400, a provider failure a 500.
func (h *OpenFinanceHandler) Sync(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	result, err := h.syncer.Sync(r.Context(), userID)
	if err != nil {
		if errors.Is(err, openfinance.ErrNoActiveConsent) {
			middleware.WriteError(w, http.StatusBadRequest, "no_active_consent")
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("Open Finance sync failed")
		middleware.WriteErrorDetails(w, http.StatusInternalServerError, "sync_failed", err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"status":             "success",
		"source":             result.Source,
		"imported":           len(result.Imported),
		"skipped_duplicates": result.Skipped,
		"transactions":       transactionsToJSON(result.Imported),
	})
}
