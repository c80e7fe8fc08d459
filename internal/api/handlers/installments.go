package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gestorfin/backend/internal/api/middleware"
	"github.com/gestorfin/backend/internal/domain"
	"github.com/gestorfin/backend/internal/store"
)

// InstallmentsHandler handles installment CRUD endpoints.
type InstallmentsHandler struct {
	store store.InstallmentStore
	log   zerolog.Logger
}

// NewInstallmentsHandler creates a new installments handler.
func NewInstallmentsHandler(s store.InstallmentStore, log zerolog.Logger) *InstallmentsHandler {
	return &InstallmentsHandler{store: s, log: log}
}

// Routes mounts the handler under /users/{userID}/installments.
func (h *InstallmentsHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{installmentID}", h.Update)
	r.Patch("/{installmentID}", h.Update)
	r.Delete("/{installmentID}", h.Delete)
}

type installmentJSON struct {
	ID           string  `json:"id"`
	Description  string  `json:"description"`
	MonthlyValue float64 `json:"monthly_value"`
	TotalMonths  int     `json:"total_months"`
	DateAdded    string  `json:"date_added"`
	CreatedAt    string  `json:"created_at"`
}

func installmentToJSON(i *domain.Installment) installmentJSON {
	return installmentJSON{
		ID:           i.ID,
		Description:  i.Description,
		MonthlyValue: i.MonthlyValue,
		TotalMonths:  i.TotalMonths,
		DateAdded:    i.DateAdded.Format(dateFormat),
		CreatedAt:    i.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type installmentRequest struct {
	Description  *string  `json:"description"`
	MonthlyValue *float64 `json:"monthly_value"`
	TotalMonths  *int     `json:"total_months"`
	DateAdded    *string  `json:"date_added"`
}

// List handles GET /api/users/{userID}/installments
func (h *InstallmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	insts, err := h.store.ListInstallments(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list installments")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_list_installments")
		return
	}

	page, perPage := pageParams(r)
	pageInsts, meta := paginate(insts, page, perPage)

	items := make([]installmentJSON, 0, len(pageInsts))
	for _, i := range pageInsts {
		items = append(items, installmentToJSON(i))
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":      items,
		"pagination": meta,
	})
}

// Create handles POST /api/users/{userID}/installments
func (h *InstallmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req installmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request_body")
		return
	}

	if req.Description == nil || *req.Description == "" {
		middleware.WriteError(w, http.StatusBadRequest, "description_required")
		return
	}
	if req.MonthlyValue == nil || *req.MonthlyValue <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, "monthly_value_must_be_positive")
		return
	}
	if req.TotalMonths == nil || *req.TotalMonths <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, "total_months_must_be_positive")
		return
	}
	dateAdded := today()
	if req.DateAdded != nil && *req.DateAdded != "" {
		parsed, ok := parseDate(*req.DateAdded)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, "invalid_date_added")
			return
		}
		dateAdded = parsed
	}

	inst := &domain.Installment{
		ID:           uuid.NewString(),
		UserID:       userID,
		Description:  *req.Description,
		MonthlyValue: *req.MonthlyValue,
		TotalMonths:  *req.TotalMonths,
		DateAdded:    dateAdded,
		CreatedAt:    time.Now(),
	}

	if err := h.store.InsertInstallment(r.Context(), inst); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to insert installment")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_create_installment")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, installmentToJSON(inst))
}

// Update handles PUT/PATCH /api/users/{userID}/installments/{installmentID}.
func (h *InstallmentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	id := chi.URLParam(r, "installmentID")

	var req installmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request_body")
		return
	}

	inst, err := h.store.GetInstallment(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "installment_not_found")
			return
		}
		h.log.Error().Err(err).Str("installment_id", id).Msg("Failed to load installment for update")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_update_installment")
		return
	}

	if req.Description != nil {
		if *req.Description == "" {
			middleware.WriteError(w, http.StatusBadRequest, "description_required")
			return
		}
		inst.Description = *req.Description
	}
	if req.MonthlyValue != nil {
		if *req.MonthlyValue <= 0 {
			middleware.WriteError(w, http.StatusBadRequest, "monthly_value_must_be_positive")
			return
		}
		inst.MonthlyValue = *req.MonthlyValue
	}
	if req.TotalMonths != nil {
		if *req.TotalMonths <= 0 {
			middleware.WriteError(w, http.StatusBadRequest, "total_months_must_be_positive")
			return
		}
		inst.TotalMonths = *req.TotalMonths
	}
	if req.DateAdded != nil {
		parsed, ok := parseDate(*req.DateAdded)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, "invalid_date_added")
			return
		}
		inst.DateAdded = parsed
	}

	if err := h.store.UpdateInstallment(r.Context(), inst); err != nil {
		h.log.Error().Err(err).Str("installment_id", id).Msg("Failed to update installment")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_update_installment")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, installmentToJSON(inst))
}

// Delete handles DELETE /api/users/{userID}/installments/{installmentID}.
func (h *InstallmentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	id := chi.URLParam(r, "installmentID")

	if _, err := h.store.GetInstallment(r.Context(), userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "installment_not_found")
			return
		}
		h.log.Error().Err(err).Str("installment_id", id).Msg("Failed to load installment for delete")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_delete_installment")
		return
	}

	if err := h.store.SoftDeleteInstallment(r.Context(), userID, id); err != nil {
		h.log.Error().Err(err).Str("installment_id", id).Msg("Failed to delete installment")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_delete_installment")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"deleted": id})
}
