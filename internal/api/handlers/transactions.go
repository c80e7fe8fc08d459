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

// TransactionsHandler handles transaction CRUD endpoints.
type TransactionsHandler struct {
	store store.TransactionStore
	log   zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(s store.TransactionStore, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{store: s, log: log}
}

// Routes mounts the handler under /users/{userID}/transactions.
func (h *TransactionsHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{transactionID}", h.Get)
	r.Put("/{transactionID}", h.Update)
	r.Patch("/{transactionID}", h.Update)
	r.Delete("/{transactionID}", h.Delete)
}

// List handles GET /api/users/{userID}/transactions
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	txs, err := h.store.ListTransactions(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_list_transactions")
		return
	}

	page, perPage := pageParams(r)
	pageTxs, meta := paginate(txs, page, perPage)

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":      transactionsToJSON(pageTxs),
		"pagination": meta,
	})
}

type transactionRequest struct {
	Description *string  `json:"description"`
	Amount      *float64 `json:"amount"`
	Kind        *string  `json:"type"`
	Date        *string  `json:"date"`
}

// Create handles POST /api/users/{userID}/transactions
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request_body")
		return
	}

	if req.Description == nil || *req.Description == "" {
		middleware.WriteError(w, http.StatusBadRequest, "description_required")
		return
	}
	if req.Amount == nil || *req.Amount <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, "amount_must_be_positive")
		return
	}
	if req.Kind == nil {
		middleware.WriteError(w, http.StatusBadRequest, "type_required")
		return
	}
	kind := domain.TransactionKind(*req.Kind)
	if !kind.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_type")
		return
	}
	date := today()
	if req.Date != nil && *req.Date != "" {
		parsed, ok := parseDate(*req.Date)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, "invalid_date")
			return
		}
		date = parsed
	}

	tx := &domain.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Description: *req.Description,
		Amount:      *req.Amount,
		Kind:        kind,
		Date:        date,
		CreatedAt:   time.Now(),
	}

	if err := h.store.InsertTransactions(r.Context(), []*domain.Transaction{tx}); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to insert transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_create_transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, transactionToJSON(tx))
}

// Get handles GET /api/users/{userID}/transactions/{transactionID}
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	id := chi.URLParam(r, "transactionID")

	tx, err := h.store.GetTransaction(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "transaction_not_found")
			return
		}
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to get transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_get_transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, transactionToJSON(tx))
}

// Update handles PUT/PATCH /api/users/{userID}/transactions/{transactionID}.
// Fields absent from the body keep their stored values.
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	id := chi.URLParam(r, "transactionID")

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request_body")
		return
	}

	tx, err := h.store.GetTransaction(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "transaction_not_found")
			return
		}
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to load transaction for update")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_update_transaction")
		return
	}

	if req.Description != nil {
		if *req.Description == "" {
			middleware.WriteError(w, http.StatusBadRequest, "description_required")
			return
		}
		tx.Description = *req.Description
	}
	if req.Amount != nil {
		if *req.Amount <= 0 {
			middleware.WriteError(w, http.StatusBadRequest, "amount_must_be_positive")
			return
		}
		tx.Amount = *req.Amount
	}
	if req.Kind != nil {
		kind := domain.TransactionKind(*req.Kind)
		if !kind.Valid() {
			middleware.WriteError(w, http.StatusBadRequest, "invalid_type")
			return
		}
		tx.Kind = kind
	}
	if req.Date != nil {
		parsed, ok := parseDate(*req.Date)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, "invalid_date")
			return
		}
		tx.Date = parsed
	}

	if err := h.store.UpdateTransaction(r.Context(), tx); err != nil {
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to update transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_update_transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, transactionToJSON(tx))
}

// Delete handles DELETE /api/users/{userID}/transactions/{transactionID}.
// Deletion is soft; the row drops out of reads and dedup sets but survives
// for audit.
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	id := chi.URLParam(r, "transactionID")

	if _, err := h.store.GetTransaction(r.Context(), userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "transaction_not_found")
			return
		}
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to load transaction for delete")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_delete_transaction")
		return
	}

	if err := h.store.SoftDeleteTransaction(r.Context(), userID, id); err != nil {
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to delete transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_delete_transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"deleted": id})
}
