package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gestorfin/backend/internal/api/middleware"
	"github.com/gestorfin/backend/internal/domain"
	"github.com/gestorfin/backend/internal/store"
)

// ImportHandler loads a fixed demo statement into a user's account.
type ImportHandler struct {
	store store.TransactionStore
	log   zerolog.Logger
}

// NewImportHandler creates a new import handler.
func NewImportHandler(s store.TransactionStore, log zerolog.Logger) *ImportHandler {
	return &ImportHandler{store: s, log: log}
}

// Import handles POST /api/users/{userID}/import. Unlike the Open Finance
// sync, the demo import does not dedupe; calling it twice inserts twice.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	now := time.Now()
	day := now.Truncate(24 * time.Hour)

	txs := []*domain.Transaction{
		{ID: uuid.NewString(), UserID: userID, Description: "Transferência Recebida (Freelancer)", Amount: 1500.00, Kind: domain.KindIncome, Date: day, CreatedAt: now},
		{ID: uuid.NewString(), UserID: userID, Description: "Restaurante - Almoço", Amount: 45.50, Kind: domain.KindExpense, Date: day, CreatedAt: now},
		{ID: uuid.NewString(), UserID: userID, Description: "Assinatura Netflix", Amount: 39.90, Kind: domain.KindExpense, Date: day, CreatedAt: now},
	}

	if err := h.store.InsertTransactions(r.Context(), txs); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to import demo statement")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_import")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "success",
		"imported":     len(txs),
		"transactions": transactionsToJSON(txs),
	})
}
