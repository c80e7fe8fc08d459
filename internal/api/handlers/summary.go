package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/gestorfin/backend/internal/api/middleware"
	"github.com/gestorfin/backend/internal/domain"
	"github.com/gestorfin/backend/internal/store"
)

// SummaryHandler aggregates a user's live records into a monthly view.
type SummaryHandler struct {
	transactions store.TransactionStore
	installments store.InstallmentStore
	log          zerolog.Logger
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(txs store.TransactionStore, insts store.InstallmentStore, log zerolog.Logger) *SummaryHandler {
	return &SummaryHandler{transactions: txs, installments: insts, log: log}
}

type summaryJSON struct {
	Income           float64 `json:"income"`
	ExpensesAvulsa   float64 `json:"expenses_avulsa"`
	ExpensesParcelas float64 `json:"expenses_parcelas"`
	ExpensesTotal    float64 `json:"expenses_total"`
	Balance          float64 `json:"balance"`
}

// Summary handles GET /api/users/{userID}/summary. Only live records count;
// soft-deleted rows are excluded by the store.
func (h *SummaryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")

	txs, err := h.transactions.ListTransactions(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to load transactions for summary")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_build_summary")
		return
	}
	insts, err := h.installments.ListInstallments(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to load installments for summary")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_build_summary")
		return
	}

	var s summaryJSON
	for _, t := range txs {
		switch t.Kind {
		case domain.KindIncome:
			s.Income += t.Amount
		case domain.KindExpense:
			s.ExpensesAvulsa += t.Amount
		}
	}
	for _, i := range insts {
		s.ExpensesParcelas += i.MonthlyValue
	}
	s.ExpensesTotal = s.ExpensesAvulsa + s.ExpensesParcelas
	s.Balance = s.Income - s.ExpensesTotal

	middleware.WriteJSON(w, http.StatusOK, s)
}
