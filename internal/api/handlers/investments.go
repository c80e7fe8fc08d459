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

// InvestmentsHandler handles investment CRUD and portfolio endpoints.
type InvestmentsHandler struct {
	store store.InvestmentStore
	log   zerolog.Logger
}

// NewInvestmentsHandler creates a new investments handler.
func NewInvestmentsHandler(s store.InvestmentStore, log zerolog.Logger) *InvestmentsHandler {
	return &InvestmentsHandler{store: s, log: log}
}

// Routes mounts the handler under /users/{userID}/investments.
func (h *InvestmentsHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/portfolio", h.Portfolio)
	r.Put("/{investmentID}", h.Update)
	r.Patch("/{investmentID}", h.Update)
	r.Delete("/{investmentID}", h.Delete)
}

type investmentJSON struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	AssetType     string  `json:"asset_type"`
	Amount        float64 `json:"amount"`
	PurchasePrice float64 `json:"purchase_price"`
	CurrentPrice  float64 `json:"current_price"`
	PurchaseDate  string  `json:"purchase_date"`
	TargetReturn  float64 `json:"target_return"`
	Notes         string  `json:"notes,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func investmentToJSON(v *domain.Investment) investmentJSON {
	return investmentJSON{
		ID:            v.ID,
		Name:          v.Name,
		AssetType:     string(v.AssetType),
		Amount:        v.Amount,
		PurchasePrice: v.PurchasePrice,
		CurrentPrice:  v.CurrentPrice,
		PurchaseDate:  v.PurchaseDate.Format(dateFormat),
		TargetReturn:  v.TargetReturn,
		Notes:         v.Notes,
		CreatedAt:     v.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type investmentRequest struct {
	Name          *string  `json:"name"`
	AssetType     *string  `json:"asset_type"`
	Amount        *float64 `json:"amount"`
	PurchasePrice *float64 `json:"purchase_price"`
	CurrentPrice  *float64 `json:"current_price"`
	PurchaseDate  *string  `json:"purchase_date"`
	TargetReturn  *float64 `json:"target_return"`
	Notes         *string  `json:"notes"`
}

// List handles GET /api/users/{userID}/investments with an optional
// asset_type filter.
func (h *InvestmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	assetType := domain.AssetType(r.URL.Query().Get("asset_type"))
	if assetType != "" && !assetType.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_asset_type")
		return
	}

	invs, err := h.store.ListInvestments(r.Context(), userID, assetType)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list investments")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_list_investments")
		return
	}

	page, perPage := pageParams(r)
	pageInvs, meta := paginate(invs, page, perPage)

	items := make([]investmentJSON, 0, len(pageInvs))
	for _, v := range pageInvs {
		items = append(items, investmentToJSON(v))
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":      items,
		"pagination": meta,
	})
}

// Create handles POST /api/users/{userID}/investments
func (h *InvestmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req investmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request_body")
		return
	}

	if req.Name == nil || *req.Name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "name_required")
		return
	}
	if req.AssetType == nil || !domain.AssetType(*req.AssetType).Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_asset_type")
		return
	}
	if req.Amount == nil || *req.Amount <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, "amount_must_be_positive")
		return
	}
	if req.PurchasePrice == nil || *req.PurchasePrice <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, "purchase_price_must_be_positive")
		return
	}
	currentPrice := *req.PurchasePrice
	if req.CurrentPrice != nil {
		if *req.CurrentPrice <= 0 {
			middleware.WriteError(w, http.StatusBadRequest, "current_price_must_be_positive")
			return
		}
		currentPrice = *req.CurrentPrice
	}
	purchaseDate := today()
	if req.PurchaseDate != nil && *req.PurchaseDate != "" {
		parsed, ok := parseDate(*req.PurchaseDate)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, "invalid_purchase_date")
			return
		}
		purchaseDate = parsed
	}

	inv := &domain.Investment{
		ID:            uuid.NewString(),
		UserID:        userID,
		Name:          *req.Name,
		AssetType:     domain.AssetType(*req.AssetType),
		Amount:        *req.Amount,
		PurchasePrice: *req.PurchasePrice,
		CurrentPrice:  currentPrice,
		PurchaseDate:  purchaseDate,
		CreatedAt:     time.Now(),
	}
	if req.TargetReturn != nil {
		inv.TargetReturn = *req.TargetReturn
	}
	if req.Notes != nil {
		inv.Notes = *req.Notes
	}

	if err := h.store.InsertInvestment(r.Context(), inv); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to insert investment")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_create_investment")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, investmentToJSON(inv))
}

// Update handles PUT/PATCH /api/users/{userID}/investments/{investmentID}.
func (h *InvestmentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	id := chi.URLParam(r, "investmentID")

	var req investmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_request_body")
		return
	}

	inv, err := h.store.GetInvestment(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "investment_not_found")
			return
		}
		h.log.Error().Err(err).Str("investment_id", id).Msg("Failed to load investment for update")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_update_investment")
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			middleware.WriteError(w, http.StatusBadRequest, "name_required")
			return
		}
		inv.Name = *req.Name
	}
	if req.AssetType != nil {
		assetType := domain.AssetType(*req.AssetType)
		if !assetType.Valid() {
			middleware.WriteError(w, http.StatusBadRequest, "invalid_asset_type")
			return
		}
		inv.AssetType = assetType
	}
	if req.Amount != nil {
		if *req.Amount <= 0 {
			middleware.WriteError(w, http.StatusBadRequest, "amount_must_be_positive")
			return
		}
		inv.Amount = *req.Amount
	}
	if req.PurchasePrice != nil {
		if *req.PurchasePrice <= 0 {
			middleware.WriteError(w, http.StatusBadRequest, "purchase_price_must_be_positive")
			return
		}
		inv.PurchasePrice = *req.PurchasePrice
	}
	if req.CurrentPrice != nil {
		if *req.CurrentPrice <= 0 {
			middleware.WriteError(w, http.StatusBadRequest, "current_price_must_be_positive")
			return
		}
		inv.CurrentPrice = *req.CurrentPrice
	}
	if req.PurchaseDate != nil {
		parsed, ok := parseDate(*req.PurchaseDate)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, "invalid_purchase_date")
			return
		}
		inv.PurchaseDate = parsed
	}
	if req.TargetReturn != nil {
		inv.TargetReturn = *req.TargetReturn
	}
	if req.Notes != nil {
		inv.Notes = *req.Notes
	}

	if err := h.store.UpdateInvestment(r.Context(), inv); err != nil {
		h.log.Error().Err(err).Str("investment_id", id).Msg("Failed to update investment")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_update_investment")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, investmentToJSON(inv))
}

// Delete handles DELETE /api/users/{userID}/investments/{investmentID}.
func (h *InvestmentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	id := chi.URLParam(r, "investmentID")

	if _, err := h.store.GetInvestment(r.Context(), userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "investment_not_found")
			return
		}
		h.log.Error().Err(err).Str("investment_id", id).Msg("Failed to load investment for delete")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_delete_investment")
		return
	}

	if err := h.store.SoftDeleteInvestment(r.Context(), userID, id); err != nil {
		h.log.Error().Err(err).Str("investment_id", id).Msg("Failed to delete investment")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_delete_investment")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"deleted": id})
}
