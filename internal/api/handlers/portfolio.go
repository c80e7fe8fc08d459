package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gestorfin/backend/internal/api/middleware"
	"github.com/gestorfin/backend/internal/domain"
)

type assetBreakdown struct {
	Invested     float64 `json:"invested"`
	CurrentValue float64 `json:"current_value"`
	Count        int     `json:"count"`
	Share        float64 `json:"share_percentage"`
}

type portfolioJSON struct {
	TotalInvested    float64                   `json:"total_invested"`
	CurrentValue     float64                   `json:"current_value"`
	TotalReturn      float64                   `json:"total_return"`
	ReturnPercentage float64                   `json:"return_percentage"`
	ByAssetType      map[string]assetBreakdown `json:"by_asset_type"`
	Recommendations  []string                  `json:"recommendations"`
}

// Portfolio handles GET /api/users/{userID}/investments/portfolio
func (h *InvestmentsHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	invs, err := h.store.ListInvestments(r.Context(), userID, "")
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to load investments for portfolio")
		middleware.WriteError(w, http.StatusInternalServerError, "failed_to_build_portfolio")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, buildPortfolio(invs))
}

func buildPortfolio(invs []*domain.Investment) portfolioJSON {
	p := portfolioJSON{
		ByAssetType: make(map[string]assetBreakdown),
	}

	for _, v := range invs {
		invested := v.Invested()
		current := v.CurrentValue()
		p.TotalInvested += invested
		p.CurrentValue += current

		b := p.ByAssetType[string(v.AssetType)]
		b.Invested += invested
		b.CurrentValue += current
		b.Count++
		p.ByAssetType[string(v.AssetType)] = b
	}

	p.TotalReturn = p.CurrentValue - p.TotalInvested
	if p.TotalInvested > 0 {
		p.ReturnPercentage = p.TotalReturn / p.TotalInvested * 100
	}
	if p.CurrentValue > 0 {
		for k, b := range p.ByAssetType {
			b.Share = b.CurrentValue / p.CurrentValue * 100
			p.ByAssetType[k] = b
		}
	}

	p.Recommendations = recommendations(p)
	return p
}

// recommendations derives canned guidance from simple thresholds over the
// aggregated portfolio.
func recommendations(p portfolioJSON) []string {
	var recs []string

	if len(p.ByAssetType) == 0 {
		return []string{"Comece a investir: cadastre sua primeira posição para acompanhar o desempenho."}
	}
	if len(p.ByAssetType) == 1 {
		recs = append(recs, "Sua carteira está concentrada em uma única classe de ativo. Considere diversificar.")
	}
	for asset, b := range p.ByAssetType {
		if b.Share > 70 {
			recs = append(recs, "Mais de 70% da carteira está em "+asset+". Rebalancear reduz o risco de concentração.")
		}
	}
	if _, ok := p.ByAssetType[string(domain.AssetSavings)]; !ok {
		recs = append(recs, "Mantenha uma reserva de emergência em ativos de liquidez imediata.")
	}
	if p.ReturnPercentage < 0 {
		recs = append(recs, "A carteira está abaixo do valor investido. Revise as posições com pior desempenho antes de novos aportes.")
	}
	if len(recs) == 0 {
		recs = append(recs, "Carteira diversificada. Mantenha aportes regulares e revise as metas periodicamente.")
	}
	return recs
}
