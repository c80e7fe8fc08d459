package handlers

import (
	"net/http"

	"github.com/gestorfin/backend/internal/api/middleware"
)

type tipJSON struct {
	Category string `json:"category"`
	Title    string `json:"title"`
	Text     string `json:"text"`
}

// investmentTips is a fixed catalog; content is static by design, there is
// no per-user tailoring.
var investmentTips = []tipJSON{
	{
		Category: "reserva",
		Title:    "Reserva de emergência primeiro",
		Text:     "Antes de buscar rentabilidade, monte uma reserva de 6 meses de despesas em ativos de liquidez diária.",
	},
	{
		Category: "diversificacao",
		Title:    "Diversifique entre classes",
		Text:     "Distribua os aportes entre renda fixa, fundos imobiliários e ações para reduzir o risco de concentração.",
	},
	{
		Category: "custos",
		Title:    "Atenção às taxas",
		Text:     "Taxas de administração acima de 1% ao ano corroem o retorno composto. Compare antes de aplicar.",
	},
	{
		Category: "prazo",
		Title:    "Case o prazo com o objetivo",
		Text:     "Objetivos de curto prazo pedem ativos conservadores; metas longas toleram volatilidade maior.",
	},
	{
		Category: "disciplina",
		Title:    "Aportes regulares vencem timing",
		Text:     "Aportar todo mês, independentemente do cenário, tende a superar tentativas de acertar o momento do mercado.",
	},
}

// TipsHandler serves the investment tips catalog.
type TipsHandler struct{}

// NewTipsHandler creates a new tips handler.
func NewTipsHandler() *TipsHandler {
	return &TipsHandler{}
}

// List handles GET /api/investments/tips
func (h *TipsHandler) List(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"tips":  investmentTips,
		"count": len(investmentTips),
	})
}
