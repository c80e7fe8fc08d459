// Package handlers implements the HTTP surface: record CRUD, summaries,
// portfolio analytics, Open Finance consents, sync and webhooks. Handlers
// translate between wire shapes and domain types and map tagged errors to
// status codes; no business decisions are made here.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gestorfin/backend/internal/domain"
)

const dateFormat = "2006-01-02"

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// pagination is the wire shape of list metadata.
type pagination struct {
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// pageParams reads page/per_page query parameters with defaults and caps.
func pageParams(r *http.Request) (page, perPage int) {
	page = 1
	perPage = defaultPerPage

	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			perPage = n
		}
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

// paginate slices items for the requested page and returns the metadata.
// Pagination is applied in the handler; lists are small enough per user that
// the store returns them whole.
func paginate[T any](items []T, page, perPage int) ([]T, pagination) {
	total := len(items)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return items[start:end], pagination{Total: total, Page: page, PerPage: perPage}
}

// transactionJSON is the wire shape of a transaction.
type transactionJSON struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Kind        string  `json:"type"`
	Date        string  `json:"date"`
	CreatedAt   string  `json:"created_at"`
}

func transactionToJSON(t *domain.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Description: t.Description,
		Amount:      t.Amount,
		Kind:        string(t.Kind),
		Date:        t.Date.Format(dateFormat),
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func transactionsToJSON(txs []*domain.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(txs))
	for _, t := range txs {
		out = append(out, transactionToJSON(t))
	}
	return out
}

// consentJSON is the wire shape of a consent. The token is returned to the
// caller on creation and listing; it is the handle webhooks address.
type consentJSON struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Token     string `json:"token"`
	Provider  string `json:"provider"`
	Scopes    string `json:"scopes"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func consentToJSON(c *domain.Consent) consentJSON {
	return consentJSON{
		ID:        c.ID,
		UserID:    c.UserID,
		Token:     c.Token,
		Provider:  c.Provider,
		Scopes:    c.Scopes,
		Status:    string(c.Status),
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// parseDate parses an ISO calendar date, returning the zero time on failure.
func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// today returns the current date truncated to midnight.
func today() time.Time {
	return time.Now().Truncate(24 * time.Hour)
}
