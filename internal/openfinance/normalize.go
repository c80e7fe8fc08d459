package openfinance

import (
	"math"
	"strings"
	"time"

	"github.com/gestorfin/backend/internal/domain"
)

// fallbackDescription labels transactions whose source carries no usable
// name fields.
const fallbackDescription = "Transação Open Finance"

// ofRawTransaction is the provider's wire shape for one transaction. Fields
// follow the Open Finance Brasil account-transactions payload; most are
// optional in practice, so normalization fills every gap.
type ofRawTransaction struct {
	TransactionName string  `json:"transactionName"`
	MerchantName    string  `json:"merchantName"`
	CreditDebitType string  `json:"creditDebitType"` // CREDITO | DEBITO
	Amount          float64 `json:"amount"`
	BookingDate     string  `json:"bookingDate"`     // YYYY-MM-DD
	TransactionDate string  `json:"transactionDate"` // YYYY-MM-DD
}

// normalizeTransaction maps a raw provider transaction onto the common
// shape: kind from the credit/debit indicator with sign-of-amount as the
// fallback, amount coerced to its absolute value, description synthesized
// from the available name fields, date defaulting to today when the source
// omits a booking date.
func normalizeTransaction(raw ofRawTransaction, now time.Time) domain.NormalizedTransaction {
	kind := kindOf(raw.CreditDebitType, raw.Amount)

	description := strings.TrimSpace(raw.TransactionName)
	if description == "" {
		description = strings.TrimSpace(raw.MerchantName)
	}
	if description == "" {
		description = fallbackDescription
	}

	date := parseDate(raw.BookingDate)
	if date.IsZero() {
		date = parseDate(raw.TransactionDate)
	}
	if date.IsZero() {
		date = now.Truncate(24 * time.Hour)
	}

	return domain.NormalizedTransaction{
		Description: description,
		Amount:      math.Abs(raw.Amount),
		Kind:        kind,
		Date:        date,
	}
}

// kindOf determines the transaction kind from the explicit credit/debit
// indicator when present, falling back to the sign of the amount.
func kindOf(creditDebit string, amount float64) domain.TransactionKind {
	switch strings.ToUpper(strings.TrimSpace(creditDebit)) {
	case "CREDITO", "CREDIT":
		return domain.KindIncome
	case "DEBITO", "DEBIT":
		return domain.KindExpense
	}
	if amount < 0 {
		return domain.KindExpense
	}
	return domain.KindIncome
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
