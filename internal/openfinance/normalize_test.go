package openfinance

import (
	"testing"
	"time"

	"github.com/gestorfin/backend/internal/domain"
)

func TestNormalizeTransaction(t *testing.T) {
	now := time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)
	today := now.Truncate(24 * time.Hour)

	tests := []struct {
		name string
		raw  ofRawTransaction
		want domain.NormalizedTransaction
	}{
		{
			name: "credit indicator wins",
			raw: ofRawTransaction{
				TransactionName: "Salário",
				CreditDebitType: "CREDITO",
				Amount:          -3500, // sign contradicts the indicator
				BookingDate:     "2025-03-10",
			},
			want: domain.NormalizedTransaction{
				Description: "Salário",
				Amount:      3500,
				Kind:        domain.KindIncome,
				Date:        date(2025, 3, 10),
			},
		},
		{
			name: "debit indicator",
			raw: ofRawTransaction{
				TransactionName: "Mercado",
				CreditDebitType: "DEBITO",
				Amount:          89.90,
				BookingDate:     "2025-03-11",
			},
			want: domain.NormalizedTransaction{
				Description: "Mercado",
				Amount:      89.90,
				Kind:        domain.KindExpense,
				Date:        date(2025, 3, 11),
			},
		},
		{
			name: "sign fallback when indicator missing",
			raw: ofRawTransaction{
				TransactionName: "Pix enviado",
				Amount:          -120,
				BookingDate:     "2025-03-12",
			},
			want: domain.NormalizedTransaction{
				Description: "Pix enviado",
				Amount:      120,
				Kind:        domain.KindExpense,
				Date:        date(2025, 3, 12),
			},
		},
		{
			name: "merchant name fallback",
			raw: ofRawTransaction{
				MerchantName:    "Padaria Central",
				CreditDebitType: "DEBITO",
				Amount:          15.50,
				BookingDate:     "2025-03-12",
			},
			want: domain.NormalizedTransaction{
				Description: "Padaria Central",
				Amount:      15.50,
				Kind:        domain.KindExpense,
				Date:        date(2025, 3, 12),
			},
		},
		{
			name: "generic description and today when everything missing",
			raw: ofRawTransaction{
				Amount: 42,
			},
			want: domain.NormalizedTransaction{
				Description: fallbackDescription,
				Amount:      42,
				Kind:        domain.KindIncome,
				Date:        today,
			},
		},
		{
			name: "transaction date when booking date absent",
			raw: ofRawTransaction{
				TransactionName: "Estorno",
				CreditDebitType: "CREDITO",
				Amount:          30,
				TransactionDate: "2025-02-28",
			},
			want: domain.NormalizedTransaction{
				Description: "Estorno",
				Amount:      30,
				Kind:        domain.KindIncome,
				Date:        date(2025, 2, 28),
			},
		},
		{
			name: "unparseable date falls back to today",
			raw: ofRawTransaction{
				TransactionName: "Tarifa",
				CreditDebitType: "DEBITO",
				Amount:          9.90,
				BookingDate:     "12/03/2025",
			},
			want: domain.NormalizedTransaction{
				Description: "Tarifa",
				Amount:      9.90,
				Kind:        domain.KindExpense,
				Date:        today,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeTransaction(tt.raw, now)
			if got != tt.want {
				t.Errorf("normalizeTransaction() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalizeTransaction_OutputValidates(t *testing.T) {
	now := time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)
	raw := ofRawTransaction{Amount: 1} // worst case: everything else missing
	if err := normalizeTransaction(raw, now).Validate(); err != nil {
		t.Errorf("normalized transaction failed validation: %v", err)
	}
}
