package openfinance

import (
	"testing"
	"time"

	"github.com/gestorfin/backend/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFingerprint(t *testing.T) {
	tests := []struct {
		name        string
		date        time.Time
		kind        domain.TransactionKind
		amount      float64
		description string
		want        string
	}{
		{
			name:        "basic expense",
			date:        date(2025, 3, 14),
			kind:        domain.KindExpense,
			amount:      152.30,
			description: "Supermercado Open Finance",
			want:        "2025-03-14|expense|152.30|supermercado open finance",
		},
		{
			name:        "amount rounded to two decimals",
			date:        date(2025, 3, 14),
			kind:        domain.KindIncome,
			amount:      10.005,
			description: "x",
			want:        "2025-03-14|income|10.00|x",
		},
		{
			name:        "whitespace trimmed and lowercased",
			date:        date(2025, 1, 2),
			kind:        domain.KindIncome,
			amount:      1,
			description: "  Depósito OF  ",
			want:        "2025-01-02|income|1.00|depósito of",
		},
		{
			name:        "time of day ignored",
			date:        time.Date(2025, 3, 14, 23, 59, 59, 0, time.UTC),
			kind:        domain.KindExpense,
			amount:      5,
			description: "cafe",
			want:        "2025-03-14|expense|5.00|cafe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fingerprint(tt.date, tt.kind, tt.amount, tt.description)
			if got != tt.want {
				t.Errorf("Fingerprint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFingerprint_StoredAndCandidateAgree(t *testing.T) {
	d := date(2025, 6, 1)
	stored := &domain.Transaction{
		Description: "Boleto Energia",
		Amount:      210.15,
		Kind:        domain.KindExpense,
		Date:        d,
	}
	candidate := domain.NormalizedTransaction{
		Description: "  boleto energia ",
		Amount:      210.15,
		Kind:        domain.KindExpense,
		Date:        d,
	}

	if TransactionFingerprint(stored) != CandidateFingerprint(candidate) {
		t.Errorf("stored %q and candidate %q fingerprints differ",
			TransactionFingerprint(stored), CandidateFingerprint(candidate))
	}
}

func TestDedupe(t *testing.T) {
	d := date(2025, 6, 1)
	a := domain.NormalizedTransaction{Description: "a", Amount: 1, Kind: domain.KindIncome, Date: d}
	b := domain.NormalizedTransaction{Description: "b", Amount: 2, Kind: domain.KindExpense, Date: d}

	tests := []struct {
		name         string
		candidates   []domain.NormalizedTransaction
		existing     []*domain.Transaction
		wantAccepted int
		wantSkipped  int
	}{
		{
			name:         "all new",
			candidates:   []domain.NormalizedTransaction{a, b},
			wantAccepted: 2,
		},
		{
			name:       "all already stored",
			candidates: []domain.NormalizedTransaction{a, b},
			existing: []*domain.Transaction{
				{Description: "a", Amount: 1, Kind: domain.KindIncome, Date: d},
				{Description: "b", Amount: 2, Kind: domain.KindExpense, Date: d},
			},
			wantSkipped: 2,
		},
		{
			name:         "duplicate within batch accepted once",
			candidates:   []domain.NormalizedTransaction{a, a, a},
			wantAccepted: 1,
			wantSkipped:  2,
		},
		{
			name:       "mixed",
			candidates: []domain.NormalizedTransaction{a, b, b},
			existing: []*domain.Transaction{
				{Description: "a", Amount: 1, Kind: domain.KindIncome, Date: d},
			},
			wantAccepted: 1,
			wantSkipped:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			existing := BuildExistingSet(tt.existing)
			before := len(existing)

			accepted, skipped := Dedupe(tt.candidates, existing)
			if len(accepted) != tt.wantAccepted {
				t.Errorf("accepted = %d, want %d", len(accepted), tt.wantAccepted)
			}
			if skipped != tt.wantSkipped {
				t.Errorf("skipped = %d, want %d", skipped, tt.wantSkipped)
			}
			if len(existing) != before {
				t.Errorf("caller's set grew from %d to %d entries", before, len(existing))
			}
		})
	}
}

func TestDedupe_PreservesOrder(t *testing.T) {
	d := date(2025, 6, 1)
	candidates := []domain.NormalizedTransaction{
		{Description: "first", Amount: 1, Kind: domain.KindIncome, Date: d},
		{Description: "second", Amount: 2, Kind: domain.KindExpense, Date: d},
		{Description: "third", Amount: 3, Kind: domain.KindExpense, Date: d},
	}

	accepted, _ := Dedupe(candidates, nil)
	if len(accepted) != 3 {
		t.Fatalf("accepted = %d, want 3", len(accepted))
	}
	for i, want := range []string{"first", "second", "third"} {
		if accepted[i].Description != want {
			t.Errorf("accepted[%d].Description = %q, want %q", i, accepted[i].Description, want)
		}
	}
}
