package openfinance

import (
	"fmt"
	"strings"
	"time"

	"github.com/gestorfin/backend/internal/domain"
)

// dateFormat is the ISO calendar-date layout used inside fingerprints.
const dateFormat = "2006-01-02"

// Fingerprint derives the duplicate-detection key for a transaction:
//
//	date|kind|amount|description
//
// with the amount formatted to two decimals and the description lower-cased
// and trimmed. The exact field order and formatting are load-bearing: this
// string is the sole equality relation between a stored transaction and a
// provider candidate, so any drift re-imports everything.
func Fingerprint(date time.Time, kind domain.TransactionKind, amount float64, description string) string {
	return fmt.Sprintf("%s|%s|%.2f|%s",
		date.Format(dateFormat),
		kind,
		amount,
		strings.ToLower(strings.TrimSpace(description)),
	)
}

// TransactionFingerprint computes the fingerprint of a stored transaction.
func TransactionFingerprint(t *domain.Transaction) string {
	return Fingerprint(t.Date, t.Kind, t.Amount, t.Description)
}

// CandidateFingerprint computes the fingerprint of a provider candidate.
func CandidateFingerprint(n domain.NormalizedTransaction) string {
	return Fingerprint(n.Date, n.Kind, n.Amount, n.Description)
}

// BuildExistingSet computes the fingerprint set of the given transactions.
// Callers pass the user's live rows; soft-deleted rows must already be
// filtered out so that a re-sync after a delete re-imports the record.
// Built once per sync, linear in the user's live transaction count.
func BuildExistingSet(txs []*domain.Transaction) map[string]struct{} {
	set := make(map[string]struct{}, len(txs))
	for _, t := range txs {
		set[TransactionFingerprint(t)] = struct{}{}
	}
	return set
}

// Dedupe filters candidates against the existing fingerprint set, preserving
// provider order. Accepted fingerprints are added to a working copy of the
// set so a fingerprint repeated within one batch is only accepted once - a
// provider returning the same event twice in a page must not double-insert.
// The caller's set is not modified.
func Dedupe(candidates []domain.NormalizedTransaction, existing map[string]struct{}) (accepted []domain.NormalizedTransaction, skipped int) {
	seen := make(map[string]struct{}, len(existing)+len(candidates))
	for fp := range existing {
		seen[fp] = struct{}{}
	}

	for _, c := range candidates {
		fp := CandidateFingerprint(c)
		if _, dup := seen[fp]; dup {
			skipped++
			continue
		}
		seen[fp] = struct{}{}
		accepted = append(accepted, c)
	}
	return accepted, skipped
}
