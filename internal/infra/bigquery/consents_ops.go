package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/gestorfin/backend/internal/domain"
)

const consentColumns = `
	consent_id,
	user_id,
	token,
	provider,
	scopes,
	status,
	created_ts,
	deleted_ts`

// InsertConsent persists a new consent through a DML insert. Consents are
// mutated right after creation when a revocation webhook races the grant, so
// they bypass the streaming inserter and its buffering window.
func (s *Store) InsertConsent(ctx context.Context, c *domain.Consent) error {
	q := s.client.Query(`
		INSERT INTO ` + s.table(consentsTable) + ` (` + consentColumns + `)
		VALUES (@consent_id, @user_id, @token, @provider, @scopes, @status, @created_ts, NULL)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "consent_id", Value: c.ID},
		{Name: "user_id", Value: c.UserID},
		{Name: "token", Value: c.Token},
		{Name: "provider", Value: c.Provider},
		{Name: "scopes", Value: c.Scopes},
		{Name: "status", Value: string(c.Status)},
		{Name: "created_ts", Value: c.CreatedAt},
	}

	if err := s.runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertConsent: %w", err)
	}
	return nil
}

// ListConsents returns the user's non-deleted consents, newest first.
func (s *Store) ListConsents(ctx context.Context, userID string) ([]*domain.Consent, error) {
	q := s.client.Query(`
		SELECT ` + consentColumns + `
		FROM ` + s.table(consentsTable) + `
		WHERE user_id = @user_id
		  AND deleted_ts IS NULL
		ORDER BY created_ts DESC
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListConsents: query read: %w", err)
	}

	var consents []*domain.Consent
	for {
		var row ConsentRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListConsents: iter next: %w", err)
		}
		consents = append(consents, consentFromRow(&row))
	}
	return consents, nil
}

// FindActiveConsent returns the user's most recently created active consent,
// or nil when there is none.
func (s *Store) FindActiveConsent(ctx context.Context, userID string) (*domain.Consent, error) {
	q := s.client.Query(`
		SELECT ` + consentColumns + `
		FROM ` + s.table(consentsTable) + `
		WHERE user_id = @user_id
		  AND status = @status
		  AND deleted_ts IS NULL
		ORDER BY created_ts DESC
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "status", Value: string(domain.ConsentActive)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindActiveConsent: query read: %w", err)
	}

	var row ConsentRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindActiveConsent: iter next: %w", err)
	}
	return consentFromRow(&row), nil
}

// FindConsentByToken looks a consent up by its external token, returning nil
// when unknown.
func (s *Store) FindConsentByToken(ctx context.Context, token string) (*domain.Consent, error) {
	q := s.client.Query(`
		SELECT ` + consentColumns + `
		FROM ` + s.table(consentsTable) + `
		WHERE token = @token
		  AND deleted_ts IS NULL
		ORDER BY created_ts DESC
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "token", Value: token},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindConsentByToken: query read: %w", err)
	}

	var row ConsentRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindConsentByToken: iter next: %w", err)
	}
	return consentFromRow(&row), nil
}

// UpdateConsentStatus persists a lifecycle transition.
func (s *Store) UpdateConsentStatus(ctx context.Context, id string, status domain.ConsentStatus) error {
	q := s.client.Query(`
		UPDATE ` + s.table(consentsTable) + `
		SET status = @status
		WHERE consent_id = @consent_id
		  AND deleted_ts IS NULL
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: string(status)},
		{Name: "consent_id", Value: id},
	}

	if err := s.runDML(ctx, q); err != nil {
		return fmt.Errorf("UpdateConsentStatus: %w", err)
	}
	return nil
}
