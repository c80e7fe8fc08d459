package domain

import "time"

// ConsentStatus is the closed set of consent lifecycle states.
type ConsentStatus string

const (
	ConsentActive  ConsentStatus = "active"
	ConsentRevoked ConsentStatus = "revoked"
	ConsentExpired ConsentStatus = "expired"
)

// Valid reports whether the status is one of the closed set.
func (s ConsentStatus) Valid() bool {
	return s == ConsentActive || s == ConsentRevoked || s == ConsentExpired
}

// Terminal reports whether the status admits no further transitions.
func (s ConsentStatus) Terminal() bool {
	return s == ConsentRevoked || s == ConsentExpired
}

// Consent authorizes pulling a user's data from an Open Finance provider.
// The token is the externally meaningful identifier: the provider and
// webhook events reference consents by token, never by row id. Consents are
// never hard-deleted; revocation and expiry only flip the status.
type Consent struct {
	ID        string
	UserID    string
	Token     string // globally unique among non-deleted consents
	Provider  string
	Scopes    string // space-separated scope list
	Status    ConsentStatus
	CreatedAt time.Time
	DeletedAt *time.Time
}

// Active reports whether the consent currently gates a sync.
func (c *Consent) Active() bool {
	return c.Status == ConsentActive && c.DeletedAt == nil
}
