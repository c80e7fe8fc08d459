package openfinance

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the expected failure modes. The HTTP layer maps these
// to status codes; nothing in this package knows about transports.
var (
	// ErrNoActiveConsent gates a sync: the user has no active consent.
	ErrNoActiveConsent = errors.New("no active consent")

	// ErrNotFound marks lookups whose target (consent token, record id) is
	// unknown, as opposed to malformed input.
	ErrNotFound = errors.New("not found")
)

// ConfigError reports missing settings on the real provider. It is fatal at
// fetch time: the provider never silently falls back to simulated data.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("open finance provider not configured: missing %s", strings.Join(e.Missing, ", "))
}

// UpstreamError reports a fatal failure talking to the external provider.
// Listing failures degrade to empty results and never produce this; only the
// steps that abort a sync (token acquisition, or a broken provider) do.
type UpstreamError struct {
	Step string
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("open finance %s failed: %v", e.Step, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ValidationError reports malformed input: an unrecognized lifecycle event,
// an invalid consent field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
