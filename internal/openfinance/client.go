package openfinance

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gestorfin/backend/internal/config"
	"github.com/gestorfin/backend/internal/domain"
	"github.com/gestorfin/backend/internal/logger"
)

// RealName is the source label of the live Open Finance integration.
const RealName = "open_finance"

const (
	// requestTimeout bounds every call to the provider.
	requestTimeout = 30 * time.Second

	// tokenExpiryMargin is subtracted from the token lifetime before reuse:
	// a token within a minute of expiry is treated as already expired.
	tokenExpiryMargin = 60 * time.Second

	// transactionWindow is the trailing window requested per account.
	transactionWindow = 90 * 24 * time.Hour
)

// Client talks to a live Open Finance provider: client-credentials token
// exchange gated by a consent, account discovery and per-account transaction
// listing, normalized into the common shape.
type Client struct {
	cfg        config.OpenFinanceConfig
	httpClient *http.Client
	clock      func() time.Time

	// Cached bearer token, owned exclusively by this instance. The mutex
	// guards the read-check-then-write refresh when the instance is shared
	// across concurrent requests.
	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a live provider client. Missing credentials are not an
// error here - FetchTransactions reports a ConfigError instead, so that a
// misconfigured deployment fails loudly at sync time rather than silently
// serving simulated data.
func NewClient(cfg config.OpenFinanceConfig) (*Client, error) {
	httpClient := &http.Client{Timeout: requestTimeout}

	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("NewClient: loading mTLS keypair: %w", err)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{Certificates: []tls.Certificate{cert}},
		}
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		clock:      time.Now,
	}, nil
}

// Name implements Provider.
func (c *Client) Name() string {
	return RealName
}

// FetchTransactions implements Provider. Account discovery and per-account
// listing failures are logged and degrade to empty results; only a failed
// token exchange aborts the fetch.
func (c *Client) FetchTransactions(ctx context.Context, userID, consentToken string) ([]domain.NormalizedTransaction, error) {
	log := logger.FromContext(ctx)

	if err := c.checkConfig(); err != nil {
		return nil, err
	}

	token, err := c.accessToken(ctx, consentToken)
	if err != nil {
		return nil, &UpstreamError{Step: "token exchange", Err: err}
	}

	accounts, err := c.listAccounts(ctx, token)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Account discovery failed, returning no transactions")
		return nil, nil
	}

	now := c.clock()
	from := now.Add(-transactionWindow)

	var result []domain.NormalizedTransaction
	for _, account := range accounts {
		raw, err := c.listTransactions(ctx, token, account.AccountID, from, now)
		if err != nil {
			log.Warn().
				Err(err).
				Str("account_id", account.AccountID).
				Msg("Transaction listing failed for account, skipping")
			continue
		}
		for _, tx := range raw {
			result = append(result, normalizeTransaction(tx, now))
		}
	}

	return result, nil
}

func (c *Client) checkConfig() error {
	var missing []string
	if c.cfg.BaseURL == "" {
		missing = append(missing, "base URL")
	}
	if c.cfg.ClientID == "" {
		missing = append(missing, "client id")
	}
	if c.cfg.ClientSecret == "" {
		missing = append(missing, "client secret")
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

// tokenResponse is the OAuth token endpoint response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns a bearer token, reusing the cached one while it stays
// clear of the expiry margin. Token acquisition is idempotent, so a racing
// duplicate refresh would be benign, but the lock keeps the cache coherent.
func (c *Client) accessToken(ctx context.Context, consentToken string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	if c.token != "" && now.Add(tokenExpiryMargin).Before(c.tokenExpiry) {
		return c.token, nil
	}

	data := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"consent_id":    {consentToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/oauth/token", strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty access_token")
	}

	c.token = tr.AccessToken
	c.tokenExpiry = now.Add(time.Duration(tr.ExpiresIn) * time.Second)

	return c.token, nil
}

// ofAccount is one entry of the provider's account listing.
type ofAccount struct {
	AccountID string `json:"accountId"`
	Type      string `json:"type"`
	Currency  string `json:"currency"`
}

func (c *Client) listAccounts(ctx context.Context, token string) ([]ofAccount, error) {
	var envelope struct {
		Data []ofAccount `json:"data"`
	}
	if err := c.getJSON(ctx, token, c.cfg.BaseURL+"/accounts", &envelope); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return envelope.Data, nil
}

func (c *Client) listTransactions(ctx context.Context, token, accountID string, from, to time.Time) ([]ofRawTransaction, error) {
	endpoint := fmt.Sprintf("%s/accounts/%s/transactions?fromBookingDate=%s&toBookingDate=%s",
		c.cfg.BaseURL,
		url.PathEscape(accountID),
		from.Format(dateFormat),
		to.Format(dateFormat),
	)

	var envelope struct {
		Data []ofRawTransaction `json:"data"`
	}
	if err := c.getJSON(ctx, token, endpoint, &envelope); err != nil {
		return nil, fmt.Errorf("list transactions for account %s: %w", accountID, err)
	}
	return envelope.Data, nil
}

func (c *Client) getJSON(ctx context.Context, token, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

var _ Provider = (*Client)(nil)
