package openfinance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gestorfin/backend/internal/config"
	"github.com/gestorfin/backend/internal/domain"
)

func newTestServer(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	tokenCalls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("grant_type") != "client_credentials" {
			http.Error(w, "bad grant_type", http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("consent_id") == "" {
			http.Error(w, "missing consent_id", http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, `{"access_token":"tok-%d","token_type":"Bearer","expires_in":3600}`, tokenCalls)
	})
	mux.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"data":[{"accountId":"acc-1","type":"CACC","currency":"BRL"}]}`)
	})
	mux.HandleFunc("/accounts/acc-1/transactions", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[
			{"transactionName":"Pix recebido","creditDebitType":"CREDITO","amount":100.50,"bookingDate":"2025-03-10"},
			{"transactionName":"Mercado","creditDebitType":"DEBITO","amount":89.90,"bookingDate":"2025-03-11"}
		]}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &tokenCalls
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(config.OpenFinanceConfig{
		BaseURL:      baseURL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestClient_FetchTransactions(t *testing.T) {
	srv, _ := newTestServer(t)
	client := newTestClient(t, srv.URL)

	got, err := client.FetchTransactions(context.Background(), "user-1", "consent-token")
	if err != nil {
		t.Fatalf("FetchTransactions() error = %v", err)
	}

	want := []domain.NormalizedTransaction{
		{Description: "Pix recebido", Amount: 100.50, Kind: domain.KindIncome, Date: date(2025, 3, 10)},
		{Description: "Mercado", Amount: 89.90, Kind: domain.KindExpense, Date: date(2025, 3, 11)},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d transactions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transaction %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestClient_TokenReuse(t *testing.T) {
	srv, tokenCalls := newTestServer(t)
	client := newTestClient(t, srv.URL)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := client.FetchTransactions(ctx, "user-1", "consent-token"); err != nil {
			t.Fatal(err)
		}
	}
	if *tokenCalls != 1 {
		t.Errorf("token endpoint called %d times, want 1", *tokenCalls)
	}
}

func TestClient_TokenRefreshNearExpiry(t *testing.T) {
	srv, tokenCalls := newTestServer(t)
	client := newTestClient(t, srv.URL)

	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	client.clock = func() time.Time { return now }

	ctx := context.Background()
	if _, err := client.FetchTransactions(ctx, "user-1", "consent-token"); err != nil {
		t.Fatal(err)
	}

	// 30 seconds before expiry is within the safety margin.
	now = now.Add(3600*time.Second - 30*time.Second)
	if _, err := client.FetchTransactions(ctx, "user-1", "consent-token"); err != nil {
		t.Fatal(err)
	}

	if *tokenCalls != 2 {
		t.Errorf("token endpoint called %d times, want 2", *tokenCalls)
	}
}

func TestClient_MissingConfig(t *testing.T) {
	client, err := NewClient(config.OpenFinanceConfig{BaseURL: "http://localhost"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.FetchTransactions(context.Background(), "user-1", "consent-token")
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if len(cerr.Missing) != 2 {
		t.Errorf("Missing = %v, want client id and client secret", cerr.Missing)
	}
}

func TestClient_TokenExchangeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_client", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)
	client := newTestClient(t, srv.URL)

	_, err := client.FetchTransactions(context.Background(), "user-1", "consent-token")
	var uerr *UpstreamError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if uerr.Step != "token exchange" {
		t.Errorf("Step = %q, want %q", uerr.Step, "token exchange")
	}
}

func TestClient_AccountDiscoveryFailureDegrades(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"tok","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oops", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client := newTestClient(t, srv.URL)

	got, err := client.FetchTransactions(context.Background(), "user-1", "consent-token")
	if err != nil {
		t.Fatalf("expected degraded empty result, got error %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d transactions, want 0", len(got))
	}
}
