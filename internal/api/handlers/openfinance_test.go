package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/gestorfin/backend/internal/domain"
	"github.com/gestorfin/backend/internal/openfinance"
	"github.com/gestorfin/backend/internal/store/inmemory"
)

type failingProvider struct{}

func (failingProvider) Name() string { return "failing" }

func (failingProvider) FetchTransactions(ctx context.Context, userID, consentToken string) ([]domain.NormalizedTransaction, error) {
	return nil, errors.New("upstream down")
}

type testEnv struct {
	router   *chi.Mux
	store    *inmemory.Store
	consents *openfinance.ConsentManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := inmemory.NewStore()
	log := zerolog.New(nil)
	consents := openfinance.NewConsentManager(st)
	provider := &openfinance.SimulatedProvider{
		Clock: func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) },
	}
	syncer := openfinance.NewSyncer(provider, consents, st)

	ofHandler := NewOpenFinanceHandler(consents, syncer, log)
	txHandler := NewTransactionsHandler(st, log)

	r := chi.NewRouter()
	r.Route("/api/users/{userID}", func(r chi.Router) {
		r.Route("/openfinance", ofHandler.Routes)
		r.Route("/transactions", txHandler.Routes)
	})

	return &testEnv{router: r, store: st, consents: consents}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestCreateConsentEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/users/u1/openfinance/consents", map[string]string{})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["status"] != "active" {
		t.Errorf("status = %v, want active", body["status"])
	}
	if body["provider"] != "simulated" {
		t.Errorf("provider = %v, want simulated", body["provider"])
	}
	if body["token"] == "" || body["token"] == nil {
		t.Error("expected generated token in response")
	}
}

func TestListConsentsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/api/users/u1/openfinance/consents", map[string]string{})
	env.do(t, http.MethodPost, "/api/users/u1/openfinance/consents", map[string]string{})

	rec := env.do(t, http.MethodGet, "/api/users/u1/openfinance/consents", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := decodeBody(t, rec)
	items := body["items"].([]interface{})
	if len(items) != 2 {
		t.Errorf("items = %d, want 2", len(items))
	}
	meta := body["pagination"].(map[string]interface{})
	if meta["total"].(float64) != 2 {
		t.Errorf("pagination.total = %v, want 2", meta["total"])
	}
}

func TestSyncEndpoint_FullScenario(t *testing.T) {
	env := newTestEnv(t)

	// Without a consent the sync is gated.
	rec := env.do(t, http.MethodPost, "/api/users/u1/openfinance/sync", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("gated sync status = %d, want 400", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "no_active_consent" {
		t.Errorf("error = %v, want no_active_consent", body["error"])
	}

	env.do(t, http.MethodPost, "/api/users/u1/openfinance/consents", map[string]string{})

	// First sync imports the full fixture.
	rec = env.do(t, http.MethodPost, "/api/users/u1/openfinance/sync", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("sync status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["imported"].(float64) != 3 {
		t.Errorf("imported = %v, want 3", body["imported"])
	}
	if body["skipped_duplicates"].(float64) != 0 {
		t.Errorf("skipped_duplicates = %v, want 0", body["skipped_duplicates"])
	}
	if body["source"] != openfinance.SimulatedName {
		t.Errorf("source = %v, want %s", body["source"], openfinance.SimulatedName)
	}
	if txs := body["transactions"].([]interface{}); len(txs) != 3 {
		t.Errorf("transactions = %d, want 3", len(txs))
	}

	// Second sync is a no-op thanks to dedup.
	rec = env.do(t, http.MethodPost, "/api/users/u1/openfinance/sync", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("second sync status = %d, want 201", rec.Code)
	}
	body = decodeBody(t, rec)
	if body["imported"].(float64) != 0 {
		t.Errorf("second sync imported = %v, want 0", body["imported"])
	}
	if body["skipped_duplicates"].(float64) != 3 {
		t.Errorf("second sync skipped_duplicates = %v, want 3", body["skipped_duplicates"])
	}

	// The user still has exactly 3 live transactions.
	rec = env.do(t, http.MethodGet, "/api/users/u1/transactions", nil)
	listBody := decodeBody(t, rec)
	if items := listBody["items"].([]interface{}); len(items) != 3 {
		t.Errorf("live transactions = %d, want 3", len(items))
	}
}

func TestSyncEndpoint_ProviderFailure(t *testing.T) {
	st := inmemory.NewStore()
	log := zerolog.New(nil)
	consents := openfinance.NewConsentManager(st)
	syncer := openfinance.NewSyncer(failingProvider{}, consents, st)
	handler := NewOpenFinanceHandler(consents, syncer, log)

	r := chi.NewRouter()
	r.Route("/api/users/{userID}/openfinance", handler.Routes)
	env := &testEnv{router: r, store: st, consents: consents}

	env.do(t, http.MethodPost, "/api/users/u1/openfinance/consents", map[string]string{})

	rec := env.do(t, http.MethodPost, "/api/users/u1/openfinance/sync", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "sync_failed" {
		t.Errorf("error = %v, want sync_failed", body["error"])
	}
	if body["details"] == nil || body["details"] == "" {
		t.Error("expected failure details in response")
	}
}
