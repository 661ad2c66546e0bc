package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/burakozf/splitledger/internal/auth"
	"github.com/burakozf/splitledger/internal/config"
	"github.com/burakozf/splitledger/internal/ledger"
	"github.com/burakozf/splitledger/internal/repository/sqlite"
	"github.com/burakozf/splitledger/internal/services"
)

type noopDirectory struct{}

func (noopDirectory) DisplayName(context.Context, int64) (string, error) { return "", nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("sqlite.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.Config{
		Env:                 "dev",
		RateRPS:             1000,
		MinSettlementAmount: decimal.RequireFromString("0.01"),
		AutoSettleThreshold: decimal.RequireFromString("0.01"),
		MinExpenseAmount:    decimal.RequireFromString("0.01"),
		MaxExpenseAmount:    decimal.RequireFromString("100000.00"),
		MaxParticipants:     20,
	}
	ldg := ledger.New(store, cfg.AutoSettleThreshold)
	dir := noopDirectory{}
	tm := auth.NewTokenManager("test-secret", "splitledger", time.Minute)

	srv := httptest.NewServer(NewRouter(RouterDeps{
		Cfg:           cfg,
		TokenManager:  tm,
		ExpenseSvc:    services.NewExpenseService(store, ldg, dir, nil, cfg),
		SettlementSvc: services.NewSettlementService(store, ldg, dir, nil, cfg.MinSettlementAmount),
		BalanceSvc:    services.NewBalanceService(store, ldg, dir),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	return resp, data
}

func TestRouter_Health(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestRouter_RequiresAuth(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/v1/balances/1/2", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d without token, want 401", resp.StatusCode)
	}
}

func TestRouter_ExpenseAndBalanceFlow(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/expenses", "dev-1", `{
		"paid_by": 1,
		"total_amount": "90.00",
		"split_type": "EQUAL",
		"description": "dinner",
		"participants": [{"user_id":1},{"user_id":2},{"user_id":3}]
	}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /expenses status = %d, body %s", resp.StatusCode, body)
	}
	var views []struct {
		ID     string          `json:"id"`
		OwedBy int64           `json:"owed_by"`
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.Unmarshal(body, &views); err != nil {
		t.Fatalf("decode expense response: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("got %d obligations, want 3", len(views))
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/balances/2/1", "dev-2", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /balances status = %d, body %s", resp.StatusCode, body)
	}
	var pb struct {
		Amount  decimal.Decimal `json:"amount"`
		Settled bool            `json:"settled"`
	}
	if err := json.Unmarshal(body, &pb); err != nil {
		t.Fatalf("decode balance response: %v", err)
	}
	if !pb.Amount.Equal(decimal.RequireFromString("30")) || pb.Settled {
		t.Fatalf("balance = %+v, want 30 outstanding", pb)
	}
}

func TestRouter_SettlementStatuses(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/expenses", "dev-1", `{
		"paid_by": 1,
		"total_amount": "60.00",
		"split_type": "EQUAL",
		"participants": [{"user_id":1},{"user_id":2},{"user_id":3}]
	}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("seed expense status = %d, body %s", resp.StatusCode, body)
	}

	// Overpaying the 20 debt is a state conflict.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/settlements", "dev-2",
		`{"payer_id":2,"payee_id":1,"amount":"25.00"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("overpay status = %d, body %s, want 409", resp.StatusCode, body)
	}

	// A bystander cannot settle someone else's debt.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/settlements", "dev-3",
		`{"payer_id":2,"payee_id":1,"amount":"20.00"}`)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("bystander status = %d, body %s, want 403", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/settlements", "dev-2",
		`{"payer_id":2,"payee_id":1,"amount":"20.00"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("settle status = %d, body %s, want 201", resp.StatusCode, body)
	}
}

func TestRouter_OptimizeValidation(t *testing.T) {
	srv := newTestServer(t)
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/optimize", "dev-1",
		`{"user_ids":[1,2]}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s, want 400", resp.StatusCode, body)
	}
}

func TestRouter_JWTAuth(t *testing.T) {
	srv := newTestServer(t)
	tm := auth.NewTokenManager("test-secret", "splitledger", time.Minute)
	token, err := tm.Generate(42)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/v1/balances/user/42", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d with valid JWT, body %s", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/v1/balances/user/42", "not-a-token", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d with garbage token, want 401", resp.StatusCode)
	}
}
