package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"finsync/internal/domain"
	"finsync/internal/repository"
	"finsync/internal/service"
)

type testServer struct {
	router *gin.Engine
	store  *repository.MemoryStore
	userID string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	store := repository.NewMemoryStore()

	users := service.NewUserService(logger, store.Users(), service.NewMemoryLoginRateLimiter(time.Minute, 3))
	user, err := users.CreateUser(context.Background(), service.CreateUserInput{Email: "ana@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := service.SeedDemoData(context.Background(), store.Accounts(), store.Transactions(), user.ID, time.Now()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	jwtSvc := service.NewJWTService("secret", 15*time.Minute, time.Hour, nil)
	router := NewRouter(logger, jwtSvc,
		NewAuthHandler(logger, users, jwtSvc, "web"),
		NewFinanceHandler(logger,
			service.NewAccountService(logger, store.Accounts(), store.Links()),
			service.NewTransactionService(logger, store.Transactions()),
		),
	)
	return &testServer{router: router, store: store, userID: user.ID}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T) service.TokenPair {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "correct-horse", "client_id": "web",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Tokens service.TokenPair `json:"tokens"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return resp.Tokens
}

func TestLogin_Errors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "wrong", "client_id": "web",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: expected 401, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "correct-horse", "client_id": "other",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown client: expected 401, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ana@example.com"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing password: expected 400, got %d", rec.Code)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	s := newTestServer(t)
	body := map[string]string{"email": "ana@example.com", "password": "wrong", "client_id": "web"}
	for i := 0; i < 3; i++ {
		s.do(t, http.MethodPost, "/auth/login", "", body)
	}
	if rec := s.do(t, http.MethodPost, "/auth/login", "", body); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestRefreshAndLogout(t *testing.T) {
	s := newTestServer(t)
	pair := s.login(t)

	rec := s.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": pair.RefreshToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d", rec.Code)
	}
	var resp struct {
		Tokens service.TokenPair `json:"tokens"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = s.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": pair.RefreshToken})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh: expected 401, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/auth/logout", "", map[string]string{"refresh_token": resp.Tokens.RefreshToken})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": resp.Tokens.RefreshToken})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: expected 401, got %d", rec.Code)
	}
}

func TestGetAccounts(t *testing.T) {
	s := newTestServer(t)
	pair := s.login(t)

	if rec := s.do(t, http.MethodGet, "/accounts", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec := s.do(t, http.MethodGet, "/accounts", pair.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp domain.AccountsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Debit.Accounts) != 2 || len(resp.Credit.Accounts) != 1 {
		t.Fatalf("unexpected partitions: debit=%d credit=%d", len(resp.Debit.Accounts), len(resp.Credit.Accounts))
	}
}

func TestCreateAccount(t *testing.T) {
	s := newTestServer(t)
	pair := s.login(t)

	rec := s.do(t, http.MethodPost, "/accounts", pair.AccessToken, domain.AccountLinkRequest{
		Provider:   "Teller",
		ProviderID: "token_abc",
		EntityData: map[string]string{"enrollment_id": "enr_1", "institution_id": "chase", "institution_name": "Chase"},
		Metadata:   map[string]any{"user_id": "teller_user", "signatures": []string{}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("token_abc")) {
		t.Fatalf("provider id must not be echoed back")
	}

	rec = s.do(t, http.MethodPost, "/accounts", pair.AccessToken, map[string]any{"provider": "Teller"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for incomplete link, got %d", rec.Code)
	}
}

func TestTransactions_ListAndEdit(t *testing.T) {
	s := newTestServer(t)
	pair := s.login(t)

	rec := s.do(t, http.MethodGet, "/transactions", pair.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp domain.TransactionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Transactions) == 0 {
		t.Fatalf("expected seeded transactions")
	}
	for i := 1; i < len(resp.Transactions); i++ {
		if resp.Transactions[i-1].Date < resp.Transactions[i].Date {
			t.Fatalf("transactions not sorted by date desc at %d", i)
		}
	}

	id := resp.Transactions[0].ID
	rec = s.do(t, http.MethodPut, "/transactions/"+id, pair.AccessToken, map[string]any{
		"details": map[string]any{"category": "coffee"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("edit: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	updated, err := s.store.Transactions().GetByID(context.Background(), s.userID, id)
	if err != nil || updated.Details.Category != "coffee" {
		t.Fatalf("edit not persisted: %+v %v", updated, err)
	}

	rec = s.do(t, http.MethodPut, "/transactions/missing", pair.AccessToken, map[string]any{"description": "x"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodPut, "/transactions/"+id, pair.AccessToken, map[string]any{"account_id": "other"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-editable field, got %d", rec.Code)
	}
}

func TestCreateUser(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/users", "", map[string]string{"email": "new@example.com", "password": "long-enough"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("password")) {
		t.Fatalf("password hash must not be serialized")
	}
	rec = s.do(t, http.MethodPost, "/users", "", map[string]string{"email": "new@example.com", "password": "long-enough"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}
