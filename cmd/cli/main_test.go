package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"finsync/internal/app"
	"finsync/internal/config"
	apihttp "finsync/internal/http"
	"finsync/internal/repository"
	"finsync/internal/service"
)

func newTestUI(t *testing.T, input string) (*ui, *bytes.Buffer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	store := repository.NewMemoryStore()
	ctx := context.Background()

	users := service.NewUserService(logger, store.Users(), nil)
	user, err := users.CreateUser(ctx, service.CreateUserInput{Email: "ana@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := service.SeedDemoData(ctx, store.Accounts(), store.Transactions(), user.ID, time.Now()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	jwtSvc := service.NewJWTService("secret", 15*time.Minute, time.Hour, nil)
	srv := httptest.NewServer(apihttp.NewRouter(logger, jwtSvc,
		apihttp.NewAuthHandler(logger, users, jwtSvc, ""),
		apihttp.NewFinanceHandler(logger,
			service.NewAccountService(logger, store.Accounts(), store.Links()),
			service.NewTransactionService(logger, store.Transactions()),
		),
	))
	t.Cleanup(srv.Close)

	client := app.New(&config.ClientConfig{APIBaseURL: srv.URL, HTTPTimeoutSeconds: 5, TransactionsPageSize: 9}, app.Options{Logger: logger})
	t.Cleanup(client.Close)

	var out bytes.Buffer
	return newUI(client, strings.NewReader(input), &out), &out
}

func TestRunLoginSummaryAndBudgets(t *testing.T) {
	u, out := newTestUI(t, "ana@example.com\ncorrect-horse\n1\n3\n8\n")

	if err := u.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	for _, want := range []string{"Sesión iniciada", "Patrimonio neto:      11810.55", "Rewards Card", "dining", "Total"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "  Transfer ") {
		t.Fatalf("budgets should exclude transfers:\n%s", got)
	}
}

func TestRunPaginatesTransactions(t *testing.T) {
	u, out := newTestUI(t, "ana@example.com\ncorrect-horse\n2\nn\nq\n8\n")

	if err := u.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "página 1 de 2") || !strings.Contains(got, "página 2 de 2") {
		t.Fatalf("expected both pages:\n%s", got)
	}
}

func TestRunLogoutPromptsLoginAgain(t *testing.T) {
	u, out := newTestUI(t, "ana@example.com\ncorrect-horse\n7\nana@example.com\nwrong\n")

	if err := u.run(context.Background()); err == nil {
		t.Fatalf("expected EOF after input runs out")
	}
	got := out.String()
	if strings.Count(got, "--- Iniciar sesión ---") < 2 {
		t.Fatalf("expected login prompt after logout:\n%s", got)
	}
	if !strings.Contains(got, "Error de login") {
		t.Fatalf("expected failed login message:\n%s", got)
	}
}
