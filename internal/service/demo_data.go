package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finsync/internal/domain"
	"finsync/internal/repository"
)

// SeedDemoData carga cuentas y transacciones de ejemplo para un usuario.
// Sirve para ejercitar el cliente contra la API de desarrollo sin un agregador real.
func SeedDemoData(ctx context.Context, accounts repository.AccountRepository, txs repository.TransactionRepository, userID string, today time.Time) error {
	institution := domain.Institution{ID: "demo_bank", Name: "Demo Bank"}
	enrollment := "enr_" + uuid.NewString()[:8]
	checking := demoAccount(institution, enrollment, "Checking", "depository", "checking", "1234", "2450.75", "2300.75")
	savings := demoAccount(institution, enrollment, "Savings", "depository", "savings", "5678", "10000", "10000")
	card := demoAccount(institution, enrollment, "Rewards Card", domain.AccountTypeCredit, "credit_card", "9012", "-640.20", "4359.80")

	for _, acc := range []domain.Account{checking, savings, card} {
		if err := accounts.Create(ctx, userID, acc); err != nil {
			return fmt.Errorf("seed account %s: %w", acc.Details.Name, err)
		}
	}

	entries := []struct {
		account     domain.Account
		daysAgo     int
		description string
		amount      string
		category    string
		status      string
	}{
		{checking, 0, "Coffee Shop", "-4.50", "dining", domain.TransactionPending},
		{card, 1, "Grocery Market", "-82.13", "groceries", domain.TransactionPosted},
		{checking, 2, "Payroll", "2500.00", "income", domain.TransactionPosted},
		{checking, 3, "Transfer to Savings", "-500.00", domain.TransferCategory, domain.TransactionPosted},
		{savings, 3, "Transfer from Checking", "500.00", domain.TransferCategory, domain.TransactionPosted},
		{card, 5, "Streaming Service", "-15.99", "entertainment", domain.TransactionPosted},
		{checking, 7, "Electric Utility", "-96.40", "utilities", domain.TransactionPosted},
		{card, 8, "Gas Station", "-41.02", "transportation", domain.TransactionPosted},
		{card, 10, "Bookstore", "-23.75", "", domain.TransactionPosted},
		{checking, 14, "Rent", "-1450.00", "housing", domain.TransactionPosted},
		{card, 15, "Restaurant", "-64.30", "dining", domain.TransactionPosted},
	}
	for _, e := range entries {
		status := "complete"
		if e.status == domain.TransactionPending {
			status = "pending"
		}
		tx := domain.Transaction{
			ID:          "txn_" + uuid.NewString(),
			AccountID:   e.account.Details.ID,
			Date:        today.AddDate(0, 0, -e.daysAgo).Format(time.DateOnly),
			Description: e.description,
			Amount:      decimal.RequireFromString(e.amount),
			Status:      e.status,
			Type:        "card_payment",
			Details:     domain.TransactionDetails{Category: e.category, ProcessingStatus: status},
		}
		if err := txs.Create(ctx, userID, tx); err != nil {
			return fmt.Errorf("seed transaction %s: %w", e.description, err)
		}
	}
	return nil
}

func demoAccount(inst domain.Institution, enrollment, name, typ, subtype, lastFour, ledger, available string) domain.Account {
	return domain.Account{
		Details: domain.AccountDetails{
			ID:           "acc_" + uuid.NewString(),
			EnrollmentID: enrollment,
			Institution:  inst,
			Name:         name,
			LastFour:     lastFour,
			Type:         typ,
			Subtype:      subtype,
			Currency:     "USD",
			Status:       "open",
		},
		Balances: domain.Balance{
			Ledger:    decimal.RequireFromString(ledger),
			Available: decimal.RequireFromString(available),
		},
	}
}
