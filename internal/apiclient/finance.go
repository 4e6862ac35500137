package apiclient

import (
	"context"
	"fmt"
	"net/url"

	"finsync/internal/domain"
)

// Finance expone los endpoints de cuentas y transacciones.
type Finance struct {
	client *Client
}

func NewFinance(client *Client) *Finance {
	return &Finance{client: client}
}

// Accounts obtiene las particiones de débito/crédito con totales.
func (f *Finance) Accounts(ctx context.Context) (*domain.AccountsResponse, error) {
	var resp domain.AccountsResponse
	if err := f.client.Get(ctx, "/accounts", &resp); err != nil {
		return nil, fmt.Errorf("apiclient.Accounts: %w", err)
	}
	return &resp, nil
}

// LinkAccount registra una cuenta recién vinculada.
func (f *Finance) LinkAccount(ctx context.Context, req domain.AccountLinkRequest) (*domain.AccountLink, error) {
	var resp struct {
		Account domain.AccountLink `json:"account"`
	}
	if err := f.client.Post(ctx, "/accounts", req, &resp); err != nil {
		return nil, fmt.Errorf("apiclient.LinkAccount: %w", err)
	}
	return &resp.Account, nil
}

// Transactions obtiene la colección completa de transacciones.
func (f *Finance) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	var resp domain.TransactionsResponse
	if err := f.client.Get(ctx, "/transactions", &resp); err != nil {
		return nil, fmt.Errorf("apiclient.Transactions: %w", err)
	}
	if resp.Transactions == nil {
		resp.Transactions = []domain.Transaction{}
	}
	return resp.Transactions, nil
}

// UpdateTransaction envía un patch parcial para una transacción.
func (f *Finance) UpdateTransaction(ctx context.Context, id string, patch map[string]any) error {
	if err := f.client.Put(ctx, "/transactions/"+url.PathEscape(id), patch, nil); err != nil {
		return fmt.Errorf("apiclient.UpdateTransaction: %w", err)
	}
	return nil
}
