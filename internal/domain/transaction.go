package domain

import "github.com/shopspring/decimal"

const (
	TransactionPending = "pending"
	TransactionPosted  = "posted"

	UncategorizedCategory = "Uncategorized"
	TransferCategory      = "Transfer"
)

type TransactionDetails struct {
	Category         string `json:"category"`
	ProcessingStatus string `json:"processing_status"`
}

// Transaction referencia su cuenta por valor (AccountID), no por puntero.
type Transaction struct {
	ID             string             `json:"id"`
	AccountID      string             `json:"account_id"`
	Date           string             `json:"date"`
	Description    string             `json:"description"`
	Amount         decimal.Decimal    `json:"amount"`
	Status         string             `json:"status"`
	Type           string             `json:"type"`
	RunningBalance *decimal.Decimal   `json:"running_balance"`
	Details        TransactionDetails `json:"details"`
}

// CategoryOrDefault devuelve la categoría o "Uncategorized" si falta.
func (t Transaction) CategoryOrDefault() string {
	if t.Details.Category == "" {
		return UncategorizedCategory
	}
	return t.Details.Category
}

// TransactionsResponse es la respuesta de GET /transactions.
type TransactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}
