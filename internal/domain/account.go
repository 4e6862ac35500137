package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const AccountTypeCredit = "credit"

type Institution struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type AccountDetails struct {
	ID           string      `json:"id"`
	EnrollmentID string      `json:"enrollment_id,omitempty"`
	Institution  Institution `json:"institution"`
	Name         string      `json:"name"`
	LastFour     string      `json:"last_four"`
	Type         string      `json:"type"`
	Subtype      string      `json:"subtype"`
	Currency     string      `json:"currency,omitempty"`
	Status       string      `json:"status,omitempty"`
}

// Balance es el par de saldos (contable, disponible) de una cuenta.
type Balance struct {
	Ledger    decimal.Decimal `json:"ledger"`
	Available decimal.Decimal `json:"available"`
}

// Account es una cuenta bancaria vinculada. Inmutable hasta el próximo refresh completo.
type Account struct {
	Details  AccountDetails `json:"details"`
	Balances Balance        `json:"balances"`
}

// IsCredit indica si la cuenta pertenece a la partición de crédito.
func (a Account) IsCredit() bool {
	return a.Details.Type == AccountTypeCredit
}

// AccountPartition agrupa cuentas de débito o crédito con totales precalculados.
type AccountPartition struct {
	Accounts       []Account       `json:"accounts"`
	TotalLedger    decimal.Decimal `json:"total_ledger"`
	TotalAvailable decimal.Decimal `json:"total_available"`
}

// AccountsResponse es la respuesta de GET /accounts.
type AccountsResponse struct {
	Debit  AccountPartition `json:"debit"`
	Credit AccountPartition `json:"credit"`
}

// PartitionAccounts separa cuentas en débito y crédito y suma sus saldos.
func PartitionAccounts(accounts []Account) AccountsResponse {
	resp := AccountsResponse{
		Debit:  AccountPartition{Accounts: []Account{}},
		Credit: AccountPartition{Accounts: []Account{}},
	}
	for _, acc := range accounts {
		p := &resp.Debit
		if acc.IsCredit() {
			p = &resp.Credit
		}
		p.Accounts = append(p.Accounts, acc)
		p.TotalLedger = p.TotalLedger.Add(acc.Balances.Ledger)
		p.TotalAvailable = p.TotalAvailable.Add(acc.Balances.Available)
	}
	return resp
}

// AccountLinkRequest es el payload de POST /accounts tras vincular un banco.
type AccountLinkRequest struct {
	Provider   string            `json:"provider" binding:"required"`
	ProviderID string            `json:"provider_id" binding:"required"`
	EntityData map[string]string `json:"entity_data"`
	Metadata   map[string]any    `json:"metadata,omitempty"`
}

// AccountLink es el vínculo persistido con el proveedor de agregación.
type AccountLink struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Provider   string            `json:"provider"`
	ProviderID string            `json:"-"`
	EntityData map[string]string `json:"entity_data"`
	Metadata   map[string]any    `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
