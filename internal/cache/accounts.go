package cache

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"finsync/internal/domain"
)

var hundred = decimal.NewFromInt(100)

type AccountsAPI interface {
	Accounts(ctx context.Context) (*domain.AccountsResponse, error)
}

// AccountsCache guarda las particiones de cuentas y expone búsquedas y agregados.
type AccountsCache struct {
	api    AccountsAPI
	gate   SessionGate
	logger *zap.Logger
	store  Container[domain.AccountsResponse]
}

func NewAccountsCache(api AccountsAPI, gate SessionGate, logger *zap.Logger) *AccountsCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountsCache{api: api, gate: gate, logger: logger}
}

// Refresh vuelve a pedir las cuentas. Sin sesión autenticada limpia el cache y
// pide login sin llamar a la API. Ante un fallo conserva los datos previos.
func (c *AccountsCache) Refresh(ctx context.Context) error {
	if !c.gate.Authenticated() {
		c.store.Clear()
		c.gate.RequireLogin()
		return domain.ErrSessionExpired
	}

	seq := c.store.begin()
	resp, err := c.api.Accounts(ctx)
	if err != nil {
		c.store.abort(seq)
		c.logger.Error("error fetching accounts", zap.Error(err))
		if errors.Is(err, domain.ErrSessionExpired) {
			c.gate.Expire()
		}
		return err
	}
	if applied, _ := c.store.commit(seq, resp, nil); !applied {
		c.logger.Debug("discarding superseded accounts response")
	}
	return nil
}

// Clear descarta las cuentas guardadas.
func (c *AccountsCache) Clear() {
	c.store.Clear()
}

// Accounts devuelve la respuesta guardada (nil antes del primer fetch) y el flag de carga.
func (c *AccountsCache) Accounts() (*domain.AccountsResponse, bool) {
	return c.store.Get()
}

func (c *AccountsCache) Loading() bool {
	return c.store.Loading()
}

func (c *AccountsCache) Version() uint64 {
	return c.store.Version()
}

// AccountByID busca en ambas particiones. Nunca falla: ausencia se reporta con false.
func (c *AccountsCache) AccountByID(id string) (domain.Account, bool) {
	resp, _ := c.store.Get()
	if resp == nil {
		return domain.Account{}, false
	}
	for _, part := range []domain.AccountPartition{resp.Debit, resp.Credit} {
		for _, acc := range part.Accounts {
			if acc.Details.ID == id {
				return acc, true
			}
		}
	}
	return domain.Account{}, false
}

// AccountSummary son los agregados derivados; los ratios son porcentajes (0-100).
type AccountSummary struct {
	DebitTotal        decimal.Decimal
	CreditTotal       decimal.Decimal
	NetWorth          decimal.Decimal
	TotalCreditLimit  decimal.Decimal
	UsedCredit        decimal.Decimal
	CreditUtilization decimal.Decimal
	Liquidity         decimal.Decimal
}

// Summary recalcula los agregados en cada lectura a partir de los totales guardados.
func (c *AccountsCache) Summary() (AccountSummary, bool) {
	resp, _ := c.store.Get()
	if resp == nil {
		return AccountSummary{}, false
	}
	return Summarize(*resp), true
}

// Summarize calcula patrimonio neto, utilización de crédito y liquidez.
func Summarize(resp domain.AccountsResponse) AccountSummary {
	creditOwed := resp.Credit.TotalLedger.Abs()
	limit := creditOwed.Add(resp.Credit.TotalAvailable)
	used := limit.Sub(resp.Credit.TotalAvailable)
	return AccountSummary{
		DebitTotal:        resp.Debit.TotalLedger,
		CreditTotal:       resp.Credit.TotalLedger,
		NetWorth:          resp.Debit.TotalLedger.Sub(creditOwed),
		TotalCreditLimit:  limit,
		UsedCredit:        used,
		CreditUtilization: percent(used, limit),
		Liquidity:         percent(resp.Debit.TotalAvailable, resp.Debit.TotalLedger),
	}
}

// percent trata un denominador cero como 0%.
func percent(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den).Mul(hundred)
}
