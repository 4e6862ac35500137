package cache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"finsync/internal/domain"
)

const (
	DefaultPageSize = 9
	WidePageSize    = 12
)

type TransactionsAPI interface {
	Transactions(ctx context.Context) ([]domain.Transaction, error)
	UpdateTransaction(ctx context.Context, id string, patch map[string]any) error
}

// TransactionsCache guarda la colección de transacciones y sus vistas derivadas.
// Las vistas (páginas, categorías, totales) se recalculan en cada lectura.
type TransactionsCache struct {
	api      TransactionsAPI
	gate     SessionGate
	logger   *zap.Logger
	pageSize int
	store    Container[[]domain.Transaction]

	mu        sync.Mutex
	page      int
	listeners []func()
}

func NewTransactionsCache(api TransactionsAPI, gate SessionGate, pageSize int, logger *zap.Logger) *TransactionsCache {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionsCache{
		api:      api,
		gate:     gate,
		logger:   logger,
		pageSize: pageSize,
		page:     1,
	}
}

// OnChange registra un callback que se invoca solo cuando la colección guardada cambia.
func (c *TransactionsCache) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Refresh pide la colección completa. Si es estructuralmente igual a la guardada,
// se conserva la referencia actual y no se notifica a los listeners.
func (c *TransactionsCache) Refresh(ctx context.Context) error {
	if !c.gate.Authenticated() {
		c.Clear()
		c.gate.RequireLogin()
		return domain.ErrSessionExpired
	}

	seq := c.store.begin()
	txs, err := c.api.Transactions(ctx)
	if err != nil {
		c.store.abort(seq)
		c.logger.Error("error fetching transactions", zap.Error(err))
		if errors.Is(err, domain.ErrSessionExpired) {
			c.gate.Expire()
		}
		return err
	}

	applied, changed := c.store.commit(seq, &txs, func(old, next *[]domain.Transaction) bool {
		return Equal(*old, *next)
	})
	if !applied {
		c.logger.Debug("discarding superseded transactions response")
		return nil
	}
	if changed {
		c.notify()
	}
	return nil
}

// Clear descarta la colección guardada.
func (c *TransactionsCache) Clear() {
	before := c.store.Version()
	c.store.Clear()
	if c.store.Version() != before {
		c.notify()
	}
}

func (c *TransactionsCache) notify() {
	c.mu.Lock()
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Transactions devuelve la colección guardada (nil antes del primer fetch) y el flag de carga.
func (c *TransactionsCache) Transactions() ([]domain.Transaction, bool) {
	txs, loading := c.store.Get()
	if txs == nil {
		return nil, loading
	}
	return *txs, loading
}

func (c *TransactionsCache) Loading() bool {
	return c.store.Loading()
}

func (c *TransactionsCache) Version() uint64 {
	return c.store.Version()
}

func (c *TransactionsCache) all() []domain.Transaction {
	txs, _ := c.store.Get()
	if txs == nil {
		return nil
	}
	return *txs
}

func (c *TransactionsCache) TransactionByID(id string) (domain.Transaction, bool) {
	for _, tx := range c.all() {
		if tx.ID == id {
			return tx, true
		}
	}
	return domain.Transaction{}, false
}

// Categorized agrupa por details.category; sin categoría va a "Uncategorized".
// Dentro de cada grupo se conserva el orden de la colección.
func (c *TransactionsCache) Categorized() map[string][]domain.Transaction {
	groups := make(map[string][]domain.Transaction)
	for _, tx := range c.all() {
		key := tx.CategoryOrDefault()
		groups[key] = append(groups[key], tx)
	}
	return groups
}

// CategoryTotals suma los montos por categoría, excluyendo transferencias.
func (c *TransactionsCache) CategoryTotals() map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for category, txs := range c.Categorized() {
		if category == domain.TransferCategory {
			continue
		}
		sum := decimal.Zero
		for _, tx := range txs {
			sum = sum.Add(tx.Amount)
		}
		totals[category] = sum
	}
	return totals
}

// TotalSpending es la suma de CategoryTotals.
func (c *TransactionsCache) TotalSpending() decimal.Decimal {
	total := decimal.Zero
	for _, sum := range c.CategoryTotals() {
		total = total.Add(sum)
	}
	return total
}

func (c *TransactionsCache) PageSize() int {
	return c.pageSize
}

// SetCurrentPage fija la página actual (base 1). Fuera de rango da una página vacía.
func (c *TransactionsCache) SetCurrentPage(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page = n
}

func (c *TransactionsCache) CurrentPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// TotalPages es ceil(total/pageSize), mínimo 1.
func (c *TransactionsCache) TotalPages() int {
	return totalPages(len(c.all()), c.pageSize)
}

// Paginated devuelve la página actual.
func (c *TransactionsCache) Paginated() []domain.Transaction {
	return c.Page(c.CurrentPage())
}

// Page devuelve el n-ésimo tramo contiguo de la colección.
func (c *TransactionsCache) Page(n int) []domain.Transaction {
	return pageOf(c.all(), n, c.pageSize)
}

func totalPages(count, size int) int {
	if count == 0 {
		return 1
	}
	return (count + size - 1) / size
}

func pageOf(txs []domain.Transaction, n, size int) []domain.Transaction {
	if n < 1 {
		return []domain.Transaction{}
	}
	start := (n - 1) * size
	if start >= len(txs) {
		return []domain.Transaction{}
	}
	end := min(start+size, len(txs))
	return slices.Clone(txs[start:end])
}

// UpdateTransaction envía el patch y luego refresca desde el servidor en vez de
// mutar el registro local. Un patch vacío se rechaza.
func (c *TransactionsCache) UpdateTransaction(ctx context.Context, id string, patch map[string]any) error {
	if len(patch) == 0 {
		return domain.ErrEmptyPatch
	}
	if !c.gate.Authenticated() {
		c.gate.RequireLogin()
		return domain.ErrSessionExpired
	}
	if err := c.api.UpdateTransaction(ctx, id, patch); err != nil {
		c.logger.Error("error updating transaction", zap.String("transaction_id", id), zap.Error(err))
		if errors.Is(err, domain.ErrSessionExpired) {
			c.gate.Expire()
		}
		return err
	}
	return c.Refresh(ctx)
}

// EditTransaction calcula el patch entre edited y el registro guardado y lo envía.
func (c *TransactionsCache) EditTransaction(ctx context.Context, edited domain.Transaction) (map[string]any, error) {
	original, ok := c.TransactionByID(edited.ID)
	if !ok {
		return nil, fmt.Errorf("transaction %s: not found", edited.ID)
	}
	patch, err := DiffRecords(edited, original)
	if err != nil {
		return nil, err
	}
	if err := c.UpdateTransaction(ctx, edited.ID, patch); err != nil {
		return patch, err
	}
	return patch, nil
}
