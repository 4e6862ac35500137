package repository

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"

	"finsync/internal/domain"
)

// MemoryStore implementa todos los repositorios en memoria. Se usa en modo
// desarrollo sin base de datos y en tests. Reporta ausencias con pgx.ErrNoRows
// igual que las implementaciones pgx.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	links    []domain.AccountLink
	accounts map[string][]domain.Account
	txs      map[string][]domain.Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.User),
		accounts: make(map[string][]domain.Account),
		txs:      make(map[string][]domain.Transaction),
	}
}

// Users, Links, Accounts y Transactions exponen cada repositorio por separado
// porque los métodos Create/ListByUser se repiten entre interfaces.
func (s *MemoryStore) Users() UserRepository               { return memoryUsers{s} }
func (s *MemoryStore) Links() AccountLinkRepository        { return memoryLinks{s} }
func (s *MemoryStore) Accounts() AccountRepository         { return memoryAccounts{s} }
func (s *MemoryStore) Transactions() TransactionRepository { return memoryTransactions{s} }

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) Create(_ context.Context, user domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.users[user.ID] = user
	return nil
}

func (r memoryUsers) GetByID(_ context.Context, id string) (domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (r memoryUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

type memoryLinks struct{ s *MemoryStore }

func (r memoryLinks) Create(_ context.Context, link domain.AccountLink) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, existing := range r.s.links {
		if existing.UserID == link.UserID && existing.Provider == link.Provider && existing.ProviderID == link.ProviderID {
			r.s.links[i].EntityData = maps.Clone(link.EntityData)
			r.s.links[i].Metadata = maps.Clone(link.Metadata)
			return nil
		}
	}
	r.s.links = append(r.s.links, link)
	return nil
}

func (r memoryLinks) ListByUser(_ context.Context, userID string) ([]domain.AccountLink, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.AccountLink{}
	for _, l := range r.s.links {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

type memoryAccounts struct{ s *MemoryStore }

func (r memoryAccounts) Create(_ context.Context, userID string, account domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.accounts[userID] = append(r.s.accounts[userID], account)
	return nil
}

func (r memoryAccounts) ListByUser(_ context.Context, userID string) ([]domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return slices.Clone(r.s.accounts[userID]), nil
}

type memoryTransactions struct{ s *MemoryStore }

func (r memoryTransactions) Create(_ context.Context, userID string, tx domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.txs[userID] = append(r.s.txs[userID], tx)
	return nil
}

func (r memoryTransactions) ListByUser(_ context.Context, userID string) ([]domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := slices.Clone(r.s.txs[userID])
	slices.SortStableFunc(out, func(a, b domain.Transaction) int {
		return strings.Compare(b.Date, a.Date)
	})
	if out == nil {
		out = []domain.Transaction{}
	}
	return out, nil
}

func (r memoryTransactions) GetByID(_ context.Context, userID, id string) (domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, tx := range r.s.txs[userID] {
		if tx.ID == id {
			return tx, nil
		}
	}
	return domain.Transaction{}, pgx.ErrNoRows
}

func (r memoryTransactions) Update(_ context.Context, userID string, tx domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, existing := range r.s.txs[userID] {
		if existing.ID == tx.ID {
			r.s.txs[userID][i] = tx
			return nil
		}
	}
	return pgx.ErrNoRows
}
