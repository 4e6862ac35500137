package service

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"

	"finsync/internal/domain"
)

type mockUserRepo struct {
	mu           sync.Mutex
	usersByID    map[string]domain.User
	usersByEmail map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	id, ok := m.usersByEmail[email]
	m.mu.Unlock()
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(ctx, id)
}

type mockAccountRepo struct {
	byUser map[string][]domain.Account
	err    error
}

func (m *mockAccountRepo) Create(_ context.Context, userID string, account domain.Account) error {
	if m.byUser == nil {
		m.byUser = make(map[string][]domain.Account)
	}
	m.byUser[userID] = append(m.byUser[userID], account)
	return nil
}

func (m *mockAccountRepo) ListByUser(_ context.Context, userID string) ([]domain.Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.Account{}, m.byUser[userID]...), nil
}

type mockLinkRepo struct {
	links []domain.AccountLink
}

func (m *mockLinkRepo) Create(_ context.Context, link domain.AccountLink) error {
	m.links = append(m.links, link)
	return nil
}

func (m *mockLinkRepo) ListByUser(_ context.Context, userID string) ([]domain.AccountLink, error) {
	var out []domain.AccountLink
	for _, l := range m.links {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

type mockTransactionRepo struct {
	byUser  map[string][]domain.Transaction
	updates int
}

func newMockTransactionRepo() *mockTransactionRepo {
	return &mockTransactionRepo{byUser: make(map[string][]domain.Transaction)}
}

func (m *mockTransactionRepo) Create(_ context.Context, userID string, tx domain.Transaction) error {
	m.byUser[userID] = append(m.byUser[userID], tx)
	return nil
}

func (m *mockTransactionRepo) ListByUser(_ context.Context, userID string) ([]domain.Transaction, error) {
	return append([]domain.Transaction{}, m.byUser[userID]...), nil
}

func (m *mockTransactionRepo) GetByID(_ context.Context, userID, id string) (domain.Transaction, error) {
	for _, tx := range m.byUser[userID] {
		if tx.ID == id {
			return tx, nil
		}
	}
	return domain.Transaction{}, pgx.ErrNoRows
}

func (m *mockTransactionRepo) Update(_ context.Context, userID string, tx domain.Transaction) error {
	for i, existing := range m.byUser[userID] {
		if existing.ID == tx.ID {
			m.byUser[userID][i] = tx
			m.updates++
			return nil
		}
	}
	return pgx.ErrNoRows
}
