package cache

import (
	"context"
	"sync"

	"finsync/internal/domain"
)

type fakeGate struct {
	mu      sync.Mutex
	auth    bool
	prompts int
	expires int
}

func (g *fakeGate) Authenticated() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.auth
}

func (g *fakeGate) RequireLogin() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts++
}

func (g *fakeGate) Expire() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expires++
	g.auth = false
}

type fakeAccountsAPI struct {
	mu    sync.Mutex
	calls int
	resp  *domain.AccountsResponse
	err   error
}

func (f *fakeAccountsAPI) Accounts(ctx context.Context) (*domain.AccountsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

// fakeTransactionsAPI devuelve respuestas en orden; si gates tiene un canal para
// la llamada i, la respuesta espera hasta que se cierre.
type fakeTransactionsAPI struct {
	mu        sync.Mutex
	calls     int
	responses [][]domain.Transaction
	gates     map[int]chan struct{}
	err       error
	updates   []map[string]any
	updateErr error
}

func (f *fakeTransactionsAPI) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	gate := f.gates[i]
	err := f.err
	var resp []domain.Transaction
	if len(f.responses) > 0 {
		resp = f.responses[min(i, len(f.responses)-1)]
	}
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	out := make([]domain.Transaction, len(resp))
	copy(out, resp)
	return out, nil
}

func (f *fakeTransactionsAPI) UpdateTransaction(ctx context.Context, id string, patch map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, patch)
	return nil
}

func (f *fakeTransactionsAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
