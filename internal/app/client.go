package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"finsync/internal/apiclient"
	"finsync/internal/cache"
	"finsync/internal/config"
	"finsync/internal/domain"
	"finsync/internal/identity"
	"finsync/internal/linking"
	"finsync/internal/session"
)

// sessionStoreTTL limita cuánto sobrevive en redis una sesión persistida.
const sessionStoreTTL = 30 * 24 * time.Hour

// Client construye una sola vez los servicios del núcleo y sincroniza los
// caches con las transiciones de la sesión.
type Client struct {
	Session      *session.Manager
	Finance      *apiclient.Finance
	Accounts     *cache.AccountsCache
	Transactions *cache.TransactionsCache
	Linker       *linking.Linker

	logger      *zap.Logger
	timeout     time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	unsubscribe func()
}

// Options agrupa lo que no sale de la configuración.
type Options struct {
	Provider identity.Provider
	Logger   *zap.Logger
}

// New arma el cliente a partir de la configuración. Si no se pasa un proveedor,
// usa el proveedor HTTP con un store en redis (o en memoria si no hay redis).
func New(cfg *config.ClientConfig, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	provider := opts.Provider
	if provider == nil {
		provider = identity.NewHTTPProvider(
			cfg.IdentityURL(),
			cfg.IdentityPoolID,
			cfg.IdentityClientID,
			newSessionStore(cfg, logger),
			cfg.HTTPTimeout(),
			logger,
		)
	}

	mgr := session.NewManager(provider, cfg.RefreshSkew(), logger)
	finance := apiclient.NewFinance(apiclient.New(cfg.APIBaseURL, mgr, cfg.HTTPTimeout(), logger))
	accounts := cache.NewAccountsCache(finance, mgr, logger)
	transactions := cache.NewTransactionsCache(finance, mgr, cfg.TransactionsPageSize, logger)

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		Session:      mgr,
		Finance:      finance,
		Accounts:     accounts,
		Transactions: transactions,
		Linker:       linking.NewLinker(finance, accounts, cfg.LinkApplicationID, logger),
		logger:       logger,
		timeout:      cfg.HTTPTimeout(),
		ctx:          ctx,
		cancel:       cancel,
	}
	c.unsubscribe = mgr.Subscribe(c.onTransition)
	return c
}

func newSessionStore(cfg *config.ClientConfig, logger *zap.Logger) identity.SessionStore {
	if cfg.RedisAddr == "" {
		return identity.NewMemorySessionStore()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping failed, using in-memory session store", zap.Error(err))
		_ = rdb.Close()
		return identity.NewMemorySessionStore()
	}
	profile := cfg.IdentityClientID
	if profile == "" {
		profile = "default"
	}
	return identity.NewRedisSessionStore(rdb, profile, sessionStoreTTL)
}

// Start intenta recuperar una sesión previa sin pedir credenciales.
func (c *Client) Start(ctx context.Context) error {
	_, err := c.Session.SilentReauthenticate(ctx)
	if err != nil && !errors.Is(err, domain.ErrSessionExpired) {
		return err
	}
	return nil
}

// Wait bloquea hasta que terminen los refresh disparados por transiciones.
func (c *Client) Wait() {
	c.wg.Wait()
}

// Close cancela los refresh en curso, deja de escuchar la sesión y espera
// el cierre de sesión remoto pendiente.
func (c *Client) Close() {
	c.unsubscribe()
	c.cancel()
	c.wg.Wait()
	c.Session.Wait()
}

// RefreshAll refresca cuentas y transacciones en paralelo. Un fallo en uno no
// cancela el otro.
func (c *Client) RefreshAll(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return c.Accounts.Refresh(ctx) })
	g.Go(func() error { return c.Transactions.Refresh(ctx) })
	return g.Wait()
}

func (c *Client) onTransition(t session.Transition) {
	switch t.To {
	case domain.Authenticated:
		if t.From == domain.Authenticated {
			return
		}
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			ctx, cancel := context.WithTimeout(c.ctx, 3*c.timeout)
			defer cancel()
			if err := c.RefreshAll(ctx); err != nil {
				c.logger.Warn("initial cache refresh failed", zap.Error(err))
			}
		}()
	case domain.Unauthenticated, domain.Expired:
		c.Accounts.Clear()
		c.Transactions.Clear()
	}
}
