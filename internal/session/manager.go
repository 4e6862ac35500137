package session

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"finsync/internal/domain"
	"finsync/internal/identity"
)

// Transition describe un cambio de estado de la sesión.
// PromptLogin indica al colaborador de UI que debe pedir credenciales.
type Transition struct {
	From        domain.SessionState
	To          domain.SessionState
	PromptLogin bool
}

// Listener recibe transiciones en orden. No debe llamar sincrónicamente a
// métodos que cambian el estado del Manager.
type Listener func(Transition)

// Manager es la máquina de estados de la sesión de identidad.
type Manager struct {
	provider identity.Provider
	logger   *zap.Logger
	skew     time.Duration
	now      func() time.Time

	emitMu sync.Mutex

	mu        sync.Mutex
	session   domain.Session
	epoch     uint64
	listeners map[int]Listener
	nextID    int

	refreshGroup singleflight.Group

	// signOutDone se cierra cuando termina el último SignOut lanzado por Logout.
	signOutDone chan struct{}
}

const signOutTimeout = 5 * time.Second

// NewManager crea el Manager en estado Unauthenticated.
func NewManager(provider identity.Provider, skew time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		provider:  provider,
		logger:    logger,
		skew:      skew,
		now:       time.Now,
		session:   domain.Session{State: domain.Unauthenticated},
		listeners: make(map[int]Listener),
	}
}

// Subscribe registra un listener y devuelve la función para darlo de baja.
func (m *Manager) Subscribe(l Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *Manager) State() domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.State
}

func (m *Manager) Authenticated() bool {
	return m.State() == domain.Authenticated
}

// Snapshot devuelve una copia de la sesión actual.
func (m *Manager) Snapshot() domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Credential devuelve la credencial bearer; vacía si el estado no es Authenticated.
func (m *Manager) Credential() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.State != domain.Authenticated || m.session.AccessToken == "" {
		return "", false
	}
	return m.session.AccessToken, true
}

// Token devuelve la credencial, renovándola antes si vence dentro del margen configurado.
func (m *Manager) Token(ctx context.Context) (string, bool) {
	m.mu.Lock()
	sess := m.session
	m.mu.Unlock()
	if sess.State != domain.Authenticated {
		return "", false
	}
	if !sess.ExpiresWithin(m.now(), m.skew) {
		return sess.AccessToken, true
	}
	refreshed, err := m.Refresh(ctx)
	if err != nil {
		return "", false
	}
	return refreshed.AccessToken, true
}

// Login autentica contra el proveedor. Solo un intento puede estar en curso.
func (m *Manager) Login(ctx context.Context, username, password string) (domain.Session, error) {
	epoch, err := m.beginAuth(ctx)
	if err != nil {
		return m.Snapshot(), err
	}

	res := m.provider.Authenticate(ctx, username, password).Checked()
	if !res.OK() {
		m.logger.Warn("login failed", zap.Error(res.Err))
		if !m.fail(epoch, domain.Unauthenticated) {
			return m.Snapshot(), domain.ErrLoginSuperseded
		}
		return m.Snapshot(), fmt.Errorf("%w: %w", domain.ErrAuthentication, res.Err)
	}

	sess, ok := m.succeed(epoch, res.Tokens)
	if !ok {
		return m.Snapshot(), domain.ErrLoginSuperseded
	}
	m.logger.Info("login succeeded", zap.String("subject", sess.Subject))
	return sess, nil
}

// SilentReauthenticate recupera la sesión emitida previamente sin interacción.
// Si no hay sesión válida, queda en Unauthenticated y devuelve ErrSessionExpired.
func (m *Manager) SilentReauthenticate(ctx context.Context) (domain.Session, error) {
	epoch, err := m.beginAuth(ctx)
	if err != nil {
		return m.Snapshot(), err
	}

	tokens, ok, err := m.provider.CurrentSession(ctx)
	if err != nil || !ok || tokens.AccessToken == "" {
		if err != nil {
			m.logger.Warn("current session lookup failed", zap.Error(err))
		}
		return m.silentFailure(epoch, err)
	}

	expiresAt := tokens.ExpiresAt
	if exp, expErr := identity.ExpiryFromToken(tokens.AccessToken); expErr == nil {
		expiresAt = exp
	}
	if expiresAt.IsZero() {
		return m.silentFailure(epoch, identity.ErrTokenUnreadable)
	}

	if !m.now().Before(expiresAt) {
		res := m.provider.RefreshSession(ctx, tokens.RefreshToken).Checked()
		if !res.OK() {
			m.logger.Info("stored session refresh failed", zap.Error(res.Err))
			return m.silentFailure(epoch, res.Err)
		}
		tokens = res.Tokens
	}

	sess, ok := m.succeed(epoch, tokens)
	if !ok {
		return m.Snapshot(), domain.ErrLoginSuperseded
	}
	return sess, nil
}

func (m *Manager) silentFailure(epoch uint64, cause error) (domain.Session, error) {
	if !m.fail(epoch, domain.Unauthenticated) {
		return m.Snapshot(), domain.ErrLoginSuperseded
	}
	if cause != nil {
		return m.Snapshot(), fmt.Errorf("%w: %w", domain.ErrSessionExpired, cause)
	}
	return m.Snapshot(), domain.ErrSessionExpired
}

// Refresh renueva la credencial con el refresh token. Llamadas concurrentes se coalescen.
// Un fallo deja la sesión en Expired.
func (m *Manager) Refresh(ctx context.Context) (domain.Session, error) {
	v, err, _ := m.refreshGroup.Do("refresh", func() (any, error) {
		m.mu.Lock()
		if m.session.State != domain.Authenticated {
			m.mu.Unlock()
			return domain.Session{}, domain.ErrSessionExpired
		}
		epoch := m.epoch
		refreshToken := m.session.RefreshToken
		m.mu.Unlock()

		res := m.provider.RefreshSession(ctx, refreshToken).Checked()
		if !res.OK() {
			m.logger.Warn("token refresh failed", zap.Error(res.Err))
			m.expire(epoch)
			return domain.Session{}, fmt.Errorf("%w: %w", domain.ErrSessionExpired, res.Err)
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.epoch != epoch || m.session.State != domain.Authenticated {
			return domain.Session{}, domain.ErrLoginSuperseded
		}
		m.session = m.sessionFrom(res.Tokens)
		return m.session, nil
	})
	if err != nil {
		return m.Snapshot(), err
	}
	return v.(domain.Session), nil
}

// Logout limpia la credencial y pide login. Un login o refresh en curso queda descartado.
// El SignOut del proveedor corre en segundo plano; el próximo intento de
// autenticación espera a que termine.
func (m *Manager) Logout() {
	m.emitMu.Lock()
	m.mu.Lock()
	from := m.session.State
	m.epoch++
	m.session = domain.Session{State: domain.Unauthenticated}
	prev := m.signOutDone
	done := make(chan struct{})
	m.signOutDone = done
	m.mu.Unlock()
	m.dispatch(Transition{From: from, To: domain.Unauthenticated, PromptLogin: true})
	m.emitMu.Unlock()

	go m.signOut(prev, done)
}

// Wait bloquea hasta que terminen los SignOut pendientes.
func (m *Manager) Wait() {
	_ = m.waitSignOut(context.Background())
}

func (m *Manager) signOut(prev <-chan struct{}, done chan struct{}) {
	defer close(done)
	if prev != nil {
		<-prev
	}
	ctx, cancel := context.WithTimeout(context.Background(), signOutTimeout)
	defer cancel()
	if err := m.provider.SignOut(ctx); err != nil {
		m.logger.Warn("provider sign out failed", zap.Error(err))
	}
}

func (m *Manager) waitSignOut(ctx context.Context) error {
	m.mu.Lock()
	done := m.signOutDone
	m.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func closed(ch <-chan struct{}) bool {
	if ch == nil {
		return true
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// Expire pasa una sesión autenticada a Expired, p. ej. cuando la API responde 401.
func (m *Manager) Expire() {
	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()
	m.expire(epoch)
}

// RequireLogin emite un aviso de login sin cambiar el estado.
func (m *Manager) RequireLogin() {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()
	state := m.State()
	m.dispatch(Transition{From: state, To: state, PromptLogin: true})
}

func (m *Manager) expire(epoch uint64) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()
	m.mu.Lock()
	if m.epoch != epoch || m.session.State != domain.Authenticated {
		m.mu.Unlock()
		return
	}
	m.epoch++
	m.session = domain.Session{State: domain.Expired}
	m.mu.Unlock()
	m.logger.Info("session expired")
	m.dispatch(Transition{From: domain.Authenticated, To: domain.Expired, PromptLogin: true})
}

func (m *Manager) beginAuth(ctx context.Context) (uint64, error) {
	for {
		if err := m.waitSignOut(ctx); err != nil {
			return 0, err
		}
		m.emitMu.Lock()
		m.mu.Lock()
		if closed(m.signOutDone) {
			break
		}
		// Un Logout se coló entre la espera y el lock.
		m.mu.Unlock()
		m.emitMu.Unlock()
	}
	defer m.emitMu.Unlock()
	if m.session.State == domain.Authenticating {
		m.mu.Unlock()
		return 0, domain.ErrLoginInProgress
	}
	from := m.session.State
	m.epoch++
	epoch := m.epoch
	m.session = domain.Session{State: domain.Authenticating}
	m.mu.Unlock()
	m.dispatch(Transition{From: from, To: domain.Authenticating})
	return epoch, nil
}

// succeed aplica los tokens si el intento sigue vigente.
func (m *Manager) succeed(epoch uint64, tokens identity.Tokens) (domain.Session, bool) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()
	m.mu.Lock()
	if m.epoch != epoch || m.session.State != domain.Authenticating {
		m.mu.Unlock()
		return domain.Session{}, false
	}
	m.session = m.sessionFrom(tokens)
	sess := m.session
	m.mu.Unlock()
	m.dispatch(Transition{From: domain.Authenticating, To: domain.Authenticated})
	return sess, true
}

// fail revierte un intento vigente al estado dado.
func (m *Manager) fail(epoch uint64, to domain.SessionState) bool {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()
	m.mu.Lock()
	if m.epoch != epoch || m.session.State != domain.Authenticating {
		m.mu.Unlock()
		return false
	}
	m.session = domain.Session{State: to}
	m.mu.Unlock()
	m.dispatch(Transition{From: domain.Authenticating, To: to, PromptLogin: true})
	return true
}

func (m *Manager) sessionFrom(tokens identity.Tokens) domain.Session {
	sess := domain.Session{
		State:        domain.Authenticated,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
	}
	if exp, err := identity.ExpiryFromToken(tokens.AccessToken); err == nil {
		sess.ExpiresAt = exp
	}
	if sub, err := identity.SubjectFromToken(tokens.AccessToken); err == nil {
		sess.Subject = sub
	}
	return sess
}

// dispatch se llama con emitMu tomado y mu liberado.
func (m *Manager) dispatch(t Transition) {
	m.mu.Lock()
	listeners := make([]Listener, 0, len(m.listeners))
	ids := make([]int, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		listeners = append(listeners, m.listeners[id])
	}
	m.mu.Unlock()
	for _, l := range listeners {
		l(t)
	}
}
