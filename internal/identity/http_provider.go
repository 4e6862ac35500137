package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRefreshRejected    = errors.New("refresh rejected")
	ErrProviderFailure    = errors.New("identity provider failure")
)

// HTTPProvider implementa Provider contra los endpoints /auth de la API.
type HTTPProvider struct {
	baseURL  string
	clientID string
	poolID   string
	store    SessionStore
	client   *http.Client
	logger   *zap.Logger
	now      func() time.Time
}

// NewHTTPProvider construye el proveedor; store conserva la sesión emitida.
func NewHTTPProvider(baseURL, poolID, clientID string, store SessionStore, timeout time.Duration, logger *zap.Logger) *HTTPProvider {
	if store == nil {
		store = NewMemorySessionStore()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPProvider{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		poolID:   poolID,
		store:    store,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
		now:      time.Now,
	}
}

type tokenPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (p *HTTPProvider) Authenticate(ctx context.Context, username, password string) Result {
	body := map[string]string{
		"email":     username,
		"password":  password,
		"client_id": p.clientID,
		"pool_id":   p.poolID,
	}
	tokens, status, err := p.exchange(ctx, "/auth/login", body)
	if err != nil {
		if status == http.StatusUnauthorized || status == http.StatusBadRequest {
			return Failure(fmt.Errorf("%w: %w", ErrInvalidCredentials, err))
		}
		return Failure(fmt.Errorf("%w: %w", ErrProviderFailure, err))
	}
	if err := p.store.Save(ctx, tokens); err != nil {
		p.logger.Warn("session store save failed", zap.Error(err))
	}
	return Success(tokens)
}

func (p *HTTPProvider) CurrentSession(ctx context.Context) (Tokens, bool, error) {
	return p.store.Load(ctx)
}

func (p *HTTPProvider) RefreshSession(ctx context.Context, refreshToken string) Result {
	if strings.TrimSpace(refreshToken) == "" {
		return Failure(ErrRefreshRejected)
	}
	tokens, status, err := p.exchange(ctx, "/auth/refresh", map[string]string{"refresh_token": refreshToken})
	if err != nil {
		if status == http.StatusUnauthorized || status == http.StatusBadRequest {
			if clearErr := p.store.Clear(ctx); clearErr != nil {
				p.logger.Warn("session store clear failed", zap.Error(clearErr))
			}
			return Failure(fmt.Errorf("%w: %w", ErrRefreshRejected, err))
		}
		return Failure(fmt.Errorf("%w: %w", ErrProviderFailure, err))
	}
	if err := p.store.Save(ctx, tokens); err != nil {
		p.logger.Warn("session store save failed", zap.Error(err))
	}
	return Success(tokens)
}

// SignOut borra la sesión local y revoca el refresh token en el servidor (best effort).
func (p *HTTPProvider) SignOut(ctx context.Context) error {
	tokens, ok, err := p.store.Load(ctx)
	if err != nil {
		p.logger.Warn("session store load failed", zap.Error(err))
	}
	if clearErr := p.store.Clear(ctx); clearErr != nil {
		return fmt.Errorf("clear session: %w", clearErr)
	}
	if !ok || tokens.RefreshToken == "" {
		return nil
	}
	if _, _, err := p.post(ctx, "/auth/logout", map[string]string{"refresh_token": tokens.RefreshToken}); err != nil {
		p.logger.Warn("remote sign out failed", zap.Error(err))
	}
	return nil
}

func (p *HTTPProvider) exchange(ctx context.Context, path string, body any) (Tokens, int, error) {
	respBody, status, err := p.post(ctx, path, body)
	if err != nil {
		return Tokens{}, status, err
	}
	var resp struct {
		Tokens tokenPayload `json:"tokens"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return Tokens{}, status, fmt.Errorf("decode tokens: %w", err)
	}
	if resp.Tokens.AccessToken == "" {
		return Tokens{}, status, errors.New("empty access token")
	}
	tokens := Tokens{
		AccessToken:  resp.Tokens.AccessToken,
		RefreshToken: resp.Tokens.RefreshToken,
	}
	if exp, err := ExpiryFromToken(tokens.AccessToken); err == nil {
		tokens.ExpiresAt = exp
	} else if resp.Tokens.ExpiresIn > 0 {
		tokens.ExpiresAt = p.now().Add(time.Duration(resp.Tokens.ExpiresIn) * time.Second)
	}
	return tokens, status, nil
}

func (p *HTTPProvider) post(ctx context.Context, path string, body any) ([]byte, int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return nil, resp.StatusCode, fmt.Errorf("identity http error: status=%d: %s", resp.StatusCode, apiErr.Error)
		}
		return nil, resp.StatusCode, fmt.Errorf("identity http error: status=%d", resp.StatusCode)
	}
	return respBody, resp.StatusCode, nil
}
