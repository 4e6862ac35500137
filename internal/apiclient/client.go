package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"go.uber.org/zap"

	"finsync/internal/domain"
)

// TokenSource entrega la credencial bearer vigente en el momento de cada llamada.
type TokenSource interface {
	Token(ctx context.Context) (string, bool)
}

// Client envuelve llamadas HTTP con credencial bearer, timeout fijo y un único reintento.
type Client struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
	logger  *zap.Logger
}

// New construye un cliente apuntando a baseURL.
func New(baseURL string, tokens TokenSource, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// do reintenta exactamente una vez, sin espera, ante cualquier fallo.
// No distingue fallos reintentables: el segundo error se propaga tal cual.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		payload = data
	}

	err := c.attempt(ctx, method, path, payload, out)
	if err == nil {
		return nil
	}
	c.logger.Warn("api call failed, retrying",
		zap.String("method", method),
		zap.String("path", path),
		zap.Error(err),
	)

	err = c.attempt(ctx, method, path, payload, out)
	if err != nil {
		c.logger.Error("api call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, out any) error {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// La credencial puede rotar entre intentos: se lee en cada uno.
	if c.tokens != nil {
		if token, ok := c.tokens.Token(ctx); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if readErr != nil {
			return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if out != nil {
		return decodeInto(resp.Body, out)
	}
	return nil
}

// decodeInto decodifica en un valor nuevo del tipo de out y solo lo copia si
// no hubo error: un intento fallido nunca deja out a medio llenar.
func decodeInto(r io.Reader, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("decode response: out must be a non-nil pointer, got %T", out)
	}
	fresh := reflect.New(rv.Elem().Type())
	if err := json.NewDecoder(r).Decode(fresh.Interface()); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	rv.Elem().Set(fresh.Elem())
	return nil
}
