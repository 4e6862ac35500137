package identity

import (
	"context"
	"errors"
	"time"
)

var ErrEmptyCredential = errors.New("provider returned an empty access token")

// Tokens es el conjunto de credenciales emitido por el proveedor de identidad.
type Tokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Result es el resultado etiquetado de una llamada al proveedor: Tokens o Err.
type Result struct {
	Tokens Tokens
	Err    error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Checked convierte un éxito sin access token en un fallo.
func (r Result) Checked() Result {
	if r.Err == nil && r.Tokens.AccessToken == "" {
		return Failure(ErrEmptyCredential)
	}
	return r
}

func Success(t Tokens) Result {
	return Result{Tokens: t}
}

func Failure(err error) Result {
	return Result{Err: err}
}

// Provider es el contrato mínimo que el núcleo necesita del SDK de identidad.
type Provider interface {
	Authenticate(ctx context.Context, username, password string) Result
	// CurrentSession devuelve la sesión emitida previamente, si existe.
	CurrentSession(ctx context.Context) (Tokens, bool, error)
	RefreshSession(ctx context.Context, refreshToken string) Result
	SignOut(ctx context.Context) error
}
