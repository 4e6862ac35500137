package linking

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"finsync/internal/domain"
)

// ProviderTeller es el proveedor de agregación que entrega las enrollments.
const ProviderTeller = "Teller"

var (
	ErrInvalidEnrollment = errors.New("invalid enrollment")
	ErrNoApplicationID   = errors.New("link application id not configured")
)

// Enrollment es lo que entrega el SDK de vinculación al completar el flujo.
type Enrollment struct {
	AccessToken string
	ID          string
	Institution domain.Institution
	UserID      string
	Signatures  []string
}

type AccountLinker interface {
	LinkAccount(ctx context.Context, req domain.AccountLinkRequest) (*domain.AccountLink, error)
}

type AccountsRefresher interface {
	Refresh(ctx context.Context) error
}

// Linker convierte una enrollment en una cuenta vinculada y refresca las cuentas.
type Linker struct {
	api           AccountLinker
	accounts      AccountsRefresher
	applicationID string
	logger        *zap.Logger
}

// NewLinker crea el Linker. applicationID identifica la app ante el widget de vinculación.
func NewLinker(api AccountLinker, accounts AccountsRefresher, applicationID string, logger *zap.Logger) *Linker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Linker{api: api, accounts: accounts, applicationID: applicationID, logger: logger}
}

// ApplicationID devuelve el id con el que se inicializa el widget de vinculación.
func (l *Linker) ApplicationID() (string, error) {
	if l.applicationID == "" {
		return "", ErrNoApplicationID
	}
	return l.applicationID, nil
}

// BuildRequest arma el payload de POST /accounts para una enrollment.
func BuildRequest(e Enrollment) (domain.AccountLinkRequest, error) {
	if e.AccessToken == "" || e.ID == "" {
		return domain.AccountLinkRequest{}, ErrInvalidEnrollment
	}
	signatures := e.Signatures
	if signatures == nil {
		signatures = []string{}
	}
	return domain.AccountLinkRequest{
		Provider:   ProviderTeller,
		ProviderID: e.AccessToken,
		EntityData: map[string]string{
			"enrollment_id":    e.ID,
			"institution_id":   e.Institution.ID,
			"institution_name": e.Institution.Name,
		},
		Metadata: map[string]any{
			"user_id":    e.UserID,
			"signatures": signatures,
		},
	}, nil
}

// OnSuccess registra la cuenta vinculada y luego refresca el cache de cuentas.
// Un fallo del refresh no deshace el vínculo: se loguea y se devuelve.
func (l *Linker) OnSuccess(ctx context.Context, e Enrollment) (*domain.AccountLink, error) {
	req, err := BuildRequest(e)
	if err != nil {
		l.logger.Warn("rejected enrollment", zap.String("enrollment_id", e.ID), zap.Error(err))
		return nil, err
	}

	link, err := l.api.LinkAccount(ctx, req)
	if err != nil {
		l.logger.Error("error creating account link",
			zap.String("enrollment_id", e.ID),
			zap.String("institution", e.Institution.Name),
			zap.Error(err),
		)
		return nil, fmt.Errorf("link account: %w", err)
	}
	l.logger.Info("account linked",
		zap.String("link_id", link.ID),
		zap.String("institution", e.Institution.Name),
	)

	if err := l.accounts.Refresh(ctx); err != nil {
		l.logger.Warn("accounts refresh after linking failed", zap.Error(err))
		return link, fmt.Errorf("refresh accounts: %w", err)
	}
	return link, nil
}
