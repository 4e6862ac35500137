package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"finsync/internal/domain"
	"finsync/internal/repository"
)

var ErrInvalidLink = errors.New("invalid account link")

// AccountService expone las cuentas particionadas y el alta de vínculos bancarios.
type AccountService struct {
	logger   *zap.Logger
	accounts repository.AccountRepository
	links    repository.AccountLinkRepository
}

func NewAccountService(logger *zap.Logger, accounts repository.AccountRepository, links repository.AccountLinkRepository) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{logger: logger, accounts: accounts, links: links}
}

// Accounts devuelve las cuentas del usuario separadas en débito y crédito con totales.
func (s *AccountService) Accounts(ctx context.Context, userID string) (domain.AccountsResponse, error) {
	accounts, err := s.accounts.ListByUser(ctx, userID)
	if err != nil {
		return domain.AccountsResponse{}, err
	}
	return domain.PartitionAccounts(accounts), nil
}

// LinkAccount guarda el vínculo con el proveedor. El provider_id nunca se devuelve.
func (s *AccountService) LinkAccount(ctx context.Context, userID string, req domain.AccountLinkRequest) (domain.AccountLink, error) {
	provider := strings.TrimSpace(req.Provider)
	providerID := strings.TrimSpace(req.ProviderID)
	if provider == "" || providerID == "" || strings.TrimSpace(req.EntityData["enrollment_id"]) == "" {
		return domain.AccountLink{}, ErrInvalidLink
	}
	entity := req.EntityData
	if entity == nil {
		entity = map[string]string{}
	}

	link := domain.AccountLink{
		ID:         uuid.NewString(),
		UserID:     userID,
		Provider:   provider,
		ProviderID: providerID,
		EntityData: entity,
		Metadata:   req.Metadata,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.links.Create(ctx, link); err != nil {
		return domain.AccountLink{}, err
	}
	s.logger.Info("account link created",
		zap.String("user_id", userID),
		zap.String("provider", provider),
		zap.String("institution", entity["institution_name"]),
	)
	return link, nil
}
