package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"finsync/internal/domain"
	"finsync/internal/repository"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidPatch        = errors.New("invalid transaction patch")
)

// TransactionService lista y edita transacciones de un usuario.
type TransactionService struct {
	logger *zap.Logger
	txs    repository.TransactionRepository
}

func NewTransactionService(logger *zap.Logger, txs repository.TransactionRepository) *TransactionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionService{logger: logger, txs: txs}
}

// List devuelve las transacciones ordenadas por fecha descendente.
func (s *TransactionService) List(ctx context.Context, userID string) ([]domain.Transaction, error) {
	txs, err := s.txs.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(txs, func(a, b domain.Transaction) int {
		return strings.Compare(b.Date, a.Date)
	})
	return txs, nil
}

// Edit aplica un patch parcial. Solo se aceptan campos editables; cualquier otro
// campo o valor inválido devuelve ErrInvalidPatch y no se persiste nada.
func (s *TransactionService) Edit(ctx context.Context, userID, id string, patch map[string]any) (domain.Transaction, error) {
	if len(patch) == 0 {
		return domain.Transaction{}, fmt.Errorf("%w: empty patch", ErrInvalidPatch)
	}
	tx, err := s.txs.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Transaction{}, ErrTransactionNotFound
		}
		return domain.Transaction{}, err
	}

	if err := applyTransactionPatch(&tx, patch); err != nil {
		return domain.Transaction{}, err
	}

	if err := s.txs.Update(ctx, userID, tx); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Transaction{}, ErrTransactionNotFound
		}
		return domain.Transaction{}, err
	}
	s.logger.Info("transaction updated",
		zap.String("user_id", userID),
		zap.String("transaction_id", id),
		zap.Int("fields", len(patch)),
	)
	return tx, nil
}

func applyTransactionPatch(tx *domain.Transaction, patch map[string]any) error {
	for key, value := range patch {
		var err error
		switch key {
		case "description":
			tx.Description, err = patchString(key, value)
		case "date":
			tx.Date, err = patchDate(value)
		case "amount":
			tx.Amount, err = patchDecimal(value)
		case "status":
			tx.Status, err = patchStatus(value)
		case "details":
			err = applyDetailsPatch(&tx.Details, value)
		default:
			err = fmt.Errorf("%w: field %q is not editable", ErrInvalidPatch, key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func applyDetailsPatch(details *domain.TransactionDetails, value any) error {
	fields, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: details must be an object", ErrInvalidPatch)
	}
	for key, v := range fields {
		var err error
		switch key {
		case "category":
			details.Category, err = patchString("details.category", v)
		case "processing_status":
			details.ProcessingStatus, err = patchString("details.processing_status", v)
		default:
			err = fmt.Errorf("%w: field %q is not editable", ErrInvalidPatch, "details."+key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func patchString(field string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidPatch, field)
	}
	return strings.TrimSpace(s), nil
}

func patchDate(value any) (string, error) {
	s, err := patchString("date", value)
	if err != nil {
		return "", err
	}
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return "", fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidPatch)
	}
	return s, nil
}

func patchStatus(value any) (string, error) {
	s, err := patchString("status", value)
	if err != nil {
		return "", err
	}
	if s != domain.TransactionPending && s != domain.TransactionPosted {
		return "", fmt.Errorf("%w: status must be pending or posted", ErrInvalidPatch)
	}
	return s, nil
}

// patchDecimal acepta números JSON o strings numéricos.
func patchDecimal(value any) (decimal.Decimal, error) {
	var (
		d   decimal.Decimal
		err error
	)
	switch v := value.(type) {
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(v))
	case json.Number:
		d, err = decimal.NewFromString(v.String())
	case float64:
		d = decimal.NewFromFloat(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	default:
		err = errors.New("unsupported type")
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: amount must be numeric", ErrInvalidPatch)
	}
	return d, nil
}
