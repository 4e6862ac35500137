package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"finsync/internal/domain"
)

const dateLayout = "2006-01-02"

// TransactionRepository persiste transacciones por usuario.
// GetByID devuelve pgx.ErrNoRows si la transacción no existe o es de otro usuario.
type TransactionRepository interface {
	Create(ctx context.Context, userID string, tx domain.Transaction) error
	ListByUser(ctx context.Context, userID string) ([]domain.Transaction, error)
	GetByID(ctx context.Context, userID, id string) (domain.Transaction, error)
	Update(ctx context.Context, userID string, tx domain.Transaction) error
}

type PgTransactionRepository struct {
	pool *pgxpool.Pool
}

func NewPgTransactionRepository(pool *pgxpool.Pool) *PgTransactionRepository {
	return &PgTransactionRepository{pool: pool}
}

const transactionColumns = `
	id, account_id, to_char(date, 'YYYY-MM-DD'), description, amount::text, status, type,
	running_balance::text, category, processing_status
`

func (r *PgTransactionRepository) Create(ctx context.Context, userID string, tx domain.Transaction) error {
	const query = `
		INSERT INTO transactions (
			id, user_id, account_id, date, description, amount, status, type,
			running_balance, category, processing_status
		)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9::numeric, $10, $11)
	`
	date, err := time.Parse(dateLayout, tx.Date)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, query,
		tx.ID,
		userID,
		tx.AccountID,
		date,
		tx.Description,
		tx.Amount.String(),
		tx.Status,
		tx.Type,
		nullableDecimal(tx.RunningBalance),
		tx.Details.Category,
		tx.Details.ProcessingStatus,
	)
	return err
}

// ListByUser devuelve las transacciones ordenadas por fecha descendente.
func (r *PgTransactionRepository) ListByUser(ctx context.Context, userID string) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY date DESC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := []domain.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (r *PgTransactionRepository) GetByID(ctx context.Context, userID, id string) (domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND id = $2
	`
	return scanTransaction(r.pool.QueryRow(ctx, query, userID, id))
}

func (r *PgTransactionRepository) Update(ctx context.Context, userID string, tx domain.Transaction) error {
	const query = `
		UPDATE transactions
		SET date = $3, description = $4, amount = $5::numeric, status = $6,
			category = $7, processing_status = $8
		WHERE user_id = $1 AND id = $2
	`
	date, err := time.Parse(dateLayout, tx.Date)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, query,
		userID,
		tx.ID,
		date,
		tx.Description,
		tx.Amount.String(),
		tx.Status,
		tx.Details.Category,
		tx.Details.ProcessingStatus,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var (
		tx             domain.Transaction
		amount         string
		runningBalance *string
	)
	err := row.Scan(
		&tx.ID,
		&tx.AccountID,
		&tx.Date,
		&tx.Description,
		&amount,
		&tx.Status,
		&tx.Type,
		&runningBalance,
		&tx.Details.Category,
		&tx.Details.ProcessingStatus,
	)
	if err != nil {
		return domain.Transaction{}, err
	}
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return domain.Transaction{}, err
	}
	if runningBalance != nil {
		rb, err := decimal.NewFromString(*runningBalance)
		if err != nil {
			return domain.Transaction{}, err
		}
		tx.RunningBalance = &rb
	}
	return tx, nil
}

func nullableDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}
