package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"finsync/internal/domain"
)

type AccountRepository interface {
	Create(ctx context.Context, userID string, account domain.Account) error
	ListByUser(ctx context.Context, userID string) ([]domain.Account, error)
}

type PgAccountRepository struct {
	pool *pgxpool.Pool
}

func NewPgAccountRepository(pool *pgxpool.Pool) *PgAccountRepository {
	return &PgAccountRepository{pool: pool}
}

// Los montos viajan como texto para no perder precisión en el numeric de postgres.
func (r *PgAccountRepository) Create(ctx context.Context, userID string, account domain.Account) error {
	const query = `
		INSERT INTO accounts (
			id, user_id, enrollment_id, institution_id, institution_name, name,
			last_four, type, subtype, currency, status, ledger, available
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::numeric, $13::numeric)
	`
	d := account.Details
	_, err := r.pool.Exec(ctx, query,
		d.ID,
		userID,
		d.EnrollmentID,
		d.Institution.ID,
		d.Institution.Name,
		d.Name,
		d.LastFour,
		d.Type,
		d.Subtype,
		d.Currency,
		d.Status,
		account.Balances.Ledger.String(),
		account.Balances.Available.String(),
	)
	return err
}

func (r *PgAccountRepository) ListByUser(ctx context.Context, userID string) ([]domain.Account, error) {
	const query = `
		SELECT id, enrollment_id, institution_id, institution_name, name, last_four,
			type, subtype, currency, status, ledger::text, available::text
		FROM accounts
		WHERE user_id = $1
		ORDER BY institution_name ASC, name ASC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		var (
			acc               domain.Account
			ledger, available string
		)
		d := &acc.Details
		if err := rows.Scan(
			&d.ID,
			&d.EnrollmentID,
			&d.Institution.ID,
			&d.Institution.Name,
			&d.Name,
			&d.LastFour,
			&d.Type,
			&d.Subtype,
			&d.Currency,
			&d.Status,
			&ledger,
			&available,
		); err != nil {
			return nil, err
		}
		if acc.Balances.Ledger, err = decimal.NewFromString(ledger); err != nil {
			return nil, err
		}
		if acc.Balances.Available, err = decimal.NewFromString(available); err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}
