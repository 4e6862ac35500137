package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"finsync/internal/domain"
)

type AccountLinkRepository interface {
	Create(ctx context.Context, link domain.AccountLink) error
	ListByUser(ctx context.Context, userID string) ([]domain.AccountLink, error)
}

type PgAccountLinkRepository struct {
	pool *pgxpool.Pool
}

func NewPgAccountLinkRepository(pool *pgxpool.Pool) *PgAccountLinkRepository {
	return &PgAccountLinkRepository{pool: pool}
}

func (r *PgAccountLinkRepository) Create(ctx context.Context, link domain.AccountLink) error {
	const query = `
		INSERT INTO account_links (id, user_id, provider, provider_id, entity_data, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, provider, provider_id) DO UPDATE
		SET entity_data = EXCLUDED.entity_data, metadata = EXCLUDED.metadata
	`
	_, err := r.pool.Exec(ctx, query,
		link.ID,
		link.UserID,
		link.Provider,
		link.ProviderID,
		link.EntityData,
		link.Metadata,
		link.CreatedAt,
	)
	return err
}

func (r *PgAccountLinkRepository) ListByUser(ctx context.Context, userID string) ([]domain.AccountLink, error) {
	const query = `
		SELECT id, user_id, provider, provider_id, entity_data, metadata, created_at
		FROM account_links
		WHERE user_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []domain.AccountLink{}
	for rows.Next() {
		var link domain.AccountLink
		if err := rows.Scan(
			&link.ID,
			&link.UserID,
			&link.Provider,
			&link.ProviderID,
			&link.EntityData,
			&link.Metadata,
			&link.CreatedAt,
		); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}
