package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pokvault/pokvault/internal/domain"
)

type APITokenRepository struct {
	db dbtx
}

func NewAPITokenRepository(pool *pgxpool.Pool) *APITokenRepository {
	return &APITokenRepository{db: pool}
}

func (r *APITokenRepository) Create(ctx context.Context, t *domain.APIToken) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO api_tokens (id, user_id, name, token_hash, revoked, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.UserID, t.Name, t.TokenHash, t.Revoked, t.CreatedAt,
	)
	return err
}

func (r *APITokenRepository) GetByHash(ctx context.Context, hash string) (*domain.APIToken, error) {
	var t domain.APIToken
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, name, token_hash, revoked, created_at
		 FROM api_tokens WHERE token_hash = $1`,
		hash,
	).Scan(&t.ID, &t.UserID, &t.Name, &t.TokenHash, &t.Revoked, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvalidAPIToken
		}
		return nil, err
	}
	return &t, nil
}

func (r *APITokenRepository) Revoke(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE api_tokens SET revoked = TRUE WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrInvalidAPIToken
	}
	return nil
}
