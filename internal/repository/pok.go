package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/pokvault/pokvault/internal/domain"
	"github.com/pokvault/pokvault/internal/service"
	"github.com/pokvault/pokvault/internal/vector"
)

// PokRepository persists poks in PostgreSQL. The embedding column is
// pgvector's vector(384); stored values are written through the text codec
// with an explicit CAST, and read back via embedding::text.
type PokRepository struct {
	db dbtx
}

func NewPokRepository(pool *pgxpool.Pool) *PokRepository {
	return &PokRepository{db: pool}
}

func NewPokRepositoryWithTx(tx pgx.Tx) *PokRepository {
	return &PokRepository{db: tx}
}

const pokColumns = `id, user_id, title, content, embedding::text, deleted_at, created_at, updated_at`

func (r *PokRepository) Create(ctx context.Context, p *domain.Pok) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO poks (id, user_id, title, content, embedding, deleted_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, CAST($5 AS vector), $6, $7, $8)`,
		p.ID, p.UserID, nullableString(p.Title), p.Content, vector.Encode(p.Embedding), p.DeletedAt, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetByID returns an active (non-deleted) pok by id.
func (r *PokRepository) GetByID(ctx context.Context, id string) (*domain.Pok, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+pokColumns+` FROM poks WHERE id = $1 AND deleted_at IS NULL`,
		id,
	)
	p, err := scanPok(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPokNotFound
		}
		return nil, err
	}
	return p, nil
}

// Update overwrites title, content, embedding, and updated_at.
// A nil embedding writes SQL NULL, which is how a stale embedding is
// cleared ahead of async regeneration.
func (r *PokRepository) Update(ctx context.Context, p *domain.Pok) error {
	p.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE poks SET title = $1, content = $2, embedding = CAST($3 AS vector), updated_at = $4
		 WHERE id = $5 AND deleted_at IS NULL`,
		nullableString(p.Title), p.Content, vector.Encode(p.Embedding), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrPokNotFound
	}
	return nil
}

// UpdateEmbedding overwrites only the embedding column of an active pok.
// The row's updated_at is left alone: embedding generation is invisible
// bookkeeping, not a user edit.
func (r *PokRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE poks SET embedding = CAST($1 AS vector) WHERE id = $2 AND deleted_at IS NULL`,
		vector.Encode(embedding), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrPokNotFound
	}
	return nil
}

// SoftDelete marks a pok deleted. Deleted poks disappear from every read
// path, including backfill candidacy.
func (r *PokRepository) SoftDelete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE poks SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrPokNotFound
	}
	return nil
}

// ListIDsMissingEmbedding returns ids of all active poks, across all
// owners, that have no embedding yet. Feeds the backfill.
func (r *PokRepository) ListIDsMissingEmbedding(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM poks WHERE embedding IS NULL AND deleted_at IS NULL ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SearchKeyword runs the owner-scoped keyword/filter query with an exact
// total count.
func (r *PokRepository) SearchKeyword(ctx context.Context, q service.KeywordQuery) ([]*domain.Pok, int64, error) {
	where := ` FROM poks
		 WHERE user_id = $1 AND deleted_at IS NULL
		   AND ($2 = '' OR title ILIKE '%' || $2 || '%' OR content ILIKE '%' || $2 || '%')
		   AND created_at >= COALESCE($3, created_at)
		   AND created_at <= COALESCE($4, created_at)
		   AND updated_at >= COALESCE($5, updated_at)
		   AND updated_at <= COALESCE($6, updated_at)`
	args := []any{q.UserID, q.Keyword, q.CreatedFrom, q.CreatedTo, q.UpdatedFrom, q.UpdatedTo}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*)`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	// q.Sort only ever holds allow-listed columns and directions.
	query := fmt.Sprintf(`SELECT %s%s ORDER BY %s %s, id DESC LIMIT $7 OFFSET $8`,
		pokColumns, where, q.Sort.Column(), q.Sort.Direction)
	args = append(args, q.Limit, q.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	poks, err := scanPokRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return poks, total, nil
}

// SearchSemantic returns the owner's embedded poks ranked by ascending
// cosine distance to the query embedding. Rows without an embedding never
// qualify.
func (r *PokRepository) SearchSemantic(ctx context.Context, userID string, query []float32, limit, offset int) ([]*domain.Pok, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+pokColumns+`
		 FROM poks
		 WHERE user_id = $1 AND deleted_at IS NULL AND embedding IS NOT NULL
		 ORDER BY embedding <=> $2
		 LIMIT $3 OFFSET $4`,
		userID, pgvector.NewVector(query), limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPokRows(rows)
}

func scanPok(row pgx.Row) (*domain.Pok, error) {
	var p domain.Pok
	var title, embedding *string
	if err := row.Scan(&p.ID, &p.UserID, &title, &p.Content, &embedding, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if title != nil {
		p.Title = *title
	}
	vec, err := vector.Decode(embedding)
	if err != nil {
		return nil, err
	}
	p.Embedding = vec
	return &p, nil
}

func scanPokRows(rows pgx.Rows) ([]*domain.Pok, error) {
	var results []*domain.Pok
	for rows.Next() {
		p, err := scanPok(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}
