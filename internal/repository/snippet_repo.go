package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"questboard/internal/model"
	"questboard/pkg/metrics"
)

type SnippetRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewSnippetRepository(db *pgxpool.Pool, logger *zap.Logger) *SnippetRepository {
	return &SnippetRepository{db: db, logger: logger}
}

func (r *SnippetRepository) SaveSnippet(ctx context.Context, s *model.Snippet) (*model.Snippet, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("upsert", "snippets", time.Since(start))
	}()

	query := `
        INSERT INTO snippets (id, title, language, code, created_by, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO UPDATE SET
            title = EXCLUDED.title,
            language = EXCLUDED.language,
            code = EXCLUDED.code
        RETURNING id, title, language, code, created_by, created_at
    `

	var saved model.Snippet
	err := r.db.QueryRow(ctx, query,
		s.ID, s.Title, s.Language, s.Code, s.CreatedBy, s.CreatedAt,
	).Scan(&saved.ID, &saved.Title, &saved.Language, &saved.Code, &saved.CreatedBy, &saved.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to save snippet",
			zap.String("snippet_id", s.ID),
			zap.Error(err),
		)
		return nil, err
	}
	return &saved, nil
}

// GetSnippet returns the snippet, or (nil, nil) when the id is unknown.
func (r *SnippetRepository) GetSnippet(ctx context.Context, id string) (*model.Snippet, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("select", "snippets", time.Since(start))
	}()

	query := `SELECT id, title, language, code, created_by, created_at FROM snippets WHERE id = $1`

	var s model.Snippet
	err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.Title, &s.Language, &s.Code, &s.CreatedBy, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SnippetRepository) ListSnippets(ctx context.Context) ([]model.Snippet, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("select", "snippets", time.Since(start))
	}()

	query := `SELECT id, title, language, code, created_by, created_at FROM snippets ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query snippets", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	snippets := []model.Snippet{}
	for rows.Next() {
		var s model.Snippet
		if err := rows.Scan(&s.ID, &s.Title, &s.Language, &s.Code, &s.CreatedBy, &s.CreatedAt); err != nil {
			return nil, err
		}
		snippets = append(snippets, s)
	}
	return snippets, rows.Err()
}

func (r *SnippetRepository) DeleteSnippet(ctx context.Context, id string) error {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("delete", "snippets", time.Since(start))
	}()

	result, err := r.db.Exec(ctx, `DELETE FROM snippets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
