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

type ProjectRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProjectRepository(db *pgxpool.Pool, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{db: db, logger: logger}
}

func (r *ProjectRepository) SaveProject(ctx context.Context, p *model.Project) (*model.Project, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("upsert", "projects", time.Since(start))
	}()

	query := `
        INSERT INTO projects (id, name, description, color, created_by, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            description = EXCLUDED.description,
            color = EXCLUDED.color
        RETURNING id, name, description, color, created_by, created_at
    `

	var saved model.Project
	err := r.db.QueryRow(ctx, query,
		p.ID, p.Name, p.Description, p.Color, p.CreatedBy, p.CreatedAt,
	).Scan(&saved.ID, &saved.Name, &saved.Description, &saved.Color, &saved.CreatedBy, &saved.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to save project",
			zap.String("project_id", p.ID),
			zap.Error(err),
		)
		return nil, err
	}
	return &saved, nil
}

// GetProject returns the project, or (nil, nil) when the id is unknown.
func (r *ProjectRepository) GetProject(ctx context.Context, id string) (*model.Project, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("select", "projects", time.Since(start))
	}()

	query := `
        SELECT id, name, description, color, created_by, created_at
        FROM projects
        WHERE id = $1
    `

	var p model.Project
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Color, &p.CreatedBy, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepository) ListProjects(ctx context.Context) ([]model.Project, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("select", "projects", time.Since(start))
	}()

	query := `
        SELECT id, name, description, color, created_by, created_at
        FROM projects
        ORDER BY created_at ASC
    `

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query projects", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Color, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *ProjectRepository) DeleteProject(ctx context.Context, id string) error {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("delete", "projects", time.Since(start))
	}()

	result, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete project",
			zap.String("project_id", id),
			zap.Error(err),
		)
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
