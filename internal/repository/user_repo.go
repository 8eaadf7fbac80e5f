package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"questboard/internal/model"
	"questboard/pkg/metrics"
)

type UserRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewUserRepository(db *pgxpool.Pool, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

// SaveUser upserts the user, including the XP and achievement accumulators.
func (r *UserRepository) SaveUser(ctx context.Context, u *model.User) (*model.User, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("upsert", "users", time.Since(start))
	}()

	achievements, err := json.Marshal(u.Achievements)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal achievements: %w", err)
	}

	query := `
        INSERT INTO users (id, username, email, password_hash, role, xp, achievements, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO UPDATE SET
            username = EXCLUDED.username,
            email = EXCLUDED.email,
            password_hash = EXCLUDED.password_hash,
            role = EXCLUDED.role,
            xp = EXCLUDED.xp,
            achievements = EXCLUDED.achievements
        RETURNING id, username, email, password_hash, role, xp, achievements, created_at
    `

	saved, err := scanUser(r.db.QueryRow(ctx, query,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.XP, achievements, u.CreatedAt,
	))
	if err != nil {
		r.logger.Error("Failed to save user",
			zap.String("user_id", u.ID),
			zap.Error(err),
		)
		return nil, err
	}

	r.logger.Debug("User saved",
		zap.String("user_id", saved.ID),
		zap.Int("xp", saved.XP),
	)
	return saved, nil
}

// GetUser returns the user, or (nil, nil) when the id is unknown.
func (r *UserRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("select", "users", time.Since(start))
	}()

	query := `
        SELECT id, username, email, password_hash, role, xp, achievements, created_at
        FROM users
        WHERE id = $1
    `

	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// FindByEmail returns the user by email, passing through pgx.ErrNoRows.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("select", "users", time.Since(start))
	}()

	query := `
        SELECT id, username, email, password_hash, role, xp, achievements, created_at
        FROM users
        WHERE email = $1
    `

	return scanUser(r.db.QueryRow(ctx, query, email))
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u            model.User
		achievements []byte
	)

	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.XP, &achievements, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(achievements, &u.Achievements); err != nil {
		return nil, fmt.Errorf("failed to unmarshal achievements: %w", err)
	}

	return &u, nil
}
