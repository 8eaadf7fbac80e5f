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

	mqcontracts "questboard/contracts/mq"
	"questboard/internal/model"
	"questboard/pkg/metrics"
	"questboard/pkg/outbox"
)

const taskColumns = `
	id, title, description, project_id, assigned_to, created_by, created_at,
	deadline, completed_at, status, priority, subtasks, comments, attachments,
	activity_log, time_spent, timer_started_at, tags, depends_on, progress, sort_order
`

type TaskRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewTaskRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: db, outbox: outboxRepo, logger: logger}
}

// SaveTask upserts the task and inserts a task.updated outbox event in the
// same transaction, so the event never outlives a rolled-back write.
func (r *TaskRepository) SaveTask(ctx context.Context, t *model.Task) (*model.Task, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("upsert", "tasks", time.Since(start))
	}()

	r.logger.Debug("Saving task",
		zap.String("task_id", t.ID),
		zap.String("status", string(t.Status)),
		zap.Int("progress", t.Progress),
	)

	subtasks, err := json.Marshal(t.Subtasks)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal subtasks: %w", err)
	}
	comments, err := json.Marshal(t.Comments)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal comments: %w", err)
	}
	attachments, err := json.Marshal(t.Attachments)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attachments: %w", err)
	}
	activityLog, err := json.Marshal(t.ActivityLog)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal activity log: %w", err)
	}
	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}
	dependsOn, err := json.Marshal(t.DependsOn)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dependencies: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
        INSERT INTO tasks (` + taskColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
        ON CONFLICT (id) DO UPDATE SET
            title = EXCLUDED.title,
            description = EXCLUDED.description,
            project_id = EXCLUDED.project_id,
            assigned_to = EXCLUDED.assigned_to,
            deadline = EXCLUDED.deadline,
            completed_at = EXCLUDED.completed_at,
            status = EXCLUDED.status,
            priority = EXCLUDED.priority,
            subtasks = EXCLUDED.subtasks,
            comments = EXCLUDED.comments,
            attachments = EXCLUDED.attachments,
            activity_log = EXCLUDED.activity_log,
            time_spent = EXCLUDED.time_spent,
            timer_started_at = EXCLUDED.timer_started_at,
            tags = EXCLUDED.tags,
            depends_on = EXCLUDED.depends_on,
            progress = EXCLUDED.progress,
            sort_order = EXCLUDED.sort_order
        RETURNING ` + taskColumns

	row := tx.QueryRow(ctx, query,
		t.ID, t.Title, t.Description, t.ProjectID, nullable(t.AssignedTo), t.CreatedBy, t.CreatedAt,
		t.Deadline, t.CompletedAt, t.Status, t.Priority, subtasks, comments, attachments,
		activityLog, t.TimeSpent, t.TimerStartedAt, tags, dependsOn, t.Progress, t.Order,
	)

	saved, err := scanTask(row)
	if err != nil {
		r.logger.Error("Failed to save task",
			zap.String("task_id", t.ID),
			zap.Error(err),
		)
		return nil, err
	}

	event := mqcontracts.TaskUpdatedPayload{
		TaskID:    saved.ID,
		ProjectID: saved.ProjectID,
		Status:    string(saved.Status),
		Progress:  saved.Progress,
	}
	if err := outbox.InsertEventInTx(ctx, tx, r.outbox, "task", &saved.ID, mqcontracts.RoutingKeyTaskUpdated, event); err != nil {
		r.logger.Error("Failed to insert task.updated outbox event",
			zap.String("task_id", saved.ID),
			zap.Error(err),
		)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit task save: %w", err)
	}

	r.logger.Info("Task saved",
		zap.String("task_id", saved.ID),
		zap.String("status", string(saved.Status)),
	)
	return saved, nil
}

// GetTask returns the task, or (nil, nil) when the id is unknown.
func (r *TaskRepository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("select", "tasks", time.Since(start))
	}()

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	t, err := scanTask(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to load task",
			zap.String("task_id", id),
			zap.Error(err),
		)
		return nil, err
	}
	return t, nil
}

// ListTasksByAssignee returns every task assigned to the user, ordered by
// the board sort key.
func (r *TaskRepository) ListTasksByAssignee(ctx context.Context, userID string) ([]model.Task, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("select", "tasks", time.Since(start))
	}()

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE assigned_to = $1 ORDER BY sort_order ASC`

	return r.queryTasks(ctx, query, userID)
}

// ListTasksByProject returns every task in a project.
func (r *TaskRepository) ListTasksByProject(ctx context.Context, projectID string) ([]model.Task, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("select", "tasks", time.Since(start))
	}()

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE project_id = $1 ORDER BY sort_order ASC`

	return r.queryTasks(ctx, query, projectID)
}

// ListAllTasks returns the full task set.
func (r *TaskRepository) ListAllTasks(ctx context.Context) ([]model.Task, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("select", "tasks", time.Since(start))
	}()

	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY sort_order ASC`

	return r.queryTasks(ctx, query)
}

// DeleteTask removes the task and records a task.deleted outbox event in the
// same transaction.
func (r *TaskRepository) DeleteTask(ctx context.Context, id string) error {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("delete", "tasks", time.Since(start))
	}()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete task",
			zap.String("task_id", id),
			zap.Error(err),
		)
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	event := mqcontracts.TaskDeletedPayload{TaskID: id}
	if err := outbox.InsertEventInTx(ctx, tx, r.outbox, "task", &id, mqcontracts.RoutingKeyTaskDeleted, event); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit task delete: %w", err)
	}

	r.logger.Info("Task deleted", zap.String("task_id", id))
	return nil
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query tasks", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			r.logger.Error("Failed to scan task row", zap.Error(err))
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*model.Task, error) {
	var (
		t           model.Task
		assignedTo  *string
		subtasks    []byte
		comments    []byte
		attachments []byte
		activityLog []byte
		tags        []byte
		dependsOn   []byte
	)

	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.ProjectID, &assignedTo, &t.CreatedBy, &t.CreatedAt,
		&t.Deadline, &t.CompletedAt, &t.Status, &t.Priority, &subtasks, &comments, &attachments,
		&activityLog, &t.TimeSpent, &t.TimerStartedAt, &tags, &dependsOn, &t.Progress, &t.Order,
	)
	if err != nil {
		return nil, err
	}

	if assignedTo != nil {
		t.AssignedTo = *assignedTo
	}
	if err := json.Unmarshal(subtasks, &t.Subtasks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subtasks: %w", err)
	}
	if err := json.Unmarshal(comments, &t.Comments); err != nil {
		return nil, fmt.Errorf("failed to unmarshal comments: %w", err)
	}
	if err := json.Unmarshal(attachments, &t.Attachments); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attachments: %w", err)
	}
	if err := json.Unmarshal(activityLog, &t.ActivityLog); err != nil {
		return nil, fmt.Errorf("failed to unmarshal activity log: %w", err)
	}
	if err := json.Unmarshal(tags, &t.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	if err := json.Unmarshal(dependsOn, &t.DependsOn); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dependencies: %w", err)
	}

	return &t, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
