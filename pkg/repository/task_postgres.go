package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

const taskColumns = `id, external_id, user_id, title, notes, priority, due_at, done, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }, t *types.Task) error {
	return row.Scan(&t.Id, &t.ExternalId, &t.UserId, &t.Title, &t.Notes, &t.Priority, &t.DueAt, &t.Done, &t.CreatedAt, &t.UpdatedAt)
}

func (r *PostgresBackend) CreateTask(ctx context.Context, userId uint, task *types.Task) (*types.Task, error) {
	if task.Priority == "" {
		task.Priority = types.TaskPriorityMedium
	}

	query := `
		INSERT INTO task (user_id, title, notes, priority, due_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + taskColumns

	var t types.Task
	err := scanTask(r.db.QueryRowContext(ctx, query, userId, task.Title, task.Notes, task.Priority, task.DueAt), &t)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &t, nil
}

func (r *PostgresBackend) GetTask(ctx context.Context, userId uint, externalId string) (*types.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM task WHERE user_id = $1 AND external_id = $2`

	var t types.Task
	err := scanTask(r.db.QueryRowContext(ctx, query, userId, externalId), &t)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &t, nil
}

func (r *PostgresBackend) ListTasks(ctx context.Context, userId uint, includeDone bool) ([]types.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM task WHERE user_id = $1`
	if !includeDone {
		query += ` AND done = FALSE`
	}
	query += ` ORDER BY due_at NULLS LAST, priority DESC, created_at`

	rows, err := r.db.QueryContext(ctx, query, userId)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []types.Task
	for rows.Next() {
		var t types.Task
		if err := scanTask(rows, &t); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *PostgresBackend) UpdateTask(ctx context.Context, userId uint, externalId string, update *types.TaskUpdate) (*types.Task, error) {
	query := `
		UPDATE task SET
			title = COALESCE($3, title),
			notes = COALESCE($4, notes),
			priority = COALESCE($5, priority),
			due_at = COALESCE($6, due_at),
			done = COALESCE($7, done),
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1 AND external_id = $2
		RETURNING ` + taskColumns

	var t types.Task
	err := scanTask(r.db.QueryRowContext(ctx, query, userId, externalId, update.Title, update.Notes, update.Priority, update.DueAt, update.Done), &t)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return &t, nil
}

func (r *PostgresBackend) DeleteTask(ctx context.Context, userId uint, externalId string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM task WHERE user_id = $1 AND external_id = $2`, userId, externalId)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	n, _ := result.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
