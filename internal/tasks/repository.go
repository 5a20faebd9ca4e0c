package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ Repository = (*PGRepo)(nil)

// PGRepo stores tasks in the tasks table. Writes carry user_id in their WHERE
// clause so a row can only change under its owner.
type PGRepo struct {
	db *sql.DB
}

func NewPGRepo(db *sql.DB) *PGRepo {
	return &PGRepo{db: db}
}

const taskColumns = `id, title, description, status, due_date, user_id, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, t Task) (Task, error) {
	const q = `
INSERT INTO tasks (id, title, description, status, due_date, user_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at, updated_at
`
	if err := r.db.QueryRowContext(ctx, q,
		t.ID,
		t.Title,
		t.Description,
		string(t.Status),
		nullTime(t.DueDate),
		t.UserID,
	).Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		return Task{}, err
	}
	return t, nil
}

func (r *PGRepo) ListByOwner(ctx context.Context, userID string) ([]Task, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return []Task{}, nil
	}
	q := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PGRepo) Get(ctx context.Context, id string) (Task, error) {
	// A malformed id cannot name any task.
	if _, err := uuid.Parse(id); err != nil {
		return Task{}, ErrNotFound
	}
	q := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	t, err := scanTask(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}
	return t, nil
}

func (r *PGRepo) Update(ctx context.Context, t Task) (Task, error) {
	const q = `
UPDATE tasks
SET title = $3, description = $4, status = $5, due_date = $6, updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING created_at, updated_at
`
	if err := r.db.QueryRowContext(ctx, q,
		t.ID,
		t.UserID,
		t.Title,
		t.Description,
		string(t.Status),
		nullTime(t.DueDate),
	).Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}
	return t, nil
}

func (r *PGRepo) Delete(ctx context.Context, id, userID string) error {
	const q = `DELETE FROM tasks WHERE id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, q, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var (
		t      Task
		status string
		due    sql.NullTime
	)
	if err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&status,
		&due,
		&t.UserID,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return Task{}, err
	}
	t.Status = Status(status)
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	return t, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
