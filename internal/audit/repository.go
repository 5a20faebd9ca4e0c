package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PGRepo appends events to the audit_events table.
type PGRepo struct {
	db *sql.DB
}

func NewPGRepo(db *sql.DB) *PGRepo {
	return &PGRepo{db: db}
}

func (r *PGRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (id, type, actor_user_id, email, ip_address, task_id, message, created_at)
VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, NULLIF($6, '')::uuid, $7, $8)
`
	if _, err := r.db.ExecContext(ctx, q,
		e.ID,
		string(e.Type),
		e.ActorUserID,
		e.Email,
		e.IPAddress,
		e.TaskID,
		e.Message,
		e.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
