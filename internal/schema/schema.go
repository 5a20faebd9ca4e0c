// Package schema creates the tables the API needs if they do not exist.
package schema

import (
	"context"
	"database/sql"
	"fmt"

	"tasky-api/pkg/utils"
)

// statements run in order inside one transaction. Every statement is
// idempotent so Apply can run on every start.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id            uuid PRIMARY KEY,
	email         text NOT NULL,
	password_hash text NOT NULL,
	first_name    text NOT NULL DEFAULT '',
	last_name     text NOT NULL DEFAULT '',
	created_at    timestamptz NOT NULL DEFAULT now(),
	updated_at    timestamptz NOT NULL DEFAULT now()
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (email)`,
	`CREATE TABLE IF NOT EXISTS tasks (
	id          uuid PRIMARY KEY,
	title       varchar(255) NOT NULL,
	description text NOT NULL DEFAULT '',
	status      text NOT NULL DEFAULT 'todo' CHECK (status IN ('todo', 'in_progress', 'done')),
	due_date    timestamptz,
	user_id     uuid NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	created_at  timestamptz NOT NULL DEFAULT now(),
	updated_at  timestamptz NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS tasks_user_id_created_at_idx ON tasks (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS audit_events (
	id            uuid PRIMARY KEY,
	type          text NOT NULL,
	actor_user_id uuid,
	email         text NOT NULL DEFAULT '',
	ip_address    text NOT NULL DEFAULT '',
	task_id       uuid,
	message       text NOT NULL DEFAULT '',
	created_at    timestamptz NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS audit_events_created_at_idx ON audit_events (created_at)`,
}

// Apply creates missing tables and indexes.
func Apply(ctx context.Context, db *sql.DB) error {
	return utils.WithTx(ctx, db, nil, func(ctx context.Context, tx *sql.Tx) error {
		for i, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("schema statement %d: %w", i, err)
			}
		}
		return nil
	})
}
