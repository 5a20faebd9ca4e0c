package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tasky-api/pkg/utils"

	"github.com/google/uuid"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store on Postgres. It relies on the users_email_key
// unique index to settle concurrent registrations for the same email.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	const q = `
INSERT INTO users (id, email, password_hash, first_name, last_name)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at, updated_at
`
	err := s.db.QueryRowContext(ctx, q, u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if utils.IsUniqueViolation(err) {
			return User{}, ErrAlreadyExists
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (User, error) {
	const q = `
SELECT id, email, password_hash, first_name, last_name, created_at, updated_at
FROM users
WHERE email = $1
`
	return scanUser(s.db.QueryRowContext(ctx, q, email))
}

func (s *PGStore) FindByID(ctx context.Context, id string) (User, error) {
	// The id column is uuid; anything else cannot match and would only
	// produce a cast error from Postgres.
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrNotFound
	}
	const q = `
SELECT id, email, password_hash, first_name, last_name, created_at, updated_at
FROM users
WHERE id = $1
`
	return scanUser(s.db.QueryRowContext(ctx, q, id))
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}
