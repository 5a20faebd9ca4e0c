package tasks

import (
	"context"
	"time"
)

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}

// Task is a single-owner to-do item.
//
// Invariants:
// - UserID is set once at creation from the authenticated caller and never
//   changes.
// - Every read or write by id goes through the ownership check.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	UserID      string     `json:"userId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// OwnerID makes Task an ownership.Resource.
func (t Task) OwnerID() string { return t.UserID }

type CreateInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	DueDate     *time.Time `json:"dueDate"`
}

// UpdateInput is a partial update; nil fields are left unchanged. It has no
// owner field. ClearDueDate removes the due date and wins over DueDate.
type UpdateInput struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Status       *Status    `json:"status"`
	DueDate      *time.Time `json:"dueDate"`
	ClearDueDate bool       `json:"-"`
}

// Repository is the persistence contract for tasks. Update and Delete are
// scoped by owner as well as id and return ErrNotFound when no row matches.
type Repository interface {
	Create(ctx context.Context, t Task) (Task, error)
	ListByOwner(ctx context.Context, userID string) ([]Task, error)
	Get(ctx context.Context, id string) (Task, error)
	Update(ctx context.Context, t Task) (Task, error)
	Delete(ctx context.Context, id, userID string) error
}
