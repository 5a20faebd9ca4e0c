package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tasky-api/internal/audit"
	"tasky-api/internal/metrics"
	"tasky-api/internal/ownership"
	"tasky-api/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("task not found")
	ErrForbidden    = errors.New("you do not have access to this task")
	ErrInvalidInput = errors.New("invalid task input")
)

const maxTitleBytes = 255

// Service is task CRUD on behalf of an authenticated caller.
//
// Ownership invariant: a caller can only read or change tasks whose UserID
// equals their identity id. Listing is filtered by owner in the query, and
// every by-id operation runs through the Authorizer first.
type Service struct {
	repo    Repository
	authz   ownership.Authorizer
	audit   *audit.Service
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithAudit(a *audit.Service) Option {
	return func(s *Service) { s.audit = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(repo Repository, authz ownership.Authorizer, opts ...Option) *Service {
	s := &Service{repo: repo, authz: authz}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, callerID string, in CreateInput) (Task, error) {
	if callerID == "" {
		return Task{}, ErrForbidden
	}
	t := Task{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Status:      in.Status,
		DueDate:     in.DueDate,
		UserID:      callerID,
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if err := validate(t); err != nil {
		return Task{}, err
	}

	out, err := s.repo.Create(ctx, t)
	if err != nil {
		return Task{}, fmt.Errorf("create task: %w", err)
	}
	return out, nil
}

// List returns the caller's tasks, newest first.
func (s *Service) List(ctx context.Context, callerID string) ([]Task, error) {
	out, err := s.repo.ListByOwner(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if out == nil {
		out = []Task{}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id, callerID string) (Task, error) {
	return s.load(ctx, id, callerID, "read")
}

func (s *Service) Update(ctx context.Context, id, callerID string, in UpdateInput) (Task, error) {
	t, err := s.load(ctx, id, callerID, "update")
	if err != nil {
		return Task{}, err
	}

	if in.Title != nil {
		t.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	switch {
	case in.ClearDueDate:
		t.DueDate = nil
	case in.DueDate != nil:
		t.DueDate = in.DueDate
	}
	if err := validate(t); err != nil {
		return Task{}, err
	}

	out, err := s.repo.Update(ctx, t)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Task{}, ErrNotFound
		}
		return Task{}, fmt.Errorf("update task: %w", err)
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id, callerID string) error {
	if _, err := s.load(ctx, id, callerID, "delete"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, callerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// load fetches a task and applies the ownership decision.
func (s *Service) load(ctx context.Context, id, callerID, action string) (Task, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Task{}, fmt.Errorf("load task: %w", err)
	}
	exists := err == nil

	raw := ownership.Decide(exists, t.UserID, callerID)
	s.metrics.ObserveOwnership(raw.String())
	if raw == ownership.Forbidden {
		logger.From(ctx).Warn("task access denied", "task_id", id, "action", action)
		if s.audit != nil {
			if err := s.audit.LogAccessDenied(ctx, callerID, id, action); err != nil {
				logger.From(ctx).Warn("audit append failed", "err", err)
			}
		}
	}

	var res ownership.Resource
	if exists {
		res = t
	}
	switch err := s.authz.Authorize(res, callerID); {
	case err == nil:
		return t, nil
	case errors.Is(err, ownership.ErrNotFound):
		return Task{}, ErrNotFound
	default:
		return Task{}, ErrForbidden
	}
}

func validate(t Task) error {
	if t.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if len(t.Title) > maxTitleBytes {
		return fmt.Errorf("%w: title must be at most %d bytes", ErrInvalidInput, maxTitleBytes)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: status must be one of todo, in_progress, done", ErrInvalidInput)
	}
	return nil
}
