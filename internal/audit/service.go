package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
// It is append-only; there are no Update or Delete methods.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records security events.
//
// Callers treat audit logging as best-effort: a failed Append is logged by the
// caller and never fails the request that produced it.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

func (s *Service) LogRegistered(ctx context.Context, userID, email, ip string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeRegistered,
		ActorUserID: userID,
		Email:       email,
		IPAddress:   ip,
	})
}

func (s *Service) LogLoginSucceeded(ctx context.Context, userID, email, ip string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeLoginSucceeded,
		ActorUserID: userID,
		Email:       email,
		IPAddress:   ip,
	})
}

// LogLoginFailed records a rejected login. reason is internal only and must
// never be echoed to the client.
func (s *Service) LogLoginFailed(ctx context.Context, email, ip, reason string) error {
	return s.Append(ctx, Event{
		Type:      EventTypeLoginFailed,
		Email:     email,
		IPAddress: ip,
		Message:   reason,
	})
}

func (s *Service) LogLoginThrottled(ctx context.Context, email, ip string) error {
	return s.Append(ctx, Event{
		Type:      EventTypeLoginThrottled,
		Email:     email,
		IPAddress: ip,
	})
}

// LogAccessDenied records a caller touching a task owned by someone else.
func (s *Service) LogAccessDenied(ctx context.Context, actorUserID, taskID, action string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeAccessDenied,
		ActorUserID: actorUserID,
		TaskID:      taskID,
		Message:     action,
	})
}
