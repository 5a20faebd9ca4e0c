package audit

import "time"

// Event is an immutable, append-only security audit record.
//
// Invariants:
// - Events are never updated or deleted.
// - Type is required; every other field is best-effort context.
// - Plaintext passwords and tokens are never recorded.
//
// Storage (Postgres): table audit_events, INSERT only.
type Event struct {
	ID   string    `json:"id" db:"id"`
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the identity causing the event, when known. Failed logins
	// for unknown emails have none.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	// Email is the normalized email the caller presented.
	Email string `json:"email,omitempty" db:"email"`

	// IPAddress is the client IP as resolved by the router.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// TaskID is set for task access decisions.
	TaskID string `json:"task_id,omitempty" db:"task_id"`

	Message   string    `json:"message,omitempty" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeRegistered     EventType = "identity_registered"
	EventTypeLoginSucceeded EventType = "login_succeeded"
	EventTypeLoginFailed    EventType = "login_failed"
	EventTypeLoginThrottled EventType = "login_throttled"
	EventTypeAccessDenied   EventType = "access_denied"
)
