package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tasky-api/internal/audit"
	"tasky-api/internal/identity"
	"tasky-api/internal/metrics"
	"tasky-api/internal/throttle"
	"tasky-api/pkg/logger"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateIdentity  = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrTooManyAttempts    = errors.New("too many login attempts")
	ErrNotFound           = errors.New("identity not found")
)

const (
	minPasswordBytes = 6
	maxNameBytes     = 100
	tokenTypeBearer  = "Bearer"
)

// TokenIssuer is the part of Manager the service needs.
type TokenIssuer interface {
	Issue(now time.Time, subject, email string) (string, time.Time, error)
}

// Service implements registration, login and profile lookup.
//
// Invariants:
// - Emails are normalized (trimmed, lower-cased) before every lookup and insert.
// - Unknown email and wrong password are indistinguishable to the caller,
//   including in response time.
// - Store errors are wrapped and returned, never retried.
type Service struct {
	store   identity.Store
	hasher  PasswordHasher
	tokens  TokenIssuer
	limiter throttle.Limiter
	audit   *audit.Service
	metrics *metrics.Metrics
	// clock is injectable for deterministic tests.
	clock func() time.Time

	// dummyHash is compared against when the email is unknown.
	dummyHash string
}

type Option func(*Service)

// WithLimiter enables login throttling.
func WithLimiter(l throttle.Limiter) Option {
	return func(s *Service) { s.limiter = l }
}

func WithAudit(a *audit.Service) Option {
	return func(s *Service) { s.audit = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func NewService(store identity.Store, hasher PasswordHasher, tokens TokenIssuer, opts ...Option) (*Service, error) {
	if store == nil || hasher == nil || tokens == nil {
		return nil, errors.New("auth: store, hasher and token issuer are required")
	}
	s := &Service{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Same cost as real hashes so both login paths take the same time.
	dummy, err := hasher.Hash("tasky-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("auth: prepare dummy hash: %w", err)
	}
	s.dummyHash = dummy
	return s, nil
}

type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// TokenResult is returned by Register and Login.
type TokenResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// NormalizeEmail is the single email policy of the service.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (TokenResult, error) {
	email := NormalizeEmail(in.Email)
	if err := validateRegistration(email, in); err != nil {
		s.metrics.ObserveAuth("register", "invalid_input")
		return TokenResult{}, err
	}

	// Fast path only; the store's unique constraint is authoritative.
	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		s.metrics.ObserveAuth("register", "duplicate")
		return TokenResult{}, ErrDuplicateIdentity
	} else if !errors.Is(err, identity.ErrNotFound) {
		return TokenResult{}, fmt.Errorf("lookup identity: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return TokenResult{}, err
	}

	u, err := s.store.Create(ctx, identity.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
	})
	if err != nil {
		if errors.Is(err, identity.ErrAlreadyExists) {
			s.metrics.ObserveAuth("register", "duplicate")
			return TokenResult{}, ErrDuplicateIdentity
		}
		return TokenResult{}, fmt.Errorf("create identity: %w", err)
	}

	res, err := s.issue(u)
	if err != nil {
		return TokenResult{}, err
	}

	s.metrics.ObserveAuth("register", "ok")
	s.record(ctx, func(a *audit.Service) error {
		return a.LogRegistered(ctx, u.ID, u.Email, ClientIPFromContext(ctx))
	})
	logger.From(ctx).Info("identity registered", "userId", u.ID)
	return res, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (TokenResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		s.metrics.ObserveAuth("login", "invalid_input")
		return TokenResult{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	ip := ClientIPFromContext(ctx)
	key := throttle.LoginKey(email, ip)

	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, key)
		if err != nil {
			// Limiter outages fail open.
			logger.From(ctx).Warn("login limiter unavailable", "err", err)
		} else if !ok {
			s.metrics.ObserveAuth("login", "throttled")
			s.record(ctx, func(a *audit.Service) error {
				return a.LogLoginThrottled(ctx, email, ip)
			})
			return TokenResult{}, ErrTooManyAttempts
		}
	}

	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, identity.ErrNotFound) {
			return TokenResult{}, fmt.Errorf("lookup identity: %w", err)
		}
		s.hasher.Verify(password, s.dummyHash)
		s.loginFailed(ctx, email, ip, "unknown email")
		return TokenResult{}, ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, u.PasswordHash) {
		s.loginFailed(ctx, email, ip, "wrong password")
		return TokenResult{}, ErrInvalidCredentials
	}

	res, err := s.issue(u)
	if err != nil {
		return TokenResult{}, err
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, key); err != nil {
			logger.From(ctx).Warn("login limiter reset failed", "err", err)
		}
	}
	s.metrics.ObserveAuth("login", "ok")
	s.record(ctx, func(a *audit.Service) error {
		return a.LogLoginSucceeded(ctx, u.ID, u.Email, ip)
	})
	return res, nil
}

// Profile returns the public view of an authenticated identity.
func (s *Service) Profile(ctx context.Context, identityID string) (identity.Profile, error) {
	u, err := s.store.FindByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			// The caller passed the guard, so this id existed moments ago.
			logger.From(ctx).Error("authenticated identity missing from store", "userId", identityID)
			return identity.Profile{}, ErrNotFound
		}
		return identity.Profile{}, fmt.Errorf("load identity: %w", err)
	}
	return u.Profile(), nil
}

// Resolve implements IdentityResolver for RequireAccessToken.
func (s *Service) Resolve(ctx context.Context, subject string) (Caller, error) {
	u, err := s.store.FindByID(ctx, subject)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return Caller{}, ErrUnauthenticated
		}
		return Caller{}, fmt.Errorf("resolve identity: %w", err)
	}
	return Caller{ID: u.ID, Email: u.Email}, nil
}

func (s *Service) issue(u identity.User) (TokenResult, error) {
	tok, exp, err := s.tokens.Issue(s.clock(), u.ID, u.Email)
	if err != nil {
		return TokenResult{}, fmt.Errorf("issue token: %w", err)
	}
	return TokenResult{AccessToken: tok, TokenType: tokenTypeBearer, ExpiresAt: exp.UTC()}, nil
}

func (s *Service) loginFailed(ctx context.Context, email, ip, reason string) {
	s.metrics.ObserveAuth("login", "invalid_credentials")
	s.record(ctx, func(a *audit.Service) error {
		return a.LogLoginFailed(ctx, email, ip, reason)
	})
}

// record writes an audit event best-effort.
func (s *Service) record(ctx context.Context, fn func(a *audit.Service) error) {
	if s.audit == nil {
		return
	}
	if err := fn(s.audit); err != nil {
		logger.From(ctx).Warn("audit append failed", "err", err)
	}
}

func validateRegistration(email string, in RegisterInput) error {
	var problems []string

	if email == "" || !strings.Contains(email, "@") || strings.ContainsAny(email, " \t\r\n") {
		problems = append(problems, "email must be a valid address")
	}
	if len(in.Password) < minPasswordBytes || len(in.Password) > maxPasswordBytes {
		problems = append(problems, fmt.Sprintf("password must be %d to %d bytes", minPasswordBytes, maxPasswordBytes))
	}
	if len(in.FirstName) > maxNameBytes || len(in.LastName) > maxNameBytes {
		problems = append(problems, fmt.Sprintf("names must be at most %d bytes", maxNameBytes))
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
}
