package auth

import (
	"errors"
	"fmt"
	"time"

	"tasky-api/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token verification failures. They are distinguishable with errors.Is but
// all surface to clients as the same 401.
var (
	ErrTokenMalformed = errors.New("auth: token malformed")
	ErrTokenSignature = errors.New("auth: token signature invalid")
	ErrTokenExpired   = errors.New("auth: token expired")
	ErrTokenClaims    = errors.New("auth: token claims invalid")
)

// clockSkew is tolerated on iat only; exp is enforced exactly.
const clockSkew = 30 * time.Second

// Manager issues and verifies HS256 bearer tokens. It is immutable after
// construction and safe for concurrent use.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewManager(cfg config.AuthConfig) (*Manager, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.TokenTTL <= 0 {
		return nil, errors.New("JWT_TTL must be positive")
	}

	return &Manager{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.JWTIssuer,
		ttl:    cfg.TokenTTL,
	}, nil
}

/* ===================== ISSUE ===================== */

// Issue signs a token for subject valid from now until now+TTL.
func (m *Manager) Issue(now time.Time, subject, email string) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("auth: subject is required")
	}
	exp := now.Add(m.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
		Email: email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	// exp is encoded at second precision.
	return signed, exp.Truncate(time.Second), nil
}

/* ===================== VERIFY ===================== */

// Verify checks signature, algorithm, issuer and time claims as of now.
func (m *Manager) Verify(tokenString string, now time.Time) (Claims, error) {
	var claims Claims

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	_, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return Claims{}, classify(err)
	}
	if claims.IssuedAt != nil && claims.IssuedAt.After(now.Add(clockSkew)) {
		return Claims{}, fmt.Errorf("%w: token used before issued", ErrTokenClaims)
	}
	if claims.Subject == "" {
		return Claims{}, fmt.Errorf("%w: subject missing", ErrTokenMalformed)
	}
	return claims, nil
}

// classify maps jwt library errors onto this package's failure kinds.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrTokenSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenClaims, err)
	}
}

// rejectionReason is a short label for logs and metrics.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrTokenSignature):
		return "signature"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	default:
		return "claims"
	}
}
