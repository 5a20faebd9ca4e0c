package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the only supported JWT claims shape for this service.
// Subject carries the identity id; Email is informational and never trusted
// for authorization.
type Claims struct {
	jwt.RegisteredClaims

	Email string `json:"email,omitempty"`
}
