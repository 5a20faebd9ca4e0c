package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is bcrypt's input limit; longer inputs would be silently
// truncated by older implementations and are rejected here.
const maxPasswordBytes = 72

// PasswordHasher turns plaintext passwords into salted one-way hashes.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// BcryptHasher is a PasswordHasher with a fixed work factor.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return BcryptHasher{cost: cost}
}

func (h BcryptHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" || len(plaintext) > maxPasswordBytes {
		return "", fmt.Errorf("%w: password must be 1 to %d bytes", ErrInvalidInput, maxPasswordBytes)
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Verify compares in constant time. A malformed hash never matches, and
// neither does a plaintext bcrypt would have to truncate.
func (h BcryptHasher) Verify(plaintext, hash string) bool {
	if hash == "" || len(plaintext) > maxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
