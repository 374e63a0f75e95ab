// Package password hashes and verifies account passwords with bcrypt.
//
// bcrypt only looks at the first 72 bytes of its input. Passwords are cut to
// that length before hashing and before verifying, so a longer password keeps
// verifying against its stored hash instead of failing with
// bcrypt.ErrPasswordTooLong.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxBytes is the number of leading UTF-8 bytes of a password that take part
// in hashing.
const MaxBytes = 72

type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using cost, or bcrypt.DefaultCost when cost is
// outside bcrypt's accepted range.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the encoded bcrypt hash of plaintext. A fresh salt is drawn on
// every call.
func (h *Hasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(truncate(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password failed: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hash. A malformed hash is reported
// as a mismatch.
func (h *Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), truncate(plaintext)) == nil
}

func truncate(plaintext string) []byte {
	b := []byte(plaintext)
	if len(b) > MaxBytes {
		b = b[:MaxBytes]
	}
	return b
}
