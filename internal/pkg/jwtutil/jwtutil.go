// Package jwtutil issues and decodes the signed bearer tokens handed out at
// login. Tokens carry only a subject (the account email) and an expiration.
package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned by Decode for every rejected token, whatever the
// cause: bad signature, wrong algorithm, expiry, missing subject or garbage.
var ErrInvalidToken = errors.New("invalid token")

// ErrMissingSubject is returned by Issue when no subject is given.
var ErrMissingSubject = errors.New("token subject is required")

// Claims is the token payload. Subject carries the account email.
type Claims struct {
	jwt.RegisteredClaims
}

// Codec signs and verifies access tokens with a shared secret.
type Codec struct {
	secret     []byte
	method     jwt.SigningMethod
	defaultTTL time.Duration
	now        func() time.Time
}

// Option adjusts a Codec built by NewCodec.
type Option func(*Codec)

// WithClock replaces time.Now for both expiry computation and validation.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec builds a codec signing with the named HMAC algorithm (HS256, HS384
// or HS512). defaultTTL is applied when Issue is called without a ttl.
func NewCodec(secret, algorithm string, defaultTTL time.Duration, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported jwt algorithm %q", algorithm)
	}
	if defaultTTL <= 0 {
		return nil, errors.New("jwt default ttl must be positive")
	}

	c := &Codec{
		secret:     []byte(secret),
		method:     method,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a token for subject that expires ttl from now. A non-positive
// ttl falls back to the codec's default.
func (c *Codec) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", ErrMissingSubject
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	token := jwt.NewWithClaims(c.method, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(c.now().Add(ttl)),
		},
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token failed: %w", err)
	}
	return signed, nil
}

// Decode verifies tokenString and returns its claims. The header algorithm
// must equal the configured one; there is no fallback.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// DefaultTTL is the lifetime applied when Issue receives no ttl.
func (c *Codec) DefaultTTL() time.Duration {
	return c.defaultTTL
}
