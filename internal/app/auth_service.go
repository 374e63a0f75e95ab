package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"myapp-api/internal/model"
	"myapp-api/internal/pkg/jwtutil"
)

const TokenTypeBearer = "bearer"

// AccountLookup is the part of the account store the resolver and login flow
// depend on. A nil user with a nil error means no such account.
type AccountLookup interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

type TokenCodec interface {
	Issue(subject string, ttl time.Duration) (string, error)
	Decode(token string) (*jwtutil.Claims, error)
}

// AccountCache holds resolved accounts keyed by email. Cached users carry no
// password hash. Set never overwrites an entry, and Invalidate leaves a
// tombstone that keeps Set out until the entry ttl passes.
type AccountCache interface {
	Get(ctx context.Context, email string) (*model.User, bool, error)
	Set(ctx context.Context, user *model.User) (bool, error)
	Invalidate(ctx context.Context, emails ...string) error
}

type AuthService struct {
	accounts AccountLookup
	cache    AccountCache
	hasher   PasswordHasher
	codec    TokenCodec
	tokenTTL time.Duration
	logger   *slog.Logger
}

type TokenResult struct {
	AccessToken string
	TokenType   string
	User        *model.User
}

// NewAuthService wires the login flow and the identity resolver. cache may be
// nil.
func NewAuthService(
	accounts AccountLookup,
	cache AccountCache,
	hasher PasswordHasher,
	codec TokenCodec,
	tokenTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		accounts: accounts,
		cache:    cache,
		hasher:   hasher,
		codec:    codec,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// Login checks email and password and issues an access token whose subject
// is the account email. Unknown email and wrong password both yield
// ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.logger.DebugContext(ctx, "login rejected", "reason", "unknown email")
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, user.HashedPassword) {
		s.logger.DebugContext(ctx, "login rejected", "reason", "password mismatch", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	token, err := s.codec.Issue(user.Email, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &TokenResult{AccessToken: token, TokenType: TokenTypeBearer, User: user}, nil
}

// Resolve maps a bearer token to its account. Decode failures and unknown
// subjects both yield ErrInvalidCredentials; store failures are returned
// as-is.
func (s *AuthService) Resolve(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		s.logger.DebugContext(ctx, "token rejected", "reason", "decode failed")
		return nil, ErrInvalidCredentials
	}

	user, err := s.lookup(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.logger.DebugContext(ctx, "token rejected", "reason", "unknown subject")
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Authenticate is Resolve followed by RequireActive.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	user, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	return RequireActive(user)
}

// RequireActive passes user through unless its account is disabled.
func RequireActive(user *model.User) (*model.User, error) {
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactiveAccount
	}
	return user, nil
}

func (s *AuthService) lookup(ctx context.Context, email string) (*model.User, error) {
	if s.cache != nil {
		cached, hit, err := s.cache.Get(ctx, email)
		if err != nil {
			s.logger.WarnContext(ctx, "account cache get failed", "error", err)
		} else if hit {
			return cached, nil
		}
	}

	user, err := s.accounts.GetByEmail(ctx, email)
	if err != nil || user == nil {
		return user, err
	}

	if s.cache != nil {
		if _, err := s.cache.Set(ctx, user); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.WarnContext(ctx, "account cache set failed", "error", err)
		}
	}
	return user, nil
}
