// Package session holds the authentication context the engine reads as a
// gate: the bearer token, the account identity derived from it and whether
// it is still usable. The token is persisted in the metadata table so it
// survives restarts. Only login and logout mutate a Session.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/agriai/agrisync/internal/client/repositories/metadata"
	"github.com/agriai/agrisync/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// TokenKey is the metadata key holding the bearer token.
const TokenKey = "auth_token"

// Info is a point-in-time view of the session.
type Info struct {
	Identity      string
	ExpiresAt     time.Time
	Authenticated bool
}

// Session implements client.TokenSource. It is safe for concurrent use.
type Session struct {
	mu        sync.RWMutex
	repo      metadata.Repository
	now       func() time.Time
	token     string
	identity  string
	expiresAt time.Time
}

// Option customizes a Session.
type Option func(*Session)

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Load restores the persisted token, if any.
func Load(ctx context.Context, repo metadata.Repository, opts ...Option) (*Session, error) {
	s := &Session{repo: repo, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	raw, err := repo.Get(ctx, TokenKey)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	s.set(string(raw))
	return s, nil
}

// Login stores token as the current credential.
func (s *Session) Login(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token is empty", common.ErrInvalidRequest)
	}
	if err := s.repo.Set(ctx, TokenKey, []byte(token)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(token)
	return nil
}

// Logout forgets the token. It does not touch diagnosis records; callers
// that want a privacy wipe clear the store themselves.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.repo.Delete(ctx, TokenKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set("")
	return nil
}

// Token returns the bearer token, or "" when signed out or expired.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.authenticatedLocked() {
		return ""
	}
	return s.token
}

// Identity is the account identity used to key cached views. It is empty
// when signed out.
func (s *Session) Identity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.authenticatedLocked() {
		return ""
	}
	return s.identity
}

// Authenticated reports whether a token is present and not past its expiry.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticatedLocked()
}

// Info returns a snapshot for display.
func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Info{
		Identity:      s.identity,
		ExpiresAt:     s.expiresAt,
		Authenticated: s.authenticatedLocked(),
	}
}

func (s *Session) authenticatedLocked() bool {
	if s.token == "" {
		return false
	}
	return s.expiresAt.IsZero() || s.now().Before(s.expiresAt)
}

// set must be called with mu held (or before the session is shared).
func (s *Session) set(token string) {
	s.token = token
	s.identity, s.expiresAt = "", time.Time{}
	if token != "" {
		s.identity, s.expiresAt = Describe(token)
	}
}

// Describe derives the account identity and expiry from token. JWTs are
// parsed without verification (the server verifies them) and identified by
// their subject; opaque tokens are identified by a fingerprint.
func Describe(token string) (identity string, expiresAt time.Time) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			expiresAt = exp.UTC()
		}
		if sub, err := claims.GetSubject(); err == nil && sub != "" {
			return "sub:" + sub, expiresAt
		}
	}
	sum := sha256.Sum256([]byte(token))
	return "token:" + hex.EncodeToString(sum[:6]), expiresAt
}
