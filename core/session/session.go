// Package session holds the authenticated client state (tokens and profile)
// and persists it to a core.Store.
package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"k8s.io/utils/clock"

	"github.com/kohkiet/swp-lms/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidToken     = errors.New("invalid access token")
)

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

type Profile struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

func (p Profile) IsAdmin() bool {
	return strings.EqualFold(p.Role, RoleAdmin)
}

// DisplayName returns the full name, falling back to the email.
func (p Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.Email
}

// Session is safe for concurrent use. It is the apiclient.TokenSource of every service.
type Session struct {
	store core.Store
	clock clock.PassiveClock

	mu        sync.RWMutex
	tokens    Tokens
	profile   Profile
	expiresAt time.Time
}

func New(store core.Store, clk clock.PassiveClock) *Session {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Session{store: store, clock: clk}
}

// Init starts a session from freshly issued tokens and persists it.
// prof overrides the profile read from the token claims when the backend returns one.
func (s *Session) Init(ctx context.Context, tokens Tokens, prof ...Profile) error {
	claimed, exp, err := parseClaims(tokens.AccessToken)
	if err != nil {
		return err
	}
	if len(prof) > 0 {
		claimed = mergeProfile(claimed, prof[0])
	}

	profJSON, err := json.Marshal(claimed)
	if err != nil {
		return errors.Wrap(err, "encoding profile")
	}
	if err := s.store.Set(ctx, core.KeyAccessToken, []byte(tokens.AccessToken)); err != nil {
		return errors.Wrap(err, "storing access token")
	}
	if tokens.RefreshToken != "" {
		if err := s.store.Set(ctx, core.KeyRefreshToken, []byte(tokens.RefreshToken)); err != nil {
			return errors.Wrap(err, "storing refresh token")
		}
	} else if err := s.store.Delete(ctx, core.KeyRefreshToken); err != nil {
		return errors.Wrap(err, "deleting refresh token")
	}
	if err := s.store.Set(ctx, core.KeyProfile, profJSON); err != nil {
		return errors.Wrap(err, "storing profile")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens, s.profile, s.expiresAt = tokens, claimed, exp
	return nil
}

// Load rehydrates the session from the store.
// A missing access token leaves the session anonymous and is not an error.
func (s *Session) Load(ctx context.Context) error {
	access, err := s.store.Get(ctx, core.KeyAccessToken)
	if err != nil {
		if errors.Is(err, core.ErrKeyNotFound) {
			s.reset()
			return nil
		}
		return errors.Wrap(err, "loading access token")
	}
	refresh, err := s.store.Get(ctx, core.KeyRefreshToken)
	if err != nil && !errors.Is(err, core.ErrKeyNotFound) {
		return errors.Wrap(err, "loading refresh token")
	}

	prof, exp, err := parseClaims(string(access))
	if err != nil {
		// unreadable token: forget it
		return s.Clear(ctx)
	}
	if raw, err := s.store.Get(ctx, core.KeyProfile); err == nil {
		var stored Profile
		if err := json.Unmarshal(raw, &stored); err == nil {
			prof = mergeProfile(prof, stored)
		}
	} else if !errors.Is(err, core.ErrKeyNotFound) {
		return errors.Wrap(err, "loading profile")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = Tokens{AccessToken: string(access), RefreshToken: string(refresh)}
	s.profile, s.expiresAt = prof, exp
	return nil
}

// Clear forgets the session, in memory and in the store.
func (s *Session) Clear(ctx context.Context) error {
	s.reset()
	if err := s.store.Delete(ctx, core.KeyAccessToken, core.KeyRefreshToken, core.KeyProfile); err != nil {
		return errors.Wrap(err, "clearing session")
	}
	return nil
}

// ClearExpired clears the session if its token has expired and reports whether it did.
func (s *Session) ClearExpired(ctx context.Context) (bool, error) {
	if !s.Expired() {
		return false, nil
	}
	return true, s.Clear(ctx)
}

func (s *Session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens, s.profile, s.expiresAt = Tokens{}, Profile{}, time.Time{}
}

// Token returns the access token, or "" when there is none or it has expired.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.expiredLocked() {
		return ""
	}
	return s.tokens.AccessToken
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.RefreshToken
}

func (s *Session) Profile() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// ExpiresAt is zero when the token carries no expiry.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

func (s *Session) IsAdmin() bool {
	return s.IsAuthenticated() && s.Profile().IsAdmin()
}

// Expired reports whether a token is held but no longer valid.
func (s *Session) Expired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.AccessToken != "" && s.expiredLocked()
}

func (s *Session) expiredLocked() bool {
	return !s.expiresAt.IsZero() && !s.clock.Now().Before(s.expiresAt)
}

func mergeProfile(base, override Profile) Profile {
	if override.UserID != "" {
		base.UserID = override.UserID
	}
	if override.Email != "" {
		base.Email = override.Email
	}
	if override.FullName != "" {
		base.FullName = override.FullName
	}
	if override.Role != "" {
		base.Role = strings.ToLower(override.Role)
	}
	return base
}
