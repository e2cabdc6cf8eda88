// Package session persists the course client's signed-in session as a
// structured value in the secure store.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/semmy-space/skv/internal/securekv"
)

// DefaultKey is the store key of the default profile's session.
const DefaultKey = "session"

// ErrNoSession is returned when no session is stored. It wraps securekv.ErrNotFound.
var ErrNoSession = fmt.Errorf("no stored session: %w", securekv.ErrNotFound)

// Session is the signed-in user and their OAuth2 token.
type Session struct {
	UserID    int64         `json:"userId"`
	Roles     []string      `json:"roles"`
	Token     *oauth2.Token `json:"token,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// HasRole reports whether the user holds role.
func (s *Session) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Expired reports whether the access token has expired at now.
// A session without a token or without an expiry never expires.
func (s *Session) Expired(now time.Time) bool {
	if s.Token == nil || s.Token.Expiry.IsZero() {
		return false
	}
	return !now.Before(s.Token.Expiry)
}

// Manager saves and loads one profile's session.
type Manager struct {
	kv  *securekv.Store
	key string
	now func() time.Time
}

// KeyFor returns the store key for profile; the empty profile is the default.
func KeyFor(profile string) string {
	if profile == "" {
		return DefaultKey
	}
	return DefaultKey + "_" + profile
}

// NewManager creates a Manager for profile.
func NewManager(kv *securekv.Store, profile string) *Manager {
	return &Manager{kv: kv, key: KeyFor(profile), now: time.Now}
}

// Key returns the store key this manager uses.
func (m *Manager) Key() string {
	return m.key
}

// Save stores s, stamping CreatedAt if unset.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	if s == nil {
		return errors.New("session must not be nil")
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = m.now().UTC()
	}
	if err := m.kv.StoreObject(ctx, m.key, s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load returns the stored session, or ErrNoSession.
func (m *Manager) Load(ctx context.Context) (*Session, error) {
	s, err := securekv.GetObject[Session](ctx, m.kv, m.key)
	if err != nil {
		if errors.Is(err, securekv.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &s, nil
}

// Clear removes the stored session. Clearing an absent session succeeds.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.kv.RemoveValue(ctx, m.key); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
