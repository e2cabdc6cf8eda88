package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/semmy-space/skv/internal/secrets"
	"github.com/semmy-space/skv/internal/securekv"
)

func newTestManager(profile string) (*Manager, *secrets.MemoryStore) {
	backend := secrets.NewMemoryStore()
	m := NewManager(securekv.New(backend), profile)
	m.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return m, backend
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager("")

	expiry := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	in := &Session{
		UserID: 42,
		Roles:  []string{"admin", "editor"},
		Token: &oauth2.Token{
			AccessToken:  "access",
			TokenType:    "Bearer",
			RefreshToken: "refresh",
			Expiry:       expiry,
		},
	}
	require.NoError(t, m.Save(ctx, in))
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), in.CreatedAt)

	out, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), out.UserID)
	assert.Equal(t, []string{"admin", "editor"}, out.Roles)
	require.NotNil(t, out.Token)
	assert.Equal(t, "access", out.Token.AccessToken)
	assert.Equal(t, "refresh", out.Token.RefreshToken)
	assert.True(t, expiry.Equal(out.Token.Expiry))
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
}

func TestLoadWithoutSession(t *testing.T) {
	m, _ := newTestManager("")

	_, err := m.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, err, securekv.ErrNotFound)
}

func TestLoadCorruptSession(t *testing.T) {
	ctx := context.Background()
	m, backend := newTestManager("")
	require.NoError(t, backend.Set(ctx, DefaultKey, "{broken"))

	_, err := m.Load(ctx)
	assert.ErrorIs(t, err, securekv.ErrDeserialization)
	assert.False(t, errors.Is(err, ErrNoSession))
}

func TestClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager("")

	require.NoError(t, m.Save(ctx, &Session{UserID: 1}))
	require.NoError(t, m.Clear(ctx))
	require.NoError(t, m.Clear(ctx))

	_, err := m.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestProfilesUseSeparateKeys(t *testing.T) {
	ctx := context.Background()
	backend := secrets.NewMemoryStore()
	kv := securekv.New(backend)

	def := NewManager(kv, "")
	staging := NewManager(kv, "staging")
	assert.Equal(t, "session", def.Key())
	assert.Equal(t, "session_staging", staging.Key())

	require.NoError(t, def.Save(ctx, &Session{UserID: 1}))
	require.NoError(t, staging.Save(ctx, &Session{UserID: 2}))

	got, err := staging.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.UserID)
}

func TestSaveNil(t *testing.T) {
	m, _ := newTestManager("")
	assert.Error(t, m.Save(context.Background(), nil))
}

func TestSessionHelpers(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		session Session
		expired bool
	}{
		{name: "no token", session: Session{}, expired: false},
		{name: "no expiry", session: Session{Token: &oauth2.Token{AccessToken: "a"}}, expired: false},
		{name: "future expiry", session: Session{Token: &oauth2.Token{Expiry: now.Add(time.Minute)}}, expired: false},
		{name: "past expiry", session: Session{Token: &oauth2.Token{Expiry: now.Add(-time.Minute)}}, expired: true},
		{name: "expires now", session: Session{Token: &oauth2.Token{Expiry: now}}, expired: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, tt.session.Expired(now))
		})
	}

	s := Session{Roles: []string{"student", "editor"}}
	assert.True(t, s.HasRole("editor"))
	assert.False(t, s.HasRole("admin"))
}
