package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/semmy-space/skv/internal/output"
	"github.com/semmy-space/skv/internal/session"
)

// SessionShowCmd implements the session show command
type SessionShowCmd struct {
	Profile string `help:"Session profile (default profile if empty)"`
}

// sessionView is the printable form of a session; tokens are masked.
type sessionView struct {
	Key          string   `json:"key"`
	UserID       int64    `json:"userId"`
	Roles        []string `json:"roles"`
	AccessToken  string   `json:"accessToken,omitempty"`
	RefreshToken string   `json:"refreshToken,omitempty"`
	Expires      string   `json:"expires"`
	Expired      string   `json:"expired"`
	Created      string   `json:"created"`
}

// Run executes the session show command
func (cmd *SessionShowCmd) Run(sp *StoreProvider, fp *FormatterProvider) error {
	kv, err := sp.Store()
	if err != nil {
		return err
	}

	mgr := session.NewManager(kv, cmd.Profile)
	s, err := mgr.Load(context.Background())
	if err != nil {
		return output.FromError(err)
	}

	now := time.Now()
	view := sessionView{
		Key:     mgr.Key(),
		UserID:  s.UserID,
		Roles:   s.Roles,
		Expires: "never",
		Expired: formatBool(s.Expired(now)),
		Created: s.CreatedAt.Format(time.RFC3339),
	}
	if s.Token != nil {
		view.AccessToken = maskSecret(s.Token.AccessToken)
		view.RefreshToken = maskSecret(s.Token.RefreshToken)
		view.Expires = formatExpiry(s.Token.Expiry, now)
	}

	return fp.Formatter.Print(view)
}

// SessionSaveCmd implements the session save command
type SessionSaveCmd struct {
	Profile      string        `help:"Session profile (default profile if empty)"`
	UserID       int64         `name:"user-id" required:"" help:"Signed-in user ID"`
	Role         []string      `help:"Role held by the user (repeatable)"`
	AccessToken  string        `help:"OAuth2 access token" env:"SKV_ACCESS_TOKEN"`
	RefreshToken string        `help:"OAuth2 refresh token" env:"SKV_REFRESH_TOKEN"`
	ExpiresIn    time.Duration `help:"Access token lifetime, e.g. 1h"`
}

// Run executes the session save command
func (cmd *SessionSaveCmd) Run(sp *StoreProvider, fp *FormatterProvider) error {
	if cmd.ExpiresIn < 0 {
		return output.NewCLIError(output.ExitUsage, "--expires-in must not be negative")
	}

	s := &session.Session{
		UserID: cmd.UserID,
		Roles:  normalizeRoles(cmd.Role),
	}
	if cmd.AccessToken != "" || cmd.RefreshToken != "" {
		s.Token = &oauth2.Token{
			AccessToken:  cmd.AccessToken,
			RefreshToken: cmd.RefreshToken,
			TokenType:    "Bearer",
		}
		if cmd.ExpiresIn > 0 {
			s.Token.Expiry = time.Now().Add(cmd.ExpiresIn).UTC()
		}
	}

	kv, err := sp.Store()
	if err != nil {
		return err
	}

	mgr := session.NewManager(kv, cmd.Profile)
	if err := mgr.Save(context.Background(), s); err != nil {
		return output.FromError(err)
	}

	fp.Formatter.PrintHint(fmt.Sprintf("session saved under %s", mgr.Key()))
	return nil
}

// normalizeRoles trims roles, drops empties and splits comma lists
func normalizeRoles(in []string) []string {
	roles := []string{}
	for _, r := range in {
		for _, part := range strings.Split(r, ",") {
			if part = strings.TrimSpace(part); part != "" {
				roles = append(roles, part)
			}
		}
	}
	return roles
}

// SessionClearCmd implements the session clear command
type SessionClearCmd struct {
	Profile string `help:"Session profile (default profile if empty)"`
}

// Run executes the session clear command
func (cmd *SessionClearCmd) Run(sp *StoreProvider, fp *FormatterProvider) error {
	kv, err := sp.Store()
	if err != nil {
		return err
	}

	mgr := session.NewManager(kv, cmd.Profile)
	if err := mgr.Clear(context.Background()); err != nil {
		return output.FromError(err)
	}

	fp.Formatter.PrintHint("session cleared")
	return nil
}
