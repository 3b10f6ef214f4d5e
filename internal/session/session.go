// Package session decides whose board the client is looking at. A guest
// and a signed-in member differ only in the store path prefix used.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/nhle/taskboard/internal/credential"
	"github.com/nhle/taskboard/internal/model"
)

// User is a signed-in member.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session is the current identity.
type Session struct {
	Guest bool  `json:"guest"`
	User  *User `json:"user,omitempty"`
}

// Guest returns a guest session.
func Guest() Session {
	return Session{Guest: true}
}

// Member returns a session for u.
func Member(u User) Session {
	return Session{User: &u}
}

// IsMember reports whether the session belongs to a signed-in user.
func (s Session) IsMember() bool {
	return !s.Guest && s.User != nil && s.User.ID != ""
}

// Prefix returns the store path prefix for the session. Sessions without a
// usable user fall back to the guest prefix.
func (s Session) Prefix(cfg model.StoreConfig) string {
	if !s.IsMember() {
		return strings.Trim(cfg.GuestPrefix, "/")
	}
	p := strings.ReplaceAll(cfg.MemberPrefix, "{user}", url.PathEscape(s.User.ID))
	return strings.Trim(p, "/")
}

// DisplayName is what the header shows for the session.
func (s Session) DisplayName() string {
	if !s.IsMember() {
		return "Guest"
	}
	if s.User.Name != "" {
		return s.User.Name
	}
	return s.User.ID
}

// Initials returns the avatar letters for the session.
func (s Session) Initials() string {
	if !s.IsMember() {
		return "G"
	}
	return model.Initials(s.DisplayName())
}

// Manager persists the session in the credential store.
type Manager struct {
	creds *credential.Store
}

// NewManager creates a Manager.
func NewManager(creds *credential.Store) *Manager {
	return &Manager{creds: creds}
}

// Load returns the saved session, or a guest session when none is saved.
func (m *Manager) Load() (Session, error) {
	raw, err := m.creds.Get(credential.KeySession)
	if errors.Is(err, credential.ErrNotFound) {
		return Guest(), nil
	}
	if err != nil {
		return Guest(), err
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Guest(), fmt.Errorf("decoding saved session: %w", err)
	}
	if !s.IsMember() {
		return Guest(), nil
	}
	return s, nil
}

// Save stores s.
func (m *Manager) Save(s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	return m.creds.Set(credential.KeySession, string(data))
}

// Clear forgets the saved session; the next Load yields a guest.
func (m *Manager) Clear() error {
	return m.creds.Delete(credential.KeySession)
}
