package auth

import (
	"maps"

	"github.com/google/uuid"
)

// User is the application-level identity record, distinct from the Session
// that authenticates it. Preferences is a free-form bag the backend does not
// interpret (units, favorite districts, notification toggles).
type User struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	FullName    string         `json:"full_name,omitempty"`
	AvatarURL   string         `json:"avatar_url,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

// ProfileUpdate is a partial profile change. Nil pointer fields are left
// untouched; Preferences entries are merged key by key.
type ProfileUpdate struct {
	FullName    *string        `json:"full_name,omitempty"`
	AvatarURL   *string        `json:"avatar_url,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

// Clone returns a deep copy so callers can hand snapshots to subscribers
// without sharing mutable state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Preferences != nil {
		c.Preferences = make(map[string]any, len(u.Preferences))
		maps.Copy(c.Preferences, u.Preferences)
	}
	return &c
}

// Apply merges an update into a copy of the user and returns it. The
// receiver is not modified.
func (u *User) Apply(update ProfileUpdate) *User {
	c := u.Clone()
	if c == nil {
		c = &User{}
	}
	if update.FullName != nil {
		c.FullName = *update.FullName
	}
	if update.AvatarURL != nil {
		c.AvatarURL = *update.AvatarURL
	}
	if len(update.Preferences) > 0 {
		if c.Preferences == nil {
			c.Preferences = make(map[string]any, len(update.Preferences))
		}
		maps.Copy(c.Preferences, update.Preferences)
	}
	return c
}

// minimalUser builds a last-resort profile from the identity claims on the
// session. Used when the profile endpoint is unreachable and no cached
// profile exists.
func minimalUser(s *Session) *User {
	if s == nil || s.UserID == uuid.Nil {
		return nil
	}
	return &User{ID: s.UserID, Email: s.Email}
}
