package auth

import (
	"time"

	"github.com/google/uuid"
)

// Session is the bearer credential issued by the identity provider. A
// session is valid only as a whole: both tokens and the expiry must be
// present, partial sessions are rejected everywhere.
//
// UserID and Email are identity claims carried alongside the tokens. They
// let the manager synthesize a minimal profile when the profile endpoint is
// unreachable.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    int64     `json:"expires_at"` // epoch seconds
	UserID       uuid.UUID `json:"user_id,omitempty"`
	Email        string    `json:"email,omitempty"`
}

// Valid reports whether the session is entirely present.
func (s *Session) Valid() bool {
	return s != nil && s.AccessToken != "" && s.RefreshToken != "" && s.ExpiresAt > 0
}

// Expired reports whether the session's expiry has passed at now.
func (s *Session) Expired(now time.Time) bool {
	return s != nil && now.Unix() >= s.ExpiresAt
}

// ExpiresWithin reports whether the session expires within d of now.
// Expired sessions trivially satisfy it.
func (s *Session) ExpiresWithin(now time.Time, d time.Duration) bool {
	return s != nil && now.Add(d).Unix() >= s.ExpiresAt
}

// RecoverableAt reports whether a stored session may still be adopted at
// now: either it has not expired, or it expired within the grace window.
// The grace window bridges brief backend unavailability so a restart during
// an outage does not log the user out.
func (s *Session) RecoverableAt(now time.Time, grace time.Duration) bool {
	if !s.Valid() {
		return false
	}
	if !s.Expired(now) {
		return true
	}
	return now.Sub(time.Unix(s.ExpiresAt, 0)) <= grace
}
