package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the lifecycle position of a session.
type SessionState string

const (
	SessionUnauthenticated SessionState = "unauthenticated"
	SessionPending         SessionState = "pending"
	SessionAuthenticated   SessionState = "authenticated"
	SessionExpired         SessionState = "expired"
	SessionRevoked         SessionState = "revoked"
)

// Session is a time-bounded proof of authenticated identity.
type Session struct {
	ID        uuid.UUID
	Token     string
	UserID    uuid.UUID
	Method    AuthMethod
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// State derives the observable state of the session at now.
func (s Session) State(now time.Time) SessionState {
	if s.Expired(now) {
		return SessionExpired
	}
	return SessionAuthenticated
}
