package dto

import "time"

// AuthRequest describes email/password payload.
type AuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse describes the caller's session. Token is only present
// right after it is issued.
type SessionResponse struct {
	Token     string     `json:"token,omitempty"`
	State     string     `json:"state"`
	UserID    string     `json:"user_id,omitempty"`
	Method    string     `json:"method,omitempty"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ErrorResponse carries a stable machine-readable error code.
type ErrorResponse struct {
	Error string `json:"error"`
}
