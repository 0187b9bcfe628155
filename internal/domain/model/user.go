package model

import (
	"time"

	"github.com/google/uuid"
)

// AuthMethod tells how a user proved their identity.
type AuthMethod string

const (
	AuthMethodCredential AuthMethod = "credential"
	AuthMethodWallet     AuthMethod = "wallet"
)

// User represents a lending platform participant.
type User struct {
	ID            uuid.UUID
	Method        AuthMethod
	Email         string
	PasswordHash  string
	WalletAddress string
	CreatedAt     time.Time
}
