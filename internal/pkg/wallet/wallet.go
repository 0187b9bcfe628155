// Package wallet defines the signer capability used to prove wallet ownership.
package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Provider failures. Implementations return these so the caller can tell them apart.
var (
	ErrUserRejected = errors.New("signature request rejected")
	ErrUnavailable  = errors.New("wallet unavailable")
)

// AddressPrefix marks addresses derived by DeriveAddress.
const AddressPrefix = "bl1"

const (
	addressHashSize = 20
	ChallengeSize   = 32
)

// Signature is a provider's answer to a challenge.
type Signature struct {
	PublicKey []byte
	Sig       []byte
}

// Provider is an external signer holding the wallet key.
type Provider interface {
	Address(ctx context.Context) (string, error)
	RequestSignature(ctx context.Context, address string, challenge []byte) (Signature, error)
}

// DeriveAddress returns the address controlled by an ed25519 public key.
func DeriveAddress(pub ed25519.PublicKey) (string, error) {
	h, err := blake2b.New(addressHashSize, nil)
	if err != nil {
		return "", fmt.Errorf("init address hash: %w", err)
	}
	h.Write(pub)
	return AddressPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

// NewChallenge returns fresh random bytes for a provider to sign.
func NewChallenge() ([]byte, error) {
	challenge := make([]byte, ChallengeSize)
	if _, err := rand.Read(challenge); err != nil {
		return nil, fmt.Errorf("generate challenge: %w", err)
	}
	return challenge, nil
}

// Verify checks that sig was produced over challenge by the key behind address.
func Verify(address string, challenge []byte, sig Signature) bool {
	if !strings.HasPrefix(address, AddressPrefix) || len(sig.PublicKey) != ed25519.PublicKeySize {
		return false
	}
	derived, err := DeriveAddress(ed25519.PublicKey(sig.PublicKey))
	if err != nil || derived != strings.ToLower(address) {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(sig.PublicKey), challenge, sig.Sig)
}
