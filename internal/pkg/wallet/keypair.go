package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// KeyPairProvider signs challenges with an in-process key. Used by tests and
// local tooling in place of a real wallet.
type KeyPairProvider struct {
	priv    ed25519.PrivateKey
	address string
}

// NewKeyPairProvider generates a fresh key.
func NewKeyPairProvider() (*KeyPairProvider, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	address, err := DeriveAddress(pub)
	if err != nil {
		return nil, err
	}
	return &KeyPairProvider{priv: priv, address: address}, nil
}

func (p *KeyPairProvider) Address(context.Context) (string, error) {
	return p.address, nil
}

func (p *KeyPairProvider) RequestSignature(_ context.Context, address string, challenge []byte) (Signature, error) {
	if address != p.address {
		return Signature{}, fmt.Errorf("unknown address %s: %w", address, ErrUnavailable)
	}
	return Signature{
		PublicKey: p.priv.Public().(ed25519.PublicKey),
		Sig:       ed25519.Sign(p.priv, challenge),
	}, nil
}
