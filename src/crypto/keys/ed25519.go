package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Ed25519PrivateKey ...
type Ed25519PrivateKey struct {
	key ed25519.PrivateKey
}

// Ed25519PublicKey ...
type Ed25519PublicKey struct {
	key ed25519.PublicKey
}

// GenerateEd25519Key creates a new random Ed25519 key.
func GenerateEd25519Key() (*Ed25519PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Ed25519PrivateKey{key: priv}, nil
}

// ParseEd25519Key accepts either the 32 byte seed or the 64 byte expanded
// private key.
func ParseEd25519Key(raw []byte) (*Ed25519PrivateKey, error) {
	switch len(raw) {
	case ed25519.SeedSize:
		return &Ed25519PrivateKey{key: ed25519.NewKeyFromSeed(raw)}, nil
	case ed25519.PrivateKeySize:
		return &Ed25519PrivateKey{key: ed25519.PrivateKey(append([]byte(nil), raw...))}, nil
	}
	return nil, fmt.Errorf("invalid ed25519 private key length %d", len(raw))
}

// ParseEd25519PublicKey ...
func ParseEd25519PublicKey(raw []byte) (*Ed25519PublicKey, error) {
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid ed25519 public key length %d", len(raw))
	}
	return &Ed25519PublicKey{key: ed25519.PublicKey(append([]byte(nil), raw...))}, nil
}

// Type ...
func (k *Ed25519PrivateKey) Type() KeyType { return Ed25519 }

// Bytes returns the 32 byte seed.
func (k *Ed25519PrivateKey) Bytes() []byte {
	return k.key.Seed()
}

// PublicKey ...
func (k *Ed25519PrivateKey) PublicKey() PublicKey {
	return &Ed25519PublicKey{key: k.key.Public().(ed25519.PublicKey)}
}

// Sign ...
func (k *Ed25519PrivateKey) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(k.key, message), nil
}

// Type ...
func (k *Ed25519PublicKey) Type() KeyType { return Ed25519 }

// Bytes ...
func (k *Ed25519PublicKey) Bytes() []byte {
	return append([]byte(nil), k.key...)
}

// Verify ...
func (k *Ed25519PublicKey) Verify(message, signature []byte) bool {
	return ed25519.Verify(k.key, message, signature)
}

func (k *Ed25519PublicKey) String() string {
	return hex.EncodeToString(k.key)
}
