package keys

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// KeyType ...
type KeyType uint8

const (
	// Ed25519 ...
	Ed25519 KeyType = iota
	// ECDSASecp256k1 ...
	ECDSASecp256k1
)

func (t KeyType) String() string {
	switch t {
	case Ed25519:
		return "ed25519"
	case ECDSASecp256k1:
		return "ecdsa"
	default:
		return "unknown"
	}
}

// ParseKeyType is the inverse of KeyType.String.
func ParseKeyType(s string) (KeyType, error) {
	switch strings.ToLower(s) {
	case "ed25519":
		return Ed25519, nil
	case "ecdsa", "secp256k1", "ecdsa_secp256k1":
		return ECDSASecp256k1, nil
	}
	return 0, fmt.Errorf("unknown key type %q", s)
}

// Signer produces a signature of message. It is the only capability a
// transaction needs from a key holder.
type Signer func(message []byte) ([]byte, error)

// PublicKey verifies signatures.
type PublicKey interface {
	Type() KeyType
	Bytes() []byte
	Verify(message, signature []byte) bool
	String() string
}

// PrivateKey signs messages.
type PrivateKey interface {
	Type() KeyType
	Bytes() []byte
	PublicKey() PublicKey
	Sign(message []byte) ([]byte, error)
}

// SignerOf returns the Signer of a private key.
func SignerOf(key PrivateKey) Signer {
	return key.Sign
}

// GeneratePrivateKey creates a new random key of the given type.
func GeneratePrivateKey(t KeyType) (PrivateKey, error) {
	switch t {
	case Ed25519:
		return GenerateEd25519Key()
	case ECDSASecp256k1:
		return GenerateECDSAKey()
	}
	return nil, fmt.Errorf("unknown key type %d", t)
}

// ParsePrivateKey decodes the raw bytes of a private key of the given type.
func ParsePrivateKey(t KeyType, raw []byte) (PrivateKey, error) {
	switch t {
	case Ed25519:
		return ParseEd25519Key(raw)
	case ECDSASecp256k1:
		return ParseECDSAKey(raw)
	}
	return nil, fmt.Errorf("unknown key type %d", t)
}

// ParsePublicKey decodes the raw bytes of a public key of the given type.
func ParsePublicKey(t KeyType, raw []byte) (PublicKey, error) {
	switch t {
	case Ed25519:
		return ParseEd25519PublicKey(raw)
	case ECDSASecp256k1:
		return ParseECDSAPublicKey(raw)
	}
	return nil, fmt.Errorf("unknown key type %d", t)
}

// PublicKeyHex returns the hexadecimal representation of a public key.
func PublicKeyHex(pub PublicKey) string {
	return hex.EncodeToString(pub.Bytes())
}
