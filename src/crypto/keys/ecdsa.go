package keys

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec"
	"github.com/mosaicnetworks/hgclient/src/crypto"
)

/*
ECDSA keys use btcsuite's golang implementation of secp256k1. Signatures are
deterministic (RFC6979) and serialized as the 64 byte concatenation of r and s.
*/

var secp256k1N = btcec.S256().N

// ECDSAPrivateKey ...
type ECDSAPrivateKey struct {
	key *btcec.PrivateKey
}

// ECDSAPublicKey ...
type ECDSAPublicKey struct {
	key *btcec.PublicKey
}

// GenerateECDSAKey creates a new random secp256k1 key.
func GenerateECDSAKey() (*ECDSAPrivateKey, error) {
	priv, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return nil, err
	}
	return &ECDSAPrivateKey{key: priv}, nil
}

// ParseECDSAKey creates a private key with the given D value.
func ParseECDSAKey(d []byte) (*ECDSAPrivateKey, error) {
	if len(d) != 32 {
		return nil, fmt.Errorf("invalid length, need 256 bits")
	}

	k := new(big.Int).SetBytes(d)
	if k.Sign() <= 0 || k.Cmp(secp256k1N) >= 0 {
		return nil, errors.New("invalid private key, out of curve range")
	}

	priv, _ := btcec.PrivKeyFromBytes(btcec.S256(), d)

	return &ECDSAPrivateKey{key: priv}, nil
}

// ParseECDSAPublicKey accepts compressed or uncompressed points.
func ParseECDSAPublicKey(raw []byte) (*ECDSAPublicKey, error) {
	pub, err := btcec.ParsePubKey(raw, btcec.S256())
	if err != nil {
		return nil, err
	}
	return &ECDSAPublicKey{key: pub}, nil
}

// Type ...
func (k *ECDSAPrivateKey) Type() KeyType { return ECDSASecp256k1 }

// Bytes returns the 32 byte D value.
func (k *ECDSAPrivateKey) Bytes() []byte {
	return paddedBigBytes(k.key.D, 32)
}

// PublicKey ...
func (k *ECDSAPrivateKey) PublicKey() PublicKey {
	return &ECDSAPublicKey{key: k.key.PubKey()}
}

// ToECDSA exposes the standard library form of the key.
func (k *ECDSAPrivateKey) ToECDSA() *ecdsa.PrivateKey {
	return k.key.ToECDSA()
}

// Sign signs the Keccak-256 digest of message.
func (k *ECDSAPrivateKey) Sign(message []byte) ([]byte, error) {
	sig, err := k.key.Sign(crypto.Keccak256(message))
	if err != nil {
		return nil, err
	}

	out := make([]byte, 64)
	copy(out[:32], paddedBigBytes(sig.R, 32))
	copy(out[32:], paddedBigBytes(sig.S, 32))

	return out, nil
}

// Type ...
func (k *ECDSAPublicKey) Type() KeyType { return ECDSASecp256k1 }

// Bytes returns the 33 byte compressed point.
func (k *ECDSAPublicKey) Bytes() []byte {
	return k.key.SerializeCompressed()
}

// Verify checks a 64 byte r||s signature of the Keccak-256 digest of message.
func (k *ECDSAPublicKey) Verify(message, signature []byte) bool {
	if len(signature) != 64 {
		return false
	}

	sig := &btcec.Signature{
		R: new(big.Int).SetBytes(signature[:32]),
		S: new(big.Int).SetBytes(signature[32:]),
	}

	return sig.Verify(crypto.Keccak256(message), k.key)
}

func (k *ECDSAPublicKey) String() string {
	return hex.EncodeToString(k.Bytes())
}

// paddedBigBytes encodes a big integer as a big-endian byte slice. The length
// of the slice is at least n bytes.
func paddedBigBytes(bigint *big.Int, n int) []byte {
	b := bigint.Bytes()
	if len(b) >= n {
		return b
	}
	ret := make([]byte, n)
	copy(ret[n-len(b):], b)
	return ret
}
