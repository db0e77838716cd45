package crypto

import (
	"crypto/sha512"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// SHA384 returns the SHA-384 hash of the data. Ledger transaction hashes and
// node certificate hashes use it.
func SHA384(data []byte) []byte {
	hash := sha512.Sum384(data)
	return hash[:]
}

// Keccak256 returns the legacy Keccak-256 hash of the data, the digest signed
// by secp256k1 keys.
func Keccak256(data []byte) []byte {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(data)
	return hasher.Sum(nil)
}

// CertificateHash returns the hex encoded SHA-384 hash of a PEM certificate,
// the form published in node address books.
func CertificateHash(pem []byte) string {
	return hex.EncodeToString(SHA384(pem))
}
