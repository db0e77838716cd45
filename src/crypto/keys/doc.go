// Package keys implements the keys that sign ledger transactions.
//
// Two schemes are supported: Ed25519 and ECDSA over the secp256k1 curve. The
// secp256k1 scheme signs the Keccak-256 digest of the message, which means
// that Ethereum keys can be used to pay for transactions.
//
// Transactions do not need a private key in memory. Anything that can produce
// a signature for a public key, a hardware wallet or a remote signing
// service, can be wrapped in a Signer.
package keys
