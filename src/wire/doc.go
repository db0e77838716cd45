// Package wire defines the messages exchanged with ledger nodes and the codec
// used to serialize them.
//
// Messages are encoded with a canonical msgpack handle so that the same value
// always produces the same bytes. This matters for transaction bodies, whose
// exact bytes are what gets signed. Kind-specific payloads travel as opaque
// byte slices next to a string discriminator, and responses keep the bytes
// they were decoded from.
package wire
