package entity

import (
	"bytes"
	"encoding/hex"
)

// LedgerID identifies a network. It is mixed into entity checksums so that an
// id copied from one network is rejected by another.
type LedgerID []byte

// Well-known networks.
var (
	Mainnet    = LedgerID{0x00}
	Testnet    = LedgerID{0x01}
	Previewnet = LedgerID{0x02}
	LocalNode  = LedgerID{0x03}
)

var ledgerNames = map[string]LedgerID{
	"mainnet":    Mainnet,
	"testnet":    Testnet,
	"previewnet": Previewnet,
	"local-node": LocalNode,
}

// LedgerIDForName returns the ledger id of a named network. Names that are not
// well known use their own UTF-8 bytes.
func LedgerIDForName(name string) LedgerID {
	if id, ok := ledgerNames[name]; ok {
		return id
	}
	return LedgerID(name)
}

// Equal ...
func (l LedgerID) Equal(other LedgerID) bool {
	return bytes.Equal(l, other)
}

// Name returns the network name if l is well known.
func (l LedgerID) Name() (string, bool) {
	for name, id := range ledgerNames {
		if bytes.Equal(id, l) {
			return name, true
		}
	}
	return "", false
}

func (l LedgerID) String() string {
	if name, ok := l.Name(); ok {
		return name
	}
	return hex.EncodeToString(l)
}
