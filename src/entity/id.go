package entity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mosaicnetworks/hgclient/src/common"
	"github.com/mosaicnetworks/hgclient/src/wire"
)

// ID identifies an account, file, topic or any other ledger entity. It may
// carry the checksum it was parsed with. Use Base when the id is a map key.
type ID struct {
	Shard uint64
	Realm uint64
	Num   uint64

	checksum string
}

// Aliases used where the kind of entity helps the reader.
type (
	AccountID = ID
	FileID    = ID
	TopicID   = ID
)

// NewID ...
func NewID(shard, realm, num uint64) ID {
	return ID{Shard: shard, Realm: realm, Num: num}
}

// ParseID parses "shard.realm.num" with an optional "-checksum" suffix.
func ParseID(s string) (ID, error) {
	base, cs := s, ""
	if i := strings.IndexByte(s, '-'); i >= 0 {
		base, cs = s[:i], s[i+1:]
		if !validChecksumSyntax(cs) {
			return ID{}, fmt.Errorf("invalid checksum %q in entity id %q", cs, s)
		}
	}

	parts := strings.Split(base, ".")
	if len(parts) != 3 {
		return ID{}, fmt.Errorf("invalid entity id %q: expected shard.realm.num", s)
	}

	var nums [3]uint64
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return ID{}, fmt.Errorf("invalid entity id %q: %w", s, err)
		}
		nums[i] = n
	}

	return ID{Shard: nums[0], Realm: nums[1], Num: nums[2], checksum: cs}, nil
}

// MustParseID is ParseID that panics on error. Only meant for constants.
func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns "shard.realm.num" without checksum.
func (id ID) String() string {
	return fmt.Sprintf("%d.%d.%d", id.Shard, id.Realm, id.Num)
}

// Base returns the id stripped of its checksum.
func (id ID) Base() ID {
	return ID{Shard: id.Shard, Realm: id.Realm, Num: id.Num}
}

// IsZero ...
func (id ID) IsZero() bool {
	return id.Shard == 0 && id.Realm == 0 && id.Num == 0
}

// Checksum returns the checksum the id was parsed with, if any.
func (id ID) Checksum() string {
	return id.checksum
}

// ChecksumFor computes the checksum of id on the given ledger.
func (id ID) ChecksumFor(ledger LedgerID) string {
	return computeChecksum(ledger, id.String())
}

// StringWithChecksum returns "shard.realm.num-checksum" for the given ledger.
func (id ID) StringWithChecksum(ledger LedgerID) string {
	return id.String() + "-" + id.ChecksumFor(ledger)
}

// ValidateChecksum checks the id's checksum against the named network. An id
// without checksum is always valid.
func (id ID) ValidateChecksum(networkName string) error {
	return id.ValidateChecksumFor(LedgerIDForName(networkName))
}

// ValidateChecksumFor checks the id's checksum against a ledger id.
func (id ID) ValidateChecksumFor(ledger LedgerID) error {
	if id.checksum == "" {
		return nil
	}

	expected := id.ChecksumFor(ledger)
	if expected != id.checksum {
		return common.NewLocalErr(
			"entity",
			common.BadChecksum,
			fmt.Sprintf("%s-%s (expected %s on %s)", id, id.checksum, expected, ledger),
		)
	}

	return nil
}

// ToWire ...
func (id ID) ToWire() wire.EntityID {
	return wire.EntityID{
		Shard: int64(id.Shard),
		Realm: int64(id.Realm),
		Num:   int64(id.Num),
	}
}

// FromWire ...
func FromWire(w wire.EntityID) ID {
	return ID{Shard: uint64(w.Shard), Realm: uint64(w.Realm), Num: uint64(w.Num)}
}

// MarshalText encodes the id with its checksum, if any.
func (id ID) MarshalText() ([]byte, error) {
	if id.checksum != "" {
		return []byte(id.String() + "-" + id.checksum), nil
	}
	return []byte(id.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
