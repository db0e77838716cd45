package transaction

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/wire"
)

// TransactionID identifies one logical operation: the paying account, the
// start of its valid window, and optionally a nonce and the scheduled flag.
type TransactionID struct {
	AccountID  entity.AccountID
	ValidStart time.Time
	Nonce      int32
	Scheduled  bool
}

// NewTransactionID creates an id for payer starting slightly in the past, so
// that nodes with a clock behind ours accept it.
func NewTransactionID(payer entity.AccountID) TransactionID {
	backdate := 5*time.Second + time.Duration(rand.Int63n(int64(3*time.Second)))
	return NewTransactionIDWithValidStart(payer, time.Now().Add(-backdate))
}

// NewTransactionIDWithValidStart ...
func NewTransactionIDWithValidStart(payer entity.AccountID, validStart time.Time) TransactionID {
	return TransactionID{AccountID: payer, ValidStart: validStart}
}

// IsZero reports whether the id was never set.
func (id TransactionID) IsZero() bool {
	return id.AccountID.IsZero() && id.ValidStart.IsZero()
}

// Chunk returns the id of chunk i of a chain started by id: the valid start
// moves forward by i nanoseconds.
func (id TransactionID) Chunk(i int) TransactionID {
	res := id
	res.ValidStart = id.ValidStart.Add(time.Duration(i))
	return res
}

// String returns "0.0.2@1554158542.000000001", followed by "?scheduled" and
// "/nonce" when set.
func (id TransactionID) String() string {
	var sb strings.Builder

	sb.WriteString(id.AccountID.String())
	sb.WriteByte('@')
	sb.WriteString(strconv.FormatInt(id.ValidStart.Unix(), 10))
	sb.WriteByte('.')
	sb.WriteString(fmt.Sprintf("%09d", id.ValidStart.Nanosecond()))

	if id.Scheduled {
		sb.WriteString("?scheduled")
	}
	if id.Nonce != 0 {
		sb.WriteByte('/')
		sb.WriteString(strconv.FormatInt(int64(id.Nonce), 10))
	}

	return sb.String()
}

// ParseTransactionID is the inverse of String.
func ParseTransactionID(s string) (TransactionID, error) {
	var id TransactionID

	rest := s
	if i := strings.LastIndexByte(rest, '/'); i >= 0 {
		n, err := strconv.ParseInt(rest[i+1:], 10, 32)
		if err != nil {
			return id, fmt.Errorf("invalid nonce in transaction id %q: %w", s, err)
		}
		id.Nonce = int32(n)
		rest = rest[:i]
	}

	if strings.HasSuffix(rest, "?scheduled") {
		id.Scheduled = true
		rest = strings.TrimSuffix(rest, "?scheduled")
	}

	at := strings.IndexByte(rest, '@')
	if at < 0 {
		return id, fmt.Errorf("invalid transaction id %q: expected account@seconds.nanos", s)
	}

	account, err := entity.ParseID(rest[:at])
	if err != nil {
		return id, err
	}
	id.AccountID = account

	parts := strings.Split(rest[at+1:], ".")
	if len(parts) != 2 {
		return id, fmt.Errorf("invalid valid start in transaction id %q", s)
	}

	secs, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return id, fmt.Errorf("invalid valid start in transaction id %q: %w", s, err)
	}
	nanos, err := strconv.ParseInt(parts[1], 10, 32)
	if err != nil || nanos >= int64(time.Second) {
		return id, fmt.Errorf("invalid valid start in transaction id %q", s)
	}

	id.ValidStart = time.Unix(secs, nanos)

	return id, nil
}

// ToWire ...
func (id TransactionID) ToWire() wire.TransactionID {
	return wire.TransactionID{
		AccountID: id.AccountID.ToWire(),
		ValidStart: wire.Timestamp{
			Seconds: id.ValidStart.Unix(),
			Nanos:   int32(id.ValidStart.Nanosecond()),
		},
		Nonce:     id.Nonce,
		Scheduled: id.Scheduled,
	}
}

// TransactionIDFromWire ...
func TransactionIDFromWire(w wire.TransactionID) TransactionID {
	return TransactionID{
		AccountID:  entity.FromWire(w.AccountID),
		ValidStart: time.Unix(w.ValidStart.Seconds, int64(w.ValidStart.Nanos)),
		Nonce:      w.Nonce,
		Scheduled:  w.Scheduled,
	}
}

// Equal compares ids ignoring the checksum of the account and the location of
// the valid start.
func (id TransactionID) Equal(other TransactionID) bool {
	return id.AccountID.Base() == other.AccountID.Base() &&
		id.ValidStart.Equal(other.ValidStart) &&
		id.Nonce == other.Nonce &&
		id.Scheduled == other.Scheduled
}
