package query

import (
	"time"

	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/wire"
)

// AccountBalance is the answer to an account balance query.
type AccountBalance struct {
	AccountID entity.AccountID
	Balance   uint64
}

// AccountBalanceBody asks for the balance of an account. It is free.
type AccountBalanceBody struct {
	AccountID entity.AccountID
}

// NewAccountBalanceQuery ...
func NewAccountBalanceQuery(account entity.AccountID) *Query[AccountBalance] {
	return New[AccountBalance](&AccountBalanceBody{AccountID: account}, decodeAccountBalance)
}

// Kind implements Body.
func (b *AccountBalanceBody) Kind() string { return wire.KindAccountBalance }

// Method implements Body.
func (b *AccountBalanceBody) Method() string { return wire.MethodCryptoGetBalance }

// Encode implements Body.
func (b *AccountBalanceBody) Encode() ([]byte, error) {
	return wire.Marshal(&wire.AccountBalanceQuery{AccountID: b.AccountID.ToWire()})
}

// Entities implements Body.
func (b *AccountBalanceBody) Entities() []entity.ID { return []entity.ID{b.AccountID} }

// PaymentRequired implements Body.
func (b *AccountBalanceBody) PaymentRequired() bool { return false }

func decodeAccountBalance(resp *wire.Response) (AccountBalance, error) {
	var r wire.AccountBalanceResponse
	if err := wire.Unmarshal(resp.Data, &r); err != nil {
		return AccountBalance{}, err
	}
	return AccountBalance{
		AccountID: entity.FromWire(r.AccountID),
		Balance:   r.Balance,
	}, nil
}

// AccountInfo is the answer to an account info query.
type AccountInfo struct {
	AccountID      entity.AccountID
	Key            []byte
	Balance        uint64
	Memo           string
	ExpirationTime time.Time
	Deleted        bool
}

// AccountInfoBody asks for the details of an account. It must be paid for.
type AccountInfoBody struct {
	AccountID entity.AccountID
}

// NewAccountInfoQuery ...
func NewAccountInfoQuery(account entity.AccountID) *Query[AccountInfo] {
	return New[AccountInfo](&AccountInfoBody{AccountID: account}, decodeAccountInfo)
}

// Kind implements Body.
func (b *AccountInfoBody) Kind() string { return wire.KindAccountInfo }

// Method implements Body.
func (b *AccountInfoBody) Method() string { return wire.MethodGetAccountInfo }

// Encode implements Body.
func (b *AccountInfoBody) Encode() ([]byte, error) {
	return wire.Marshal(&wire.AccountInfoQuery{AccountID: b.AccountID.ToWire()})
}

// Entities implements Body.
func (b *AccountInfoBody) Entities() []entity.ID { return []entity.ID{b.AccountID} }

// PaymentRequired implements Body.
func (b *AccountInfoBody) PaymentRequired() bool { return true }

func decodeAccountInfo(resp *wire.Response) (AccountInfo, error) {
	var r wire.AccountInfoResponse
	if err := wire.Unmarshal(resp.Data, &r); err != nil {
		return AccountInfo{}, err
	}
	return AccountInfo{
		AccountID:      entity.FromWire(r.AccountID),
		Key:            r.Key,
		Balance:        r.Balance,
		Memo:           r.Memo,
		ExpirationTime: time.Unix(r.ExpirationTime.Seconds, int64(r.ExpirationTime.Nanos)),
		Deleted:        r.Deleted,
	}, nil
}
