package transaction

import (
	"fmt"

	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/wire"
)

// Transfer moves tinybars between accounts.
type Transfer struct {
	transfers []wire.AccountAmount
	accounts  []entity.AccountID
}

// NewTransferTransaction returns a builder for an empty transfer.
func NewTransferTransaction() *Builder[*Transfer] {
	return NewBuilder(&Transfer{})
}

// AddHbarTransfer adds amount to account. Amounts of one transfer must sum to
// zero.
func (t *Transfer) AddHbarTransfer(account entity.AccountID, amount int64) *Transfer {
	t.transfers = append(t.transfers, wire.AccountAmount{AccountID: account.ToWire(), Amount: amount})
	t.accounts = append(t.accounts, account)
	return t
}

// Transfers returns the amount moved per account.
func (t *Transfer) Transfers() map[entity.AccountID]int64 {
	res := make(map[entity.AccountID]int64, len(t.transfers))
	for _, aa := range t.transfers {
		res[entity.FromWire(aa.AccountID)] += aa.Amount
	}
	return res
}

// Kind implements Body.
func (t *Transfer) Kind() string {
	return wire.KindCryptoTransfer
}

// Method implements Body.
func (t *Transfer) Method() string {
	return wire.MethodCryptoTransfer
}

// Encode implements Body.
func (t *Transfer) Encode(_ []byte) ([]byte, error) {
	var sum int64
	for _, aa := range t.transfers {
		sum += aa.Amount
	}
	if sum != 0 {
		return nil, fmt.Errorf("transfer amounts sum to %d", sum)
	}

	return wire.Marshal(&wire.CryptoTransferBody{Transfers: t.transfers})
}

// Entities implements Body.
func (t *Transfer) Entities() []entity.ID {
	return t.accounts
}

func decodeTransfer(chunks [][]byte) (Body, error) {
	var body wire.CryptoTransferBody
	if err := wire.Unmarshal(chunks[0], &body); err != nil {
		return nil, err
	}

	t := &Transfer{}
	for _, aa := range body.Transfers {
		t.AddHbarTransfer(entity.FromWire(aa.AccountID), aa.Amount)
	}
	return t, nil
}
