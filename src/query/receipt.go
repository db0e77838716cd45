package query

import (
	"context"
	"fmt"

	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/executable"
	"github.com/mosaicnetworks/hgclient/src/transaction"
	"github.com/mosaicnetworks/hgclient/src/wire"
)

// Receipt is the outcome of a transaction.
type Receipt struct {
	TransactionID       transaction.TransactionID
	Status              wire.Status
	AccountID           *entity.AccountID
	FileID              *entity.FileID
	TopicID             *entity.TopicID
	TopicSequenceNumber uint64
}

// ReceiptStatusError is returned when a transaction reached consensus with a
// status other than SUCCESS.
type ReceiptStatusError struct {
	TransactionID transaction.TransactionID
	Status        wire.Status
	Receipt       Receipt
}

func (e *ReceiptStatusError) Error() string {
	return fmt.Sprintf("receipt for transaction %s contained error status %s", e.TransactionID, e.Status)
}

// ReceiptBody asks for the receipt of a transaction. It is free.
type ReceiptBody struct {
	TransactionID transaction.TransactionID
}

// NewReceiptQuery ...
func NewReceiptQuery(id transaction.TransactionID) *Query[Receipt] {
	body := &ReceiptBody{TransactionID: id}
	return New[Receipt](body, body.decode)
}

// Kind implements Body.
func (b *ReceiptBody) Kind() string { return wire.KindTransactionReceipt }

// Method implements Body.
func (b *ReceiptBody) Method() string { return wire.MethodGetReceipt }

// Encode implements Body.
func (b *ReceiptBody) Encode() ([]byte, error) {
	return wire.Marshal(&wire.TransactionReceiptQuery{TransactionID: b.TransactionID.ToWire()})
}

// Entities implements Body.
func (b *ReceiptBody) Entities() []entity.ID { return []entity.ID{b.TransactionID.AccountID} }

// PaymentRequired implements Body.
func (b *ReceiptBody) PaymentRequired() bool { return false }

// receiptFinal reports whether a receipt status is the outcome of the
// transaction rather than a sign that consensus was not reached yet.
func receiptFinal(s wire.Status) bool {
	switch s {
	case wire.StatusOK, wire.StatusUnknown, wire.StatusBusy, wire.StatusReceiptNotFound,
		wire.StatusRecordNotFound, wire.StatusPlatformNotActive:
		return false
	}
	return true
}

// ClassifyAnswer retries on the same node until the receipt is final.
func (b *ReceiptBody) ClassifyAnswer(node string, resp *wire.Response) (executable.Classification, bool) {
	status := resp.Header.Status

	switch status {
	case wire.StatusOK:
		var r wire.TransactionReceiptResponse
		if err := wire.Unmarshal(resp.Data, &r); err != nil {
			return executable.Classification{}, false
		}
		status = r.Receipt.Status
		if receiptFinal(status) {
			return executable.Classification{Outcome: executable.Success}, true
		}
	case wire.StatusReceiptNotFound, wire.StatusUnknown, wire.StatusRecordNotFound:
	default:
		return executable.Classification{}, false
	}

	return executable.Classification{
		Outcome: executable.RetryableLogical,
		Err: &executable.TransientLogicalError{
			Node:          node,
			Status:        status,
			TransactionID: b.TransactionID.String(),
		},
		SameNode: true,
	}, true
}

func (b *ReceiptBody) decode(resp *wire.Response) (Receipt, error) {
	var r wire.TransactionReceiptResponse
	if err := wire.Unmarshal(resp.Data, &r); err != nil {
		return Receipt{}, err
	}

	receipt := Receipt{
		TransactionID:       b.TransactionID,
		Status:              r.Receipt.Status,
		TopicSequenceNumber: r.Receipt.TopicSequenceNumber,
	}
	receipt.AccountID = optionalID(r.Receipt.AccountID)
	receipt.FileID = optionalID(r.Receipt.FileID)
	receipt.TopicID = optionalID(r.Receipt.TopicID)

	return receipt, nil
}

func optionalID(w *wire.EntityID) *entity.ID {
	if w == nil {
		return nil
	}
	id := entity.FromWire(*w)
	return &id
}

// GetReceipt polls the receipt of id on node until it is final. A zero node
// lets any node of the network answer. A final status other than SUCCESS is
// returned as a ReceiptStatusError along with the receipt.
func GetReceipt(ctx context.Context, c Executor, id transaction.TransactionID, node entity.AccountID) (Receipt, error) {
	q := NewReceiptQuery(id)
	if !node.IsZero() {
		q.SetNodeAccountIDs([]entity.ID{node})
	}

	receipt, err := q.Execute(ctx, c)
	if err != nil {
		return Receipt{}, err
	}

	if receipt.Status != wire.StatusSuccess {
		return receipt, &ReceiptStatusError{
			TransactionID: id,
			Status:        receipt.Status,
			Receipt:       receipt,
		}
	}

	return receipt, nil
}
