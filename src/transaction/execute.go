package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/mosaicnetworks/hgclient/src/common"
	"github.com/mosaicnetworks/hgclient/src/crypto/keys"
	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/executable"
	"github.com/mosaicnetworks/hgclient/src/network"
	"github.com/mosaicnetworks/hgclient/src/wire"
	"github.com/sirupsen/logrus"
)

// Operator is the account paying for requests by default, with the key that
// signs for it.
type Operator struct {
	AccountID entity.AccountID
	PublicKey keys.PublicKey
	Signer    keys.Signer
}

// NewOperator ...
func NewOperator(account entity.AccountID, key keys.PrivateKey) *Operator {
	return &Operator{
		AccountID: account,
		PublicKey: key.PublicKey(),
		Signer:    keys.SignerOf(key),
	}
}

// Settings are the client defaults used by transactions.
type Settings struct {
	MaxTransactionFee      uint64
	ValidDuration          time.Duration
	MaxNodesPerTransaction int
	AutoValidateChecksums  bool
}

// Executor is what transactions need from a client.
type Executor interface {
	Network() *network.Network
	ExecuteOptions() executable.Options
	Operator() *Operator
	Settings() Settings
	Logger() *logrus.Entry

	// WaitForReceipt blocks until the receipt of id is final, and fails if
	// it is not SUCCESS.
	WaitForReceipt(ctx context.Context, id TransactionID, node entity.AccountID) error
}

// Response is the acknowledgement of a node that accepted a transaction for
// processing. The outcome is obtained by polling its receipt.
type Response struct {
	TransactionID TransactionID
	NodeID        entity.AccountID
	Hash          []byte
	ChunkIndex    int
}

// Execute submits every pending chunk in order and returns the response of
// the first one submitted.
func (tx *Transaction) Execute(ctx context.Context, c Executor) (*Response, error) {
	responses, err := tx.ExecuteAll(ctx, c)
	if err != nil {
		return nil, err
	}
	return responses[0], nil
}

// ExecuteAll submits every pending chunk in order. It stops at the first chunk
// that fails; that chunk stays the next one to submit.
func (tx *Transaction) ExecuteAll(ctx context.Context, c Executor) ([]*Response, error) {
	if err := tx.frozen(); err != nil {
		return nil, err
	}

	next := tx.NextChunk()
	if next >= tx.chunks {
		return nil, common.NewLocalErr("transaction", common.AlreadyExecuted,
			fmt.Sprintf("all %d chunks were accepted", tx.chunks))
	}

	var responses []*Response
	for i := next; i < tx.chunks; i++ {
		resp, err := tx.ExecuteChunk(ctx, c, i)
		if err != nil {
			return responses, err
		}
		responses = append(responses, resp)
	}

	return responses, nil
}

// ExecuteChunk submits chunk i. It must be the next pending chunk; any other
// index fails with ChunkOutOfOrder and nothing is sent.
//
// For kinds that wait for a receipt between chunks, the cursor only moves once
// the receipt is SUCCESS. A chunk that was accepted but whose receipt could not
// be confirmed is not sent again: executing it again polls its receipt.
func (tx *Transaction) ExecuteChunk(ctx context.Context, c Executor, i int) (*Response, error) {
	if err := tx.frozen(); err != nil {
		return nil, err
	}

	tx.execMu.Lock()
	defer tx.execMu.Unlock()

	if tx.nextChunk >= tx.chunks {
		return nil, common.NewLocalErr("transaction", common.AlreadyExecuted,
			fmt.Sprintf("all %d chunks were accepted", tx.chunks))
	}

	if i != tx.nextChunk {
		return nil, common.NewLocalErr("transaction", common.ChunkOutOfOrder,
			fmt.Sprintf("chunk %d submitted, next is %d of %d", i, tx.nextChunk, tx.chunks))
	}

	resp := tx.awaiting
	if resp == nil {
		if err := tx.prepare(c); err != nil {
			return nil, err
		}

		var err error
		resp, err = executable.Execute[*Response](ctx, c.Network(), c.ExecuteOptions(), &chunkExecutable{tx: tx, chunk: i})
		if err != nil {
			return nil, err
		}

		c.Logger().WithFields(logrus.Fields{
			"transaction": resp.TransactionID.String(),
			"node":        resp.NodeID.String(),
			"chunk":       fmt.Sprintf("%d/%d", i+1, tx.chunks),
		}).Debug("Transaction accepted")
	}

	if tx.receiptBetweenChunks && i < tx.chunks-1 {
		tx.awaiting = resp
		if err := c.WaitForReceipt(ctx, resp.TransactionID, resp.NodeID); err != nil {
			return resp, fmt.Errorf("receipt of chunk %d: %w", i+1, err)
		}
		tx.awaiting = nil
	}

	tx.nextChunk++

	return resp, nil
}

// prepare validates checksums and adds the operator's signature when the
// operator pays.
func (tx *Transaction) prepare(c Executor) error {
	settings := c.Settings()

	if settings.AutoValidateChecksums {
		ledger := c.Network().Ledger()

		ids := []entity.ID{tx.id.AccountID}
		if tx.body != nil {
			ids = append(ids, tx.body.Entities()...)
		}
		for _, id := range ids {
			if err := id.ValidateChecksumFor(ledger); err != nil {
				return err
			}
		}
	}

	if op := c.Operator(); op != nil && op.AccountID.Base() == tx.id.AccountID.Base() {
		if err := tx.SignWith(op.PublicKey, op.Signer); err != nil {
			return err
		}
	}

	return nil
}

// ClassifyPrecheck maps the precheck status of a node to an outcome.
func ClassifyPrecheck(node string, id TransactionID, status wire.Status) executable.Classification {
	switch {
	case status == wire.StatusOK:
		return executable.Classification{Outcome: executable.Success}
	case status.Busy():
		return executable.Classification{
			Outcome: executable.RetryableLogical,
			Err:     &executable.TransientLogicalError{Node: node, Status: status, TransactionID: id.String()},
		}
	default:
		return executable.Classification{
			Outcome: executable.Permanent,
			Err:     &executable.PermanentLogicalError{Node: node, Status: status, TransactionID: id.String()},
		}
	}
}

// chunkExecutable submits one chunk of a transaction.
type chunkExecutable struct {
	tx    *Transaction
	chunk int
}

func (e *chunkExecutable) Name() string {
	return e.tx.kind
}

func (e *chunkExecutable) Candidates() []entity.ID {
	return e.tx.nodes
}

func (e *chunkExecutable) Build(node *network.Node) (string, []byte, error) {
	req, err := e.tx.EnvelopeBytes(node.AccountID(), e.chunk)
	if err != nil {
		return "", nil, err
	}
	return e.tx.method, req, nil
}

func (e *chunkExecutable) Classify(node *network.Node, response []byte) executable.Classification {
	var resp wire.TransactionResponse
	if err := wire.Unmarshal(response, &resp); err != nil {
		return executable.Classification{
			Outcome: executable.Permanent,
			Err:     fmt.Errorf("decoding response of node %s: %w", node, err),
		}
	}
	return ClassifyPrecheck(node.String(), e.tx.id.Chunk(e.chunk), resp.Status)
}

func (e *chunkExecutable) Decode(node *network.Node, _ []byte) (*Response, error) {
	hash, err := e.tx.Hash(node.AccountID(), e.chunk)
	if err != nil {
		return nil, err
	}

	return &Response{
		TransactionID: e.tx.id.Chunk(e.chunk),
		NodeID:        node.AccountID(),
		Hash:          hash,
		ChunkIndex:    e.chunk,
	}, nil
}
