package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/mosaicnetworks/hgclient/src/common"
	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/wire"
)

// Default values applied by Freeze when the builder leaves them unset.
const (
	DefaultMaxTransactionFee = 200000000
	DefaultValidDuration     = 120 * time.Second
)

// Builder configures a transaction before it is frozen. Setters are chained;
// once the builder is frozen they have no effect and Err returns an
// AlreadyFrozen error.
type Builder[B Body] struct {
	body          B
	id            TransactionID
	payer         entity.AccountID
	nodes         []entity.ID
	fee           uint64
	validDuration time.Duration
	memo          string
	chunkSize     int
	maxChunks     int

	tx  *Transaction
	err error
}

// NewBuilder returns a builder for body.
func NewBuilder[B Body](body B) *Builder[B] {
	return &Builder[B]{body: body}
}

// Body returns the body being built.
func (b *Builder[B]) Body() B {
	return b.body
}

// Err returns the first error recorded by a setter.
func (b *Builder[B]) Err() error {
	return b.err
}

// IsFrozen ...
func (b *Builder[B]) IsFrozen() bool {
	return b.tx != nil
}

func (b *Builder[B]) mutable(field string) bool {
	if b.tx == nil {
		return true
	}
	if b.err == nil {
		b.err = common.NewLocalErr("transaction", common.AlreadyFrozen, "cannot set "+field)
	}
	return false
}

// SetTransactionID sets the id. It also sets the payer.
func (b *Builder[B]) SetTransactionID(id TransactionID) *Builder[B] {
	if b.mutable("transaction id") {
		b.id = id
		b.payer = id.AccountID
	}
	return b
}

// SetPayer sets the paying account. The id is generated for it at freeze time.
func (b *Builder[B]) SetPayer(payer entity.AccountID) *Builder[B] {
	if b.mutable("payer") {
		b.payer = payer
	}
	return b
}

// SetNodeAccountIDs sets the nodes the transaction may be sent to.
func (b *Builder[B]) SetNodeAccountIDs(nodes []entity.ID) *Builder[B] {
	if b.mutable("node account ids") {
		b.nodes = append([]entity.ID(nil), nodes...)
	}
	return b
}

// SetMaxTransactionFee sets the largest fee the payer accepts, in tinybars.
func (b *Builder[B]) SetMaxTransactionFee(fee uint64) *Builder[B] {
	if b.mutable("max transaction fee") {
		b.fee = fee
	}
	return b
}

// SetValidDuration sets the length of the valid window.
func (b *Builder[B]) SetValidDuration(d time.Duration) *Builder[B] {
	if b.mutable("valid duration") {
		b.validDuration = d
	}
	return b
}

// SetMemo ...
func (b *Builder[B]) SetMemo(memo string) *Builder[B] {
	if b.mutable("memo") {
		b.memo = memo
	}
	return b
}

// SetChunkSize overrides the chunk size of chunked bodies.
func (b *Builder[B]) SetChunkSize(size int) *Builder[B] {
	if b.mutable("chunk size") {
		b.chunkSize = size
	}
	return b
}

// SetMaxChunks overrides the chunk limit of chunked bodies.
func (b *Builder[B]) SetMaxChunks(n int) *Builder[B] {
	if b.mutable("max chunks") {
		b.maxChunks = n
	}
	return b
}

// Freeze materializes the transaction for nodes.
func (b *Builder[B]) Freeze(nodes []entity.ID) (*Transaction, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.tx != nil {
		return nil, common.NewLocalErr("transaction", common.AlreadyFrozen, "")
	}

	if len(nodes) == 0 {
		nodes = b.nodes
	}
	if len(nodes) == 0 {
		return nil, common.NewLocalErr("transaction", common.NoNodesSelected, "")
	}

	id := b.id
	if id.IsZero() {
		if b.payer.IsZero() {
			return nil, common.NewLocalErr("transaction", common.MissingPayer, "")
		}
		id = NewTransactionID(b.payer)
	}

	fee := b.fee
	if fee == 0 {
		fee = DefaultMaxTransactionFee
	}
	validDuration := b.validDuration
	if validDuration == 0 {
		validDuration = DefaultValidDuration
	}

	tx, err := materialize(b.body, frame{
		id:            id,
		nodes:         nodes,
		fee:           fee,
		validDuration: validDuration,
		memo:          b.memo,
		chunkSize:     b.chunkSize,
		maxChunks:     b.maxChunks,
	})
	if err != nil {
		return nil, err
	}

	b.tx = tx

	return tx, nil
}

// FreezeWith materializes the transaction using the client's operator as the
// default payer, its network for the default nodes and its default fee and
// valid duration.
func (b *Builder[B]) FreezeWith(c Executor) (*Transaction, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.tx != nil {
		return nil, common.NewLocalErr("transaction", common.AlreadyFrozen, "")
	}

	settings := c.Settings()

	if b.id.IsZero() && b.payer.IsZero() {
		op := c.Operator()
		if op == nil {
			return nil, common.NewLocalErr("transaction", common.NoOperator, "no payer and no operator")
		}
		b.payer = op.AccountID
	}
	if b.fee == 0 {
		b.fee = settings.MaxTransactionFee
	}
	if b.validDuration == 0 {
		b.validDuration = settings.ValidDuration
	}

	nodes := b.nodes
	if len(nodes) == 0 {
		nodes = c.Network().NodeAccountIDs(settings.MaxNodesPerTransaction)
	}

	return b.Freeze(nodes)
}

// Execute freezes the transaction against the client if it is not frozen yet,
// then executes it.
func (b *Builder[B]) Execute(ctx context.Context, c Executor) (*Response, error) {
	tx := b.tx
	if tx == nil {
		var err error
		if tx, err = b.FreezeWith(c); err != nil {
			return nil, err
		}
	}
	return tx.Execute(ctx, c)
}

// frame holds the parameters shared by every envelope of a transaction.
type frame struct {
	id            TransactionID
	nodes         []entity.ID
	fee           uint64
	validDuration time.Duration
	memo          string
	chunkSize     int
	maxChunks     int
}

func materialize(body Body, f frame) (*Transaction, error) {
	payloads := [][]byte{nil}
	chunked := false
	receipts := false

	if cb, ok := body.(ChunkedBody); ok {
		chunked = true
		receipts = cb.ReceiptBetweenChunks()

		size, limit := f.chunkSize, f.maxChunks
		if size <= 0 {
			size = cb.ChunkSize()
		}
		if limit <= 0 {
			limit = cb.MaxChunks()
		}

		payload := cb.Payload()
		n := chunkCount(len(payload), size)
		if n > limit {
			return nil, common.NewLocalErr("transaction", common.TooManyChunks,
				fmt.Sprintf("%d bytes need %d chunks of %d, limit is %d", len(payload), n, size, limit))
		}

		payloads = make([][]byte, n)
		for i := range payloads {
			end := (i + 1) * size
			if end > len(payload) {
				end = len(payload)
			}
			payloads[i] = payload[i*size : end]
		}
	}

	tx := &Transaction{
		kind:                 body.Kind(),
		method:               body.Method(),
		body:                 body,
		id:                   f.id,
		nodes:                make([]entity.ID, len(f.nodes)),
		chunks:               len(payloads),
		fee:                  f.fee,
		validDuration:        f.validDuration,
		memo:                 f.memo,
		receiptBetweenChunks: receipts,
		envelopes:            make([]Envelope, 0, len(payloads)*len(f.nodes)),
		signers:              make(map[string]bool),
	}
	for i, n := range f.nodes {
		tx.nodes[i] = n.Base()
	}

	for c, payload := range payloads {
		data, err := body.Encode(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s body: %w", body.Kind(), err)
		}

		chunkID := f.id.Chunk(c)

		wb := wire.TransactionBody{
			TransactionID:  chunkID.ToWire(),
			TransactionFee: f.fee,
			ValidDuration:  int64(f.validDuration / time.Second),
			Memo:           f.memo,
			Kind:           body.Kind(),
			Data:           data,
		}
		if chunked {
			wb.ChunkInfo = &wire.ChunkInfo{
				InitialTransactionID: f.id.ToWire(),
				Number:               int32(c + 1),
				Total:                int32(len(payloads)),
			}
		}

		for n, node := range tx.nodes {
			wb.NodeAccountID = node.ToWire()

			bodyBytes, err := wire.Marshal(&wb)
			if err != nil {
				return nil, err
			}

			tx.envelopes = append(tx.envelopes, Envelope{
				NodeIndex:     n,
				ChunkIndex:    c,
				NodeAccountID: node,
				TransactionID: chunkID,
				BodyBytes:     bodyBytes,
			})
		}
	}

	return tx, nil
}
