package transaction

import (
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/mosaicnetworks/hgclient/src/common"
	"github.com/mosaicnetworks/hgclient/src/crypto"
	"github.com/mosaicnetworks/hgclient/src/crypto/keys"
	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/wire"
)

// Envelope is the form of a transaction sent to one node for one chunk.
type Envelope struct {
	NodeIndex     int
	ChunkIndex    int
	NodeAccountID entity.AccountID
	TransactionID TransactionID
	BodyBytes     []byte
	Signatures    []wire.SignaturePair
}

// Signed returns the signed transaction of the envelope.
func (e *Envelope) Signed() wire.SignedTransaction {
	return wire.SignedTransaction{
		BodyBytes: e.BodyBytes,
		SigMap:    wire.SignatureMap{Pairs: e.Signatures},
	}
}

// Transaction is a frozen transaction. Its bodies cannot change; signatures
// can be added. The zero value is not frozen and rejects every operation.
type Transaction struct {
	kind                 string
	method               string
	body                 Body
	id                   TransactionID
	nodes                []entity.ID
	chunks               int
	fee                  uint64
	validDuration        time.Duration
	memo                 string
	receiptBetweenChunks bool

	mu        sync.RWMutex
	envelopes []Envelope
	signers   map[string]bool

	// serializes chunk submissions
	execMu    sync.Mutex
	nextChunk int
	// accepted chunk whose receipt has not been seen as SUCCESS yet
	awaiting *Response
}

func (tx *Transaction) frozen() error {
	if tx == nil || tx.envelopes == nil {
		return common.NewLocalErr("transaction", common.NotFrozen, "")
	}
	return nil
}

// Kind returns the body discriminator.
func (tx *Transaction) Kind() string {
	return tx.kind
}

// Body returns the body the transaction was frozen from.
func (tx *Transaction) Body() Body {
	return tx.body
}

// TransactionID returns the id of the first chunk, which is the initial id of
// the chain.
func (tx *Transaction) TransactionID() TransactionID {
	return tx.id
}

// NodeAccountIDs returns the nodes the transaction was frozen for.
func (tx *Transaction) NodeAccountIDs() []entity.ID {
	return append([]entity.ID(nil), tx.nodes...)
}

// Chunks returns the number of chunks.
func (tx *Transaction) Chunks() int {
	return tx.chunks
}

// MaxTransactionFee ...
func (tx *Transaction) MaxTransactionFee() uint64 {
	return tx.fee
}

// ValidDuration ...
func (tx *Transaction) ValidDuration() time.Duration {
	return tx.validDuration
}

// Memo ...
func (tx *Transaction) Memo() string {
	return tx.memo
}

// NextChunk returns the index of the next chunk to submit. It equals Chunks
// once every chunk was accepted.
func (tx *Transaction) NextChunk() int {
	tx.execMu.Lock()
	defer tx.execMu.Unlock()
	return tx.nextChunk
}

func (tx *Transaction) nodeIndex(node entity.ID) int {
	node = node.Base()
	for i, n := range tx.nodes {
		if n == node {
			return i
		}
	}
	return -1
}

func (tx *Transaction) envelopeIndex(node entity.ID, chunk int) (int, error) {
	n := tx.nodeIndex(node)
	if n < 0 {
		return 0, common.NewLocalErr("transaction", common.InvalidArgument,
			fmt.Sprintf("node %s is not a node of the transaction", node))
	}
	if chunk < 0 || chunk >= tx.chunks {
		return 0, common.NewLocalErr("transaction", common.InvalidArgument,
			fmt.Sprintf("chunk %d out of %d", chunk, tx.chunks))
	}
	return chunk*len(tx.nodes) + n, nil
}

// Envelope returns a copy of the envelope of (node, chunk).
func (tx *Transaction) Envelope(node entity.ID, chunk int) (Envelope, error) {
	if err := tx.frozen(); err != nil {
		return Envelope{}, err
	}

	i, err := tx.envelopeIndex(node, chunk)
	if err != nil {
		return Envelope{}, err
	}

	tx.mu.RLock()
	defer tx.mu.RUnlock()

	e := tx.envelopes[i]
	e.Signatures = append([]wire.SignaturePair(nil), e.Signatures...)
	return e, nil
}

// Envelopes returns a copy of every envelope in arena order.
func (tx *Transaction) Envelopes() []Envelope {
	tx.mu.RLock()
	defer tx.mu.RUnlock()

	res := make([]Envelope, len(tx.envelopes))
	for i, e := range tx.envelopes {
		e.Signatures = append([]wire.SignaturePair(nil), e.Signatures...)
		res[i] = e
	}
	return res
}

// EnvelopeBytes encodes the wire.Transaction sent for (node, chunk).
func (tx *Transaction) EnvelopeBytes(node entity.ID, chunk int) ([]byte, error) {
	i, err := tx.envelopeIndex(node, chunk)
	if err != nil {
		return nil, err
	}

	tx.mu.RLock()
	signed := tx.envelopes[i].Signed()
	stBytes, err := wire.Marshal(&signed)
	tx.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	return wire.Marshal(&wire.Transaction{SignedTransactionBytes: stBytes})
}

// Hash returns the SHA-384 hash of the signed transaction of (node, chunk),
// which is how the ledger identifies it.
func (tx *Transaction) Hash(node entity.ID, chunk int) ([]byte, error) {
	if err := tx.frozen(); err != nil {
		return nil, err
	}

	i, err := tx.envelopeIndex(node, chunk)
	if err != nil {
		return nil, err
	}

	tx.mu.RLock()
	signed := tx.envelopes[i].Signed()
	stBytes, err := wire.Marshal(&signed)
	tx.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	return crypto.SHA384(stBytes), nil
}

// Sign signs every envelope with key.
func (tx *Transaction) Sign(key keys.PrivateKey) error {
	return tx.SignWith(key.PublicKey(), keys.SignerOf(key))
}

// SignWith signs every envelope with signer and records the signature under
// pub. A key that already signed is ignored.
func (tx *Transaction) SignWith(pub keys.PublicKey, signer keys.Signer) error {
	if err := tx.frozen(); err != nil {
		return err
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()

	id := hex.EncodeToString(pub.Bytes())
	if tx.signers[id] {
		return nil
	}

	pairs := make([]wire.SignaturePair, len(tx.envelopes))
	for i := range tx.envelopes {
		sig, err := signer(tx.envelopes[i].BodyBytes)
		if err != nil {
			return fmt.Errorf("signing envelope %d: %w", i, err)
		}

		pair := wire.SignaturePair{PubKey: pub.Bytes()}
		switch pub.Type() {
		case keys.Ed25519:
			pair.Ed25519 = sig
		case keys.ECDSASecp256k1:
			pair.ECDSASecp256k1 = sig
		default:
			return fmt.Errorf("unsupported key type %s", pub.Type())
		}
		pairs[i] = pair
	}

	// all or nothing
	for i := range tx.envelopes {
		tx.envelopes[i].Signatures = append(tx.envelopes[i].Signatures, pairs[i])
	}
	tx.signers[id] = true

	return nil
}

// IsSignedBy reports whether pub signed the transaction.
func (tx *Transaction) IsSignedBy(pub keys.PublicKey) bool {
	tx.mu.RLock()
	defer tx.mu.RUnlock()
	return tx.signers[hex.EncodeToString(pub.Bytes())]
}

// Signers returns the number of keys that signed the transaction.
func (tx *Transaction) Signers() int {
	tx.mu.RLock()
	defer tx.mu.RUnlock()
	return len(tx.signers)
}

// ToBytes serializes every envelope, in arena order.
func (tx *Transaction) ToBytes() ([]byte, error) {
	if err := tx.frozen(); err != nil {
		return nil, err
	}

	tx.mu.RLock()
	defer tx.mu.RUnlock()

	list := wire.TransactionList{Transactions: make([]wire.Transaction, len(tx.envelopes))}
	for i := range tx.envelopes {
		signed := tx.envelopes[i].Signed()
		stBytes, err := wire.Marshal(&signed)
		if err != nil {
			return nil, err
		}
		list.Transactions[i] = wire.Transaction{SignedTransactionBytes: stBytes}
	}

	return wire.Marshal(&list)
}

// FromBytes rebuilds a frozen transaction serialized by ToBytes. The body is
// decoded with registry; body bytes and signatures are kept as they are.
func FromBytes(registry *Registry, data []byte) (*Transaction, error) {
	var list wire.TransactionList
	if err := wire.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decoding transaction list: %w", err)
	}
	if len(list.Transactions) == 0 {
		return nil, common.NewLocalErr("transaction", common.InvalidArgument, "empty transaction list")
	}

	type decoded struct {
		signed wire.SignedTransaction
		body   wire.TransactionBody
	}

	var (
		entries  []decoded
		nodes    []entity.ID
		chunkIDs []wire.TransactionID
	)

	nodeSeen := make(map[entity.ID]bool)

	for i, t := range list.Transactions {
		var d decoded
		if err := wire.Unmarshal(t.SignedTransactionBytes, &d.signed); err != nil {
			return nil, fmt.Errorf("decoding signed transaction %d: %w", i, err)
		}
		if err := wire.Unmarshal(d.signed.BodyBytes, &d.body); err != nil {
			return nil, fmt.Errorf("decoding transaction body %d: %w", i, err)
		}

		node := entity.FromWire(d.body.NodeAccountID)
		if !nodeSeen[node] {
			nodeSeen[node] = true
			nodes = append(nodes, node)
		}
		if len(chunkIDs) == 0 || chunkIDs[len(chunkIDs)-1] != d.body.TransactionID {
			chunkIDs = append(chunkIDs, d.body.TransactionID)
		}

		entries = append(entries, d)
	}

	if len(entries) != len(nodes)*len(chunkIDs) {
		return nil, common.NewLocalErr("transaction", common.InvalidArgument,
			fmt.Sprintf("%d envelopes for %d nodes and %d chunks", len(entries), len(nodes), len(chunkIDs)))
	}

	first := entries[0].body

	tx := &Transaction{
		kind:          first.Kind,
		id:            TransactionIDFromWire(first.TransactionID),
		nodes:         nodes,
		chunks:        len(chunkIDs),
		fee:           first.TransactionFee,
		validDuration: time.Duration(first.ValidDuration) * time.Second,
		memo:          first.Memo,
		envelopes:     make([]Envelope, len(entries)),
		signers:       make(map[string]bool),
	}
	if first.ChunkInfo != nil {
		tx.id = TransactionIDFromWire(first.ChunkInfo.InitialTransactionID)
	}

	payloads := make([][]byte, len(chunkIDs))

	for i, d := range entries {
		c, n := i/len(nodes), i%len(nodes)

		node := entity.FromWire(d.body.NodeAccountID)
		if node != nodes[n] || d.body.TransactionID != chunkIDs[c] || d.body.Kind != tx.kind {
			return nil, common.NewLocalErr("transaction", common.InvalidArgument,
				fmt.Sprintf("envelope %d is out of place", i))
		}

		tx.envelopes[i] = Envelope{
			NodeIndex:     n,
			ChunkIndex:    c,
			NodeAccountID: node,
			TransactionID: TransactionIDFromWire(d.body.TransactionID),
			BodyBytes:     d.signed.BodyBytes,
			Signatures:    d.signed.SigMap.Pairs,
		}

		if n == 0 {
			payloads[c] = d.body.Data
		}
		if i == 0 {
			for _, p := range d.signed.SigMap.Pairs {
				tx.signers[hex.EncodeToString(p.PubKey)] = true
			}
		}
	}

	body, err := registry.Decode(tx.kind, payloads)
	if err != nil {
		return nil, err
	}

	tx.body = body
	tx.method = body.Method()
	if cb, ok := body.(ChunkedBody); ok {
		tx.receiptBetweenChunks = cb.ReceiptBetweenChunks()
	}

	return tx, nil
}
