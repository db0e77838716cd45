package mock

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/mosaicnetworks/hgclient/src/crypto/keys"
	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/wire"
	"github.com/sirupsen/logrus"
)

// Default prices.
const (
	DefaultTransactionFee   = 100000
	DefaultAccountInfoPrice = 25
)

type account struct {
	key     keys.PublicKey
	balance int64
}

type chunkChain struct {
	total int32
	next  int32
}

// Ledger is the state shared by the nodes of a mock network. It applies
// transactions as soon as a node accepts them.
type Ledger struct {
	mu sync.Mutex

	accounts map[entity.ID]*account
	files    map[entity.ID][]byte
	topics   map[entity.ID][][]byte
	receipts map[wire.TransactionID]wire.TransactionReceipt
	chains   map[wire.TransactionID]*chunkChain
	pending  map[wire.TransactionID][]byte

	transactionFee   int64
	accountInfoPrice uint64

	logger *logrus.Entry
}

// NewLedger creates an empty ledger.
func NewLedger(logger *logrus.Entry) *Ledger {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Ledger{
		accounts:         make(map[entity.ID]*account),
		files:            make(map[entity.ID][]byte),
		topics:           make(map[entity.ID][][]byte),
		receipts:         make(map[wire.TransactionID]wire.TransactionReceipt),
		chains:           make(map[wire.TransactionID]*chunkChain),
		pending:          make(map[wire.TransactionID][]byte),
		transactionFee:   DefaultTransactionFee,
		accountInfoPrice: DefaultAccountInfoPrice,
		logger:           logger,
	}
}

// CreateAccount adds an account. Transactions paid by an account with a key
// must carry a valid signature of that key.
func (l *Ledger) CreateAccount(id entity.AccountID, key keys.PublicKey, balance int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[id.Base()] = &account{key: key, balance: balance}
}

// CreateFile adds an empty file.
func (l *Ledger) CreateFile(id entity.FileID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.files[id.Base()] = []byte{}
}

// CreateTopic adds a topic without messages.
func (l *Ledger) CreateTopic(id entity.TopicID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.topics[id.Base()] = [][]byte{}
}

// SetAccountInfoPrice sets the cost of an account info query.
func (l *Ledger) SetAccountInfoPrice(price uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accountInfoPrice = price
}

// Balance returns the balance of an account.
func (l *Ledger) Balance(id entity.AccountID) (int64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.accounts[id.Base()]
	if !ok {
		return 0, false
	}
	return a.balance, true
}

// File returns the contents of a file.
func (l *Ledger) File(id entity.FileID) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, ok := l.files[id.Base()]
	return append([]byte(nil), f...), ok
}

// TopicMessages returns the complete messages of a topic, chunks reassembled.
func (l *Ledger) TopicMessages(id entity.TopicID) [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([][]byte(nil), l.topics[id.Base()]...)
}

// Receipt returns the receipt of a transaction.
func (l *Ledger) Receipt(id wire.TransactionID) (wire.TransactionReceipt, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.receipts[id]
	return r, ok
}

// verify checks that the payer signed body.
func (l *Ledger) verify(payer entity.ID, signed *wire.SignedTransaction) wire.Status {
	a, ok := l.accounts[payer]
	if !ok {
		return wire.StatusPayerAccountNotFound
	}
	if a.key == nil {
		return wire.StatusOK
	}

	for _, p := range signed.SigMap.Pairs {
		if !bytes.Equal(p.PubKey, a.key.Bytes()) {
			continue
		}
		sig := p.Ed25519
		if a.key.Type() == keys.ECDSASecp256k1 {
			sig = p.ECDSASecp256k1
		}
		if a.key.Verify(signed.BodyBytes, sig) {
			return wire.StatusOK
		}
	}

	return wire.StatusInvalidSignature
}

// submit prechecks and applies a transaction. The returned status is the
// precheck status; the outcome is stored in the receipt.
func (l *Ledger) submit(node entity.ID, signed *wire.SignedTransaction, body *wire.TransactionBody) wire.Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entity.FromWire(body.NodeAccountID) != node {
		return wire.StatusInvalidNodeAccount
	}

	if _, ok := l.receipts[body.TransactionID]; ok {
		return wire.StatusDuplicateTransaction
	}

	payer := entity.FromWire(body.TransactionID.AccountID)
	if status := l.verify(payer, signed); status != wire.StatusOK {
		return status
	}

	if body.TransactionFee < uint64(l.transactionFee) {
		return wire.StatusInsufficientTxFee
	}

	receipt := wire.TransactionReceipt{Status: wire.StatusSuccess}

	l.accounts[payer].balance -= l.transactionFee
	if n, ok := l.accounts[node]; ok {
		n.balance += l.transactionFee
	}

	switch body.Kind {
	case wire.KindCryptoTransfer:
		receipt.Status = l.applyTransfer(body.Data)
	case wire.KindFileAppend:
		receipt.Status = l.applyFileAppend(body, &receipt)
	case wire.KindTopicMessageSubmit:
		receipt.Status = l.applyTopicMessage(body, &receipt)
	default:
		return wire.StatusNotSupported
	}

	l.receipts[body.TransactionID] = receipt

	l.logger.WithFields(logrus.Fields{
		"kind":   body.Kind,
		"node":   node.String(),
		"status": receipt.Status,
	}).Debug("Applied transaction")

	return wire.StatusOK
}

func (l *Ledger) applyTransfer(data []byte) wire.Status {
	var t wire.CryptoTransferBody
	if err := wire.Unmarshal(data, &t); err != nil {
		return wire.StatusInvalidTransactionBody
	}

	var sum int64
	for _, aa := range t.Transfers {
		sum += aa.Amount
		a, ok := l.accounts[entity.FromWire(aa.AccountID)]
		if !ok {
			return wire.StatusInvalidAccountID
		}
		if a.balance+aa.Amount < 0 {
			return wire.StatusInsufficientAccountBalance
		}
	}
	if sum != 0 {
		return wire.StatusInvalidAccountAmounts
	}

	for _, aa := range t.Transfers {
		l.accounts[entity.FromWire(aa.AccountID)].balance += aa.Amount
	}

	return wire.StatusSuccess
}

// checkChunk enforces that the chunks of a chain arrive in order.
func (l *Ledger) checkChunk(body *wire.TransactionBody) wire.Status {
	ci := body.ChunkInfo
	if ci == nil {
		return wire.StatusOK
	}

	chain, ok := l.chains[ci.InitialTransactionID]
	if !ok {
		if ci.Number != 1 || ci.InitialTransactionID != body.TransactionID {
			return wire.StatusInvalidChunkTransactionID
		}
		chain = &chunkChain{total: ci.Total, next: 1}
		l.chains[ci.InitialTransactionID] = chain
	}

	if ci.Number != chain.next || ci.Total != chain.total {
		return wire.StatusInvalidChunkNumber
	}

	chain.next++

	return wire.StatusOK
}

func (l *Ledger) applyFileAppend(body *wire.TransactionBody, receipt *wire.TransactionReceipt) wire.Status {
	var fa wire.FileAppendBody
	if err := wire.Unmarshal(body.Data, &fa); err != nil {
		return wire.StatusInvalidTransactionBody
	}

	id := entity.FromWire(fa.FileID)
	f, ok := l.files[id]
	if !ok {
		return wire.StatusInvalidFileID
	}

	if status := l.checkChunk(body); status != wire.StatusOK {
		return status
	}

	l.files[id] = append(f, fa.Contents...)
	receipt.FileID = &fa.FileID

	return wire.StatusSuccess
}

func (l *Ledger) applyTopicMessage(body *wire.TransactionBody, receipt *wire.TransactionReceipt) wire.Status {
	var tm wire.TopicMessageSubmitBody
	if err := wire.Unmarshal(body.Data, &tm); err != nil {
		return wire.StatusInvalidTransactionBody
	}

	id := entity.FromWire(tm.TopicID)
	if _, ok := l.topics[id]; !ok {
		return wire.StatusInvalidTopicID
	}

	if status := l.checkChunk(body); status != wire.StatusOK {
		return status
	}

	key := body.TransactionID
	if body.ChunkInfo != nil {
		key = body.ChunkInfo.InitialTransactionID
	}

	l.pending[key] = append(l.pending[key], tm.Message...)

	if body.ChunkInfo == nil || body.ChunkInfo.Number == body.ChunkInfo.Total {
		l.topics[id] = append(l.topics[id], l.pending[key])
		delete(l.pending, key)
		receipt.TopicSequenceNumber = uint64(len(l.topics[id]))
	}

	receipt.TopicID = &tm.TopicID

	return wire.StatusSuccess
}

// pay checks and applies the payment of a query. The payment is a transfer
// to the node submitted like any other transaction.
func (l *Ledger) pay(node entity.ID, payment []byte, cost uint64) wire.Status {
	if cost == 0 {
		return wire.StatusOK
	}
	if len(payment) == 0 {
		return wire.StatusInvalidQueryHeader
	}

	var tx wire.Transaction
	var signed wire.SignedTransaction
	var body wire.TransactionBody
	if err := decodeTransaction(payment, &tx, &signed, &body); err != nil {
		return wire.StatusInvalidTransaction
	}
	if body.Kind != wire.KindCryptoTransfer {
		return wire.StatusInvalidQueryHeader
	}

	var t wire.CryptoTransferBody
	if err := wire.Unmarshal(body.Data, &t); err != nil {
		return wire.StatusInvalidTransactionBody
	}

	var paid int64
	for _, aa := range t.Transfers {
		if entity.FromWire(aa.AccountID) == node {
			paid += aa.Amount
		}
	}
	if paid < int64(cost) {
		return wire.StatusInsufficientTxFee
	}

	return l.submit(node, &signed, &body)
}

func (l *Ledger) accountInfo(id entity.ID) (wire.AccountInfoResponse, wire.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.accounts[id]
	if !ok {
		return wire.AccountInfoResponse{}, wire.StatusInvalidAccountID
	}

	info := wire.AccountInfoResponse{
		AccountID: id.ToWire(),
		Balance:   uint64(a.balance),
	}
	if a.key != nil {
		info.Key = a.key.Bytes()
	}
	return info, wire.StatusOK
}

func (l *Ledger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fmt.Sprintf("ledger(%d accounts, %d files, %d topics, %d receipts)",
		len(l.accounts), len(l.files), len(l.topics), len(l.receipts))
}

func decodeTransaction(data []byte, tx *wire.Transaction, signed *wire.SignedTransaction, body *wire.TransactionBody) error {
	if err := wire.Unmarshal(data, tx); err != nil {
		return err
	}
	if err := wire.Unmarshal(tx.SignedTransactionBytes, signed); err != nil {
		return err
	}
	return wire.Unmarshal(signed.BodyBytes, body)
}
