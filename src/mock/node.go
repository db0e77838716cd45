package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/wire"
	"github.com/sirupsen/logrus"
)

// fault is a scripted answer replacing the normal processing of a request.
type fault struct {
	err    error
	status wire.Status
	delay  time.Duration
}

// Node answers requests for one node account of a Ledger. It implements
// net.Handler.
type Node struct {
	accountID entity.AccountID
	ledger    *Ledger

	mu              sync.Mutex
	faults          []fault
	pendingReceipts []wire.Status
	calls           map[string]int

	logger *logrus.Entry
}

// NewNode creates a node of ledger. The node account is created on the ledger
// if it does not exist.
func NewNode(id entity.AccountID, ledger *Ledger) *Node {
	ledger.mu.Lock()
	if _, ok := ledger.accounts[id.Base()]; !ok {
		ledger.accounts[id.Base()] = &account{}
	}
	ledger.mu.Unlock()

	return &Node{
		accountID: id.Base(),
		ledger:    ledger,
		calls:     make(map[string]int),
		logger:    ledger.logger.WithField("node", id.String()),
	}
}

// AccountID ...
func (n *Node) AccountID() entity.AccountID {
	return n.accountID
}

// FailNext makes the next count requests fail with err, before they reach the
// ledger.
func (n *Node) FailNext(count int, err error) *Node {
	return n.script(count, fault{err: err})
}

// StatusNext makes the next count requests answer status without reaching the
// ledger. For queries the status is set in the response header.
func (n *Node) StatusNext(count int, status wire.Status) *Node {
	return n.script(count, fault{status: status})
}

// DelayNext delays the next count requests.
func (n *Node) DelayNext(count int, d time.Duration) *Node {
	return n.script(count, fault{delay: d})
}

// PendingReceipts makes the next count receipt queries report an UNKNOWN
// status, as if consensus had not been reached yet.
func (n *Node) PendingReceipts(count int) *Node {
	return n.ReceiptStatusNext(count, wire.StatusUnknown)
}

// ReceiptStatusNext makes the next count receipt queries of known
// transactions answer OK with a receipt carrying status.
func (n *Node) ReceiptStatusNext(count int, status wire.Status) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := 0; i < count; i++ {
		n.pendingReceipts = append(n.pendingReceipts, status)
	}
	return n
}

func (n *Node) script(count int, f fault) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := 0; i < count; i++ {
		n.faults = append(n.faults, f)
	}
	return n
}

// Calls returns the number of requests received for method.
func (n *Node) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

// TotalCalls returns the number of requests received.
func (n *Node) TotalCalls() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	var total int
	for _, c := range n.calls {
		total += c
	}
	return total
}

func (n *Node) next(method string) (fault, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.calls[method]++

	if len(n.faults) == 0 {
		return fault{}, false
	}

	f := n.faults[0]
	n.faults = n.faults[1:]
	return f, true
}

// Handle implements net.Handler.
func (n *Node) Handle(ctx context.Context, method string, request []byte) ([]byte, error) {
	f, scripted := n.next(method)

	if scripted && f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		scripted = f.err != nil || f.status != wire.StatusOK
	}

	if scripted && f.err != nil {
		n.logger.WithField("method", method).WithError(f.err).Debug("Scripted failure")
		return nil, f.err
	}

	switch method {
	case wire.MethodCryptoTransfer, wire.MethodFileAppend, wire.MethodSubmitMessage:
		if scripted {
			return wire.Marshal(&wire.TransactionResponse{Status: f.status})
		}
		return n.handleTransaction(request)
	case wire.MethodCryptoGetBalance, wire.MethodGetAccountInfo, wire.MethodGetReceipt:
		if scripted {
			return wire.Marshal(&wire.Response{Header: wire.ResponseHeader{Status: f.status}})
		}
		return n.handleQuery(request)
	}

	return nil, fmt.Errorf("unknown method %s", method)
}

func (n *Node) handleTransaction(request []byte) ([]byte, error) {
	var tx wire.Transaction
	var signed wire.SignedTransaction
	var body wire.TransactionBody

	status := wire.StatusOK
	if err := decodeTransaction(request, &tx, &signed, &body); err != nil {
		status = wire.StatusInvalidTransaction
	} else {
		status = n.ledger.submit(n.accountID, &signed, &body)
	}

	return wire.Marshal(&wire.TransactionResponse{Status: status, Cost: uint64(DefaultTransactionFee)})
}

func (n *Node) handleQuery(request []byte) ([]byte, error) {
	var q wire.Query
	if err := wire.Unmarshal(request, &q); err != nil {
		return wire.Marshal(&wire.Response{Header: wire.ResponseHeader{Status: wire.StatusInvalidTransaction}})
	}

	resp := &wire.Response{
		Header: wire.ResponseHeader{ResponseType: q.Header.ResponseType},
		Kind:   q.Kind,
	}

	var cost uint64
	if q.Kind == wire.KindAccountInfo {
		n.ledger.mu.Lock()
		cost = n.ledger.accountInfoPrice
		n.ledger.mu.Unlock()
	}

	if q.Header.ResponseType == wire.CostAnswer {
		resp.Header.Cost = cost
		return wire.Marshal(resp)
	}

	if status := n.ledger.pay(n.accountID, q.Header.Payment, cost); status != wire.StatusOK {
		resp.Header.Status = status
		return wire.Marshal(resp)
	}

	var (
		data   interface{}
		status = wire.StatusOK
	)

	switch q.Kind {
	case wire.KindAccountBalance:
		var bq wire.AccountBalanceQuery
		if err := wire.Unmarshal(q.Data, &bq); err != nil {
			status = wire.StatusInvalidQueryHeader
			break
		}
		balance, ok := n.ledger.Balance(entity.FromWire(bq.AccountID))
		if !ok {
			status = wire.StatusInvalidAccountID
			break
		}
		data = &wire.AccountBalanceResponse{AccountID: bq.AccountID, Balance: uint64(balance)}

	case wire.KindAccountInfo:
		var iq wire.AccountInfoQuery
		if err := wire.Unmarshal(q.Data, &iq); err != nil {
			status = wire.StatusInvalidQueryHeader
			break
		}
		info, s := n.ledger.accountInfo(entity.FromWire(iq.AccountID))
		status = s
		data = &info

	case wire.KindTransactionReceipt:
		var rq wire.TransactionReceiptQuery
		if err := wire.Unmarshal(q.Data, &rq); err != nil {
			status = wire.StatusInvalidQueryHeader
			break
		}
		receipt, ok := n.ledger.Receipt(rq.TransactionID)
		if !ok {
			status = wire.StatusReceiptNotFound
			break
		}
		if s, ok := n.takePendingReceipt(); ok {
			receipt = wire.TransactionReceipt{Status: s}
		}
		data = &wire.TransactionReceiptResponse{Receipt: receipt}

	default:
		status = wire.StatusNotSupported
	}

	resp.Header.Status = status

	if status == wire.StatusOK && data != nil {
		b, err := wire.Marshal(data)
		if err != nil {
			return nil, err
		}
		resp.Data = b
	}

	return wire.Marshal(resp)
}

func (n *Node) takePendingReceipt() (wire.Status, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.pendingReceipts) == 0 {
		return 0, false
	}
	s := n.pendingReceipts[0]
	n.pendingReceipts = n.pendingReceipts[1:]
	return s, true
}
