package query

import (
	"context"
	"fmt"

	"github.com/mosaicnetworks/hgclient/src/common"
	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/executable"
	"github.com/mosaicnetworks/hgclient/src/network"
	"github.com/mosaicnetworks/hgclient/src/transaction"
	"github.com/mosaicnetworks/hgclient/src/wire"
	"github.com/sirupsen/logrus"
)

// DefaultMaxQueryPayment is 1 hbar in tinybars.
const DefaultMaxQueryPayment = 100000000

// Body is the kind-specific part of a query.
type Body interface {
	Kind() string
	Method() string
	Encode() ([]byte, error)
	Entities() []entity.ID
	PaymentRequired() bool
}

// answerClassifier is implemented by bodies that need to retry on answers
// other than busy, like receipts which are not final yet.
type answerClassifier interface {
	ClassifyAnswer(node string, resp *wire.Response) (executable.Classification, bool)
}

// Decoder turns the answer of a node into the result of a query.
type Decoder[T any] func(resp *wire.Response) (T, error)

// Executor is what queries need from a client.
type Executor interface {
	transaction.Executor
	MaxQueryPayment() uint64
}

// Query is a read-only request. Its zero value is not usable; create one
// with New or one of the kind constructors.
type Query[T any] struct {
	body   Body
	decode Decoder[T]

	nodes       []entity.ID
	payment     uint64
	maxPayment  uint64
	paymentTxID transaction.TransactionID
}

// New returns a query asking body and decoding answers with decode.
func New[T any](body Body, decode Decoder[T]) *Query[T] {
	return &Query[T]{
		body:   body,
		decode: decode,
	}
}

// Body returns the body of the query.
func (q *Query[T]) Body() Body {
	return q.body
}

// SetNodeAccountIDs restricts the nodes the query may be sent to.
func (q *Query[T]) SetNodeAccountIDs(nodes []entity.ID) *Query[T] {
	q.nodes = append([]entity.ID(nil), nodes...)
	return q
}

// SetQueryPayment pays exactly amount instead of asking the node for its
// price.
func (q *Query[T]) SetQueryPayment(amount uint64) *Query[T] {
	q.payment = amount
	return q
}

// SetMaxQueryPayment overrides the client's maximum query payment.
func (q *Query[T]) SetMaxQueryPayment(limit uint64) *Query[T] {
	q.maxPayment = limit
	return q
}

// SetPaymentTransactionID sets the id shared by the payment transactions.
func (q *Query[T]) SetPaymentTransactionID(id transaction.TransactionID) *Query[T] {
	q.paymentTxID = id
	return q
}

func (q *Query[T]) candidates(c Executor) []entity.ID {
	if len(q.nodes) > 0 {
		return q.nodes
	}
	return c.Network().NodeAccountIDs(c.Settings().MaxNodesPerTransaction)
}

func (q *Query[T]) validate(c Executor) error {
	if !c.Settings().AutoValidateChecksums {
		return nil
	}

	ledger := c.Network().Ledger()
	for _, id := range q.body.Entities() {
		if err := id.ValidateChecksumFor(ledger); err != nil {
			return err
		}
	}
	return nil
}

// GetCost asks a node for the price of the query.
func (q *Query[T]) GetCost(ctx context.Context, c Executor) (uint64, error) {
	if err := q.validate(c); err != nil {
		return 0, err
	}
	return q.getCost(ctx, c, q.candidates(c))
}

func (q *Query[T]) getCost(ctx context.Context, c Executor, nodes []entity.ID) (uint64, error) {
	var payments map[entity.ID][]byte

	// a free query may be asked without an operator
	if op := c.Operator(); op != nil {
		var err error
		payments, err = q.attachPayment(c, op, 0, nodes)
		if err != nil {
			return 0, err
		}
	}

	e := &queryExecutable[uint64]{
		body:         q.body,
		nodes:        nodes,
		payments:     payments,
		responseType: wire.CostAnswer,
		decode: func(resp *wire.Response) (uint64, error) {
			return resp.Header.Cost, nil
		},
	}

	return executable.Execute[uint64](ctx, c.Network(), c.ExecuteOptions(), e)
}

// Execute sends the query, paying for it first if needed, and decodes the
// answer.
func (q *Query[T]) Execute(ctx context.Context, c Executor) (T, error) {
	var zero T

	if err := q.validate(c); err != nil {
		return zero, err
	}

	nodes := q.candidates(c)
	if len(nodes) == 0 {
		return zero, common.NewLocalErr("query", common.NoNodesSelected, "")
	}

	var payments map[entity.ID][]byte

	if q.body.PaymentRequired() {
		op := c.Operator()
		if op == nil {
			return zero, common.NewLocalErr("query", common.NoOperator, "paid query")
		}

		amount := q.payment
		if amount == 0 {
			cost, err := q.getCost(ctx, c, nodes)
			if err != nil {
				return zero, fmt.Errorf("getting cost of %s: %w", q.body.Kind(), err)
			}

			limit := q.maxPayment
			if limit == 0 {
				limit = c.MaxQueryPayment()
			}
			if cost > limit {
				return zero, common.NewLocalErr("query", common.MaxQueryPaymentExceeded,
					fmt.Sprintf("cost %d, max %d", cost, limit))
			}
			amount = cost
		}

		c.Logger().WithFields(logrus.Fields{
			"query":  q.body.Kind(),
			"amount": amount,
		}).Debug("Paying for query")

		var err error
		if payments, err = q.attachPayment(c, op, amount, nodes); err != nil {
			return zero, err
		}
	}

	e := &queryExecutable[T]{
		body:         q.body,
		nodes:        nodes,
		payments:     payments,
		responseType: wire.AnswerOnly,
		decode:       q.decode,
	}

	return executable.Execute[T](ctx, c.Network(), c.ExecuteOptions(), e)
}

// attachPayment builds one transfer of amount from the operator to each
// node, all with the same transaction id, and returns their envelopes by
// node.
func (q *Query[T]) attachPayment(c Executor, op *transaction.Operator, amount uint64, nodes []entity.ID) (map[entity.ID][]byte, error) {
	id := q.paymentTxID
	if id.IsZero() {
		id = transaction.NewTransactionID(op.AccountID)
	}

	settings := c.Settings()
	payments := make(map[entity.ID][]byte, len(nodes))

	for _, node := range nodes {
		b := transaction.NewTransferTransaction().
			SetTransactionID(id).
			SetMaxTransactionFee(settings.MaxTransactionFee).
			SetValidDuration(settings.ValidDuration)
		b.Body().
			AddHbarTransfer(op.AccountID, -int64(amount)).
			AddHbarTransfer(node, int64(amount))

		tx, err := b.Freeze([]entity.ID{node})
		if err != nil {
			return nil, fmt.Errorf("freezing payment to %s: %w", node, err)
		}
		if err := tx.SignWith(op.PublicKey, op.Signer); err != nil {
			return nil, fmt.Errorf("signing payment to %s: %w", node, err)
		}

		payment, err := tx.EnvelopeBytes(node, 0)
		if err != nil {
			return nil, err
		}
		payments[node] = payment
	}

	return payments, nil
}

// ClassifyAnswer maps the header status of a query answer to an outcome.
func ClassifyAnswer(node string, status wire.Status) executable.Classification {
	switch {
	case status == wire.StatusOK:
		return executable.Classification{Outcome: executable.Success}
	case status.Busy():
		return executable.Classification{
			Outcome: executable.RetryableLogical,
			Err:     &executable.TransientLogicalError{Node: node, Status: status},
		}
	default:
		return executable.Classification{
			Outcome: executable.Permanent,
			Err:     &executable.PermanentLogicalError{Node: node, Status: status},
		}
	}
}

// queryExecutable sends one query, answer or cost, to the candidate nodes.
type queryExecutable[R any] struct {
	body         Body
	nodes        []entity.ID
	payments     map[entity.ID][]byte
	responseType wire.ResponseType
	decode       Decoder[R]
}

func (e *queryExecutable[R]) Name() string {
	if e.responseType == wire.CostAnswer {
		return e.body.Kind() + "_cost"
	}
	return e.body.Kind()
}

func (e *queryExecutable[R]) Candidates() []entity.ID {
	return e.nodes
}

func (e *queryExecutable[R]) Build(node *network.Node) (string, []byte, error) {
	data, err := e.body.Encode()
	if err != nil {
		return "", nil, err
	}

	req, err := wire.Marshal(&wire.Query{
		Header: wire.QueryHeader{
			Payment:      e.payments[node.AccountID()],
			ResponseType: e.responseType,
		},
		Kind: e.body.Kind(),
		Data: data,
	})
	if err != nil {
		return "", nil, err
	}

	return e.body.Method(), req, nil
}

func (e *queryExecutable[R]) Classify(node *network.Node, response []byte) executable.Classification {
	resp, err := wire.DecodeResponse(response)
	if err != nil {
		return executable.Classification{
			Outcome: executable.Permanent,
			Err:     fmt.Errorf("decoding response of node %s: %w", node, err),
		}
	}

	if ac, ok := e.body.(answerClassifier); ok && e.responseType == wire.AnswerOnly {
		if c, ok := ac.ClassifyAnswer(node.String(), resp); ok {
			return c
		}
	}

	return ClassifyAnswer(node.String(), resp.Header.Status)
}

func (e *queryExecutable[R]) Decode(_ *network.Node, response []byte) (R, error) {
	var zero R

	resp, err := wire.DecodeResponse(response)
	if err != nil {
		return zero, err
	}
	return e.decode(resp)
}
