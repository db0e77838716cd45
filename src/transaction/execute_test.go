package transaction_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mosaicnetworks/hgclient/src/common"
	"github.com/mosaicnetworks/hgclient/src/crypto/keys"
	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/executable"
	"github.com/mosaicnetworks/hgclient/src/mock"
	"github.com/mosaicnetworks/hgclient/src/net"
	"github.com/mosaicnetworks/hgclient/src/network"
	"github.com/mosaicnetworks/hgclient/src/transaction"
	"github.com/mosaicnetworks/hgclient/src/wire"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	operatorID = entity.NewID(0, 0, 1001)
	receiverID = entity.NewID(0, 0, 1002)
	topicID    = entity.NewID(0, 0, 7000)
	fileID     = entity.NewID(0, 0, 8000)
)

// testClient implements transaction.Executor on top of a mock network.
type testClient struct {
	net      *network.Network
	mock     *mock.Network
	operator *transaction.Operator
	settings transaction.Settings
	logger   *logrus.Entry

	// receipt waits that fail before the ledger is consulted
	lostReceipts int
}

func newTestClient(t *testing.T, nodes int) *testClient {
	logger := common.NewTestEntry(t, logrus.DebugLevel)

	mn := mock.NewNetwork(nodes, logger)
	router := net.NewInmemRouter(time.Second)

	nw := network.NewNetwork(network.Config{
		Ledger: entity.LocalNode,
		NodeConfig: network.NodeConfig{
			MinBackoff: 10 * time.Millisecond,
			MaxBackoff: 100 * time.Millisecond,
			Factory:    router.Factory(),
			Logger:     logger,
		},
	})
	require.NoError(t, nw.ReplaceNodes(network.EntriesFromMap(mn.ConnectInmem(router), net.Plaintext)))
	t.Cleanup(func() { nw.Close() })

	key, err := keys.GeneratePrivateKey(keys.Ed25519)
	require.NoError(t, err)

	mn.Ledger.CreateAccount(operatorID, key.PublicKey(), 1000000000)
	mn.Ledger.CreateAccount(receiverID, nil, 0)
	mn.Ledger.CreateTopic(topicID)
	mn.Ledger.CreateFile(fileID)

	return &testClient{
		net:      nw,
		mock:     mn,
		operator: transaction.NewOperator(operatorID, key),
		settings: transaction.Settings{
			MaxTransactionFee:     transaction.DefaultMaxTransactionFee,
			ValidDuration:         transaction.DefaultValidDuration,
			AutoValidateChecksums: true,
		},
		logger: logger,
	}
}

func (c *testClient) Network() *network.Network {
	return c.net
}

func (c *testClient) ExecuteOptions() executable.Options {
	return executable.Options{
		MaxAttempts:    5,
		MinBackoff:     time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		GRPCDeadline:   500 * time.Millisecond,
		RequestTimeout: 5 * time.Second,
		Logger:         c.logger,
	}
}

func (c *testClient) Operator() *transaction.Operator {
	return c.operator
}

func (c *testClient) Settings() transaction.Settings {
	return c.settings
}

func (c *testClient) Logger() *logrus.Entry {
	return c.logger
}

func (c *testClient) WaitForReceipt(ctx context.Context, id transaction.TransactionID, node entity.AccountID) error {
	if c.lostReceipts > 0 {
		c.lostReceipts--
		return fmt.Errorf("receipt of %s not available", id)
	}
	r, ok := c.mock.Ledger.Receipt(id.ToWire())
	if !ok {
		return fmt.Errorf("no receipt for %s", id)
	}
	if r.Status != wire.StatusSuccess {
		return fmt.Errorf("receipt status %s", r.Status)
	}
	return nil
}

func (c *testClient) calls(method string) int {
	var total int
	for _, n := range c.mock.Nodes {
		total += n.Calls(method)
	}
	return total
}

func TestExecuteTransfer(t *testing.T) {
	c := newTestClient(t, 3)

	b := transaction.NewTransferTransaction()
	b.Body().AddHbarTransfer(operatorID, -500).AddHbarTransfer(receiverID, 500)

	resp, err := b.Execute(context.Background(), c)
	require.NoError(t, err)

	assert.True(t, b.IsFrozen())
	assert.Equal(t, operatorID, resp.TransactionID.AccountID)
	assert.Len(t, resp.Hash, 48)

	receipt, ok := c.mock.Ledger.Receipt(resp.TransactionID.ToWire())
	require.True(t, ok)
	assert.Equal(t, wire.StatusSuccess, receipt.Status)

	balance, _ := c.mock.Ledger.Balance(receiverID)
	assert.Equal(t, int64(500), balance)

	assert.Equal(t, 1, c.calls(wire.MethodCryptoTransfer))
}

func TestExecuteUnsigned(t *testing.T) {
	c := newTestClient(t, 1)
	c.operator = nil

	tx, err := transaction.NewTransferTransaction().
		SetPayer(operatorID).
		SetNodeAccountIDs(c.net.NodeAccountIDs(0)).
		Freeze(nil)
	require.NoError(t, err)

	_, err = tx.Execute(context.Background(), c)

	var perm *executable.PermanentLogicalError
	require.ErrorAs(t, err, &perm)
	assert.Equal(t, wire.StatusInvalidSignature, perm.Status)
}

func TestExecuteBusyRetriesElsewhere(t *testing.T) {
	c := newTestClient(t, 3)

	for _, n := range c.mock.Nodes {
		n.StatusNext(1, wire.StatusBusy)
	}

	b := transaction.NewTransferTransaction()
	b.Body().AddHbarTransfer(operatorID, -1).AddHbarTransfer(receiverID, 1)

	_, err := b.Execute(context.Background(), c)
	require.NoError(t, err)

	// every node is asked once before any is asked again
	for _, n := range c.mock.Nodes {
		assert.GreaterOrEqual(t, n.TotalCalls(), 1)
	}
	assert.Equal(t, 4, c.calls(wire.MethodCryptoTransfer))

	// a busy precheck does not penalize the node
	for _, n := range c.net.Nodes() {
		assert.Equal(t, network.Healthy, n.Health())
		assert.Equal(t, 0, n.Failures())
	}
}

func TestExecuteBadChecksum(t *testing.T) {
	c := newTestClient(t, 1)

	b := transaction.NewTransferTransaction()
	b.Body().
		AddHbarTransfer(operatorID, -1).
		AddHbarTransfer(entity.MustParseID("0.0.1002-abcde"), 1)

	_, err := b.Execute(context.Background(), c)
	assert.True(t, common.IsLocal(err, common.BadChecksum))
	assert.Equal(t, 0, c.calls(wire.MethodCryptoTransfer))

	c.settings.AutoValidateChecksums = false

	tx, err := transaction.NewTransferTransaction().SetPayer(operatorID).Freeze(c.net.NodeAccountIDs(0))
	require.NoError(t, err)
	_, err = tx.Execute(context.Background(), c)
	require.NoError(t, err)
}

func TestChunksInOrder(t *testing.T) {
	c := newTestClient(t, 3)

	message := bytes.Repeat([]byte("m"), 6000)

	tx, err := transaction.NewTopicMessageTransaction(topicID, message).FreezeWith(c)
	require.NoError(t, err)
	require.Equal(t, 6, tx.Chunks())

	ctx := context.Background()

	_, err = tx.ExecuteChunk(ctx, c, 0)
	require.NoError(t, err)

	// chunk 2 before chunk 1 is rejected without sending anything
	_, err = tx.ExecuteChunk(ctx, c, 2)
	assert.True(t, common.IsLocal(err, common.ChunkOutOfOrder))
	assert.Equal(t, 1, c.calls(wire.MethodSubmitMessage))
	assert.Equal(t, 1, tx.NextChunk())

	responses, err := tx.ExecuteAll(ctx, c)
	require.NoError(t, err)
	require.Len(t, responses, 5)

	for i, r := range responses {
		assert.Equal(t, i+1, r.ChunkIndex)
		assert.True(t, r.TransactionID.Equal(tx.TransactionID().Chunk(i+1)))
	}

	assert.Equal(t, [][]byte{message}, c.mock.Ledger.TopicMessages(topicID))

	_, err = tx.Execute(ctx, c)
	assert.True(t, common.IsLocal(err, common.AlreadyExecuted))

	_, err = tx.ExecuteChunk(ctx, c, 5)
	assert.True(t, common.IsLocal(err, common.AlreadyExecuted))
	assert.Equal(t, 6, c.calls(wire.MethodSubmitMessage))
}

func TestChunkFailureDoesNotAdvance(t *testing.T) {
	c := newTestClient(t, 1)

	tx, err := transaction.NewTopicMessageTransaction(topicID, make([]byte, 2048)).FreezeWith(c)
	require.NoError(t, err)
	require.Equal(t, 2, tx.Chunks())

	c.mock.Nodes[0].StatusNext(1, wire.StatusOK).StatusNext(1, wire.StatusTransactionExpired)

	_, err = tx.ExecuteAll(context.Background(), c)

	var perm *executable.PermanentLogicalError
	require.ErrorAs(t, err, &perm)
	assert.Equal(t, wire.StatusTransactionExpired, perm.Status)
	assert.Equal(t, 1, tx.NextChunk())
}

func TestFileAppendWaitsForReceipts(t *testing.T) {
	c := newTestClient(t, 2)

	contents := bytes.Repeat([]byte("0123456789"), 1000)

	tx, err := transaction.NewFileAppendTransaction(fileID, contents).FreezeWith(c)
	require.NoError(t, err)

	responses, err := tx.ExecuteAll(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, responses, 3)

	file, ok := c.mock.Ledger.File(fileID)
	require.True(t, ok)
	assert.Equal(t, contents, file)
}

func TestFileAppendFailedReceiptStops(t *testing.T) {
	c := newTestClient(t, 1)

	missing := entity.NewID(0, 0, 8001)

	tx, err := transaction.NewFileAppendTransaction(missing, make([]byte, 5000)).FreezeWith(c)
	require.NoError(t, err)
	require.Equal(t, 2, tx.Chunks())

	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err = tx.ExecuteAll(ctx, c)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "INVALID_FILE_ID")
		assert.Equal(t, 0, tx.NextChunk())
	}

	// the second chunk is never sent and the first is not sent twice
	assert.Equal(t, 1, c.calls(wire.MethodFileAppend))

	_, err = tx.ExecuteChunk(ctx, c, 1)
	assert.True(t, common.IsLocal(err, common.ChunkOutOfOrder))
	assert.Equal(t, 1, c.calls(wire.MethodFileAppend))
}

func TestFileAppendReceiptRetried(t *testing.T) {
	c := newTestClient(t, 1)
	c.lostReceipts = 1

	contents := bytes.Repeat([]byte("a"), 5000)

	tx, err := transaction.NewFileAppendTransaction(fileID, contents).FreezeWith(c)
	require.NoError(t, err)

	ctx := context.Background()

	responses, err := tx.ExecuteAll(ctx, c)
	require.Error(t, err)
	assert.Empty(t, responses)
	assert.Equal(t, 0, tx.NextChunk())
	assert.Equal(t, 1, c.calls(wire.MethodFileAppend))

	responses, err = tx.ExecuteAll(ctx, c)
	require.NoError(t, err)
	require.Len(t, responses, 2)
	assert.Equal(t, 0, responses[0].ChunkIndex)
	assert.Equal(t, 1, responses[1].ChunkIndex)
	assert.Equal(t, 2, tx.NextChunk())

	// only the pending receipt was polled again
	assert.Equal(t, 2, c.calls(wire.MethodFileAppend))

	file, ok := c.mock.Ledger.File(fileID)
	require.True(t, ok)
	assert.Equal(t, contents, file)
}

func TestExecuteAllNodesDown(t *testing.T) {
	c := newTestClient(t, 2)

	for _, n := range c.mock.Nodes {
		n.FailNext(10, net.ErrNodeBusy)
	}

	b := transaction.NewTransferTransaction()
	_, err := b.Execute(context.Background(), c)

	require.Error(t, err)
	assert.True(t, executable.IsExhausted(err))
	assert.ErrorIs(t, err, net.ErrNodeBusy)
}
