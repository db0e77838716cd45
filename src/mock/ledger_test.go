package mock_test

import (
	"context"
	"testing"

	"github.com/mosaicnetworks/hgclient/src/common"
	"github.com/mosaicnetworks/hgclient/src/crypto/keys"
	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/mock"
	"github.com/mosaicnetworks/hgclient/src/transaction"
	"github.com/mosaicnetworks/hgclient/src/wire"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	payerID = entity.NewID(0, 0, 1001)
	topicID = entity.NewID(0, 0, 7000)
)

func submit(t *testing.T, n *mock.Node, method string, tx *transaction.Transaction, node entity.ID, chunk int) wire.Status {
	req, err := tx.EnvelopeBytes(node, chunk)
	require.NoError(t, err)

	raw, err := n.Handle(context.Background(), method, req)
	require.NoError(t, err)

	var resp wire.TransactionResponse
	require.NoError(t, wire.Unmarshal(raw, &resp))
	return resp.Status
}

func setup(t *testing.T) (*mock.Network, keys.PrivateKey) {
	mn := mock.NewNetwork(2, common.NewTestEntry(t, logrus.DebugLevel))

	key, err := keys.GeneratePrivateKey(keys.ECDSASecp256k1)
	require.NoError(t, err)

	mn.Ledger.CreateAccount(payerID, key.PublicKey(), 1000000)
	mn.Ledger.CreateTopic(topicID)

	return mn, key
}

func TestSignatureRequired(t *testing.T) {
	mn, key := setup(t)
	node := mn.Nodes[0]
	id := node.AccountID()

	tx, err := transaction.NewTransferTransaction().
		SetPayer(payerID).
		Freeze([]entity.ID{id})
	require.NoError(t, err)

	assert.Equal(t, wire.StatusInvalidSignature, submit(t, node, wire.MethodCryptoTransfer, tx, id, 0))

	require.NoError(t, tx.Sign(key))
	assert.Equal(t, wire.StatusOK, submit(t, node, wire.MethodCryptoTransfer, tx, id, 0))

	// same transaction id again
	assert.Equal(t, wire.StatusDuplicateTransaction, submit(t, node, wire.MethodCryptoTransfer, tx, id, 0))

	balance, _ := mn.Ledger.Balance(payerID)
	assert.Equal(t, int64(1000000-mock.DefaultTransactionFee), balance)
}

func TestWrongNode(t *testing.T) {
	mn, key := setup(t)
	id := mn.Nodes[0].AccountID()

	tx, err := transaction.NewTransferTransaction().
		SetPayer(payerID).
		Freeze([]entity.ID{id})
	require.NoError(t, err)
	require.NoError(t, tx.Sign(key))

	assert.Equal(t, wire.StatusInvalidNodeAccount, submit(t, mn.Nodes[1], wire.MethodCryptoTransfer, tx, id, 0))
}

func TestChunkOrder(t *testing.T) {
	mn, key := setup(t)
	node := mn.Nodes[0]
	id := node.AccountID()

	tx, err := transaction.NewTopicMessageTransaction(topicID, []byte("abcdef")).
		SetPayer(payerID).
		SetChunkSize(2).
		Freeze([]entity.ID{id})
	require.NoError(t, err)
	require.Equal(t, 3, tx.Chunks())
	require.NoError(t, tx.Sign(key))

	receipt := func(chunk int) wire.Status {
		r, ok := mn.Ledger.Receipt(tx.TransactionID().Chunk(chunk).ToWire())
		require.True(t, ok)
		return r.Status
	}

	// a chain must start with its first chunk
	require.Equal(t, wire.StatusOK, submit(t, node, wire.MethodSubmitMessage, tx, id, 1))
	assert.Equal(t, wire.StatusInvalidChunkTransactionID, receipt(1))

	require.Equal(t, wire.StatusOK, submit(t, node, wire.MethodSubmitMessage, tx, id, 0))
	assert.Equal(t, wire.StatusSuccess, receipt(0))

	require.Equal(t, wire.StatusOK, submit(t, node, wire.MethodSubmitMessage, tx, id, 2))
	assert.Equal(t, wire.StatusInvalidChunkNumber, receipt(2))

	assert.Empty(t, mn.Ledger.TopicMessages(topicID))
}

func TestScriptedFaults(t *testing.T) {
	mn, _ := setup(t)
	node := mn.Nodes[0]
	id := node.AccountID()

	node.StatusNext(1, wire.StatusBusy)

	tx, err := transaction.NewTransferTransaction().
		SetPayer(payerID).
		Freeze([]entity.ID{id})
	require.NoError(t, err)

	assert.Equal(t, wire.StatusBusy, submit(t, node, wire.MethodCryptoTransfer, tx, id, 0))
	assert.Equal(t, wire.StatusInvalidSignature, submit(t, node, wire.MethodCryptoTransfer, tx, id, 0))
	assert.Equal(t, 2, node.Calls(wire.MethodCryptoTransfer))

	_, ok := mn.Ledger.Receipt(tx.TransactionID().ToWire())
	assert.False(t, ok)
}
