package client

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mosaicnetworks/hgclient/src/addressbook"
	"github.com/mosaicnetworks/hgclient/src/common"
	"github.com/mosaicnetworks/hgclient/src/config"
	"github.com/mosaicnetworks/hgclient/src/crypto/keys"
	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/mock"
	"github.com/mosaicnetworks/hgclient/src/net"
	"github.com/mosaicnetworks/hgclient/src/query"
	"github.com/mosaicnetworks/hgclient/src/transaction"
	"github.com/mosaicnetworks/hgclient/src/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	operatorID = entity.NewID(0, 0, 1001)
	receiverID = entity.NewID(0, 0, 1002)
)

// newMockLedger creates a mock network with an operator account whose key is
// written to the data directory of conf.
func newMockLedger(t *testing.T, conf *config.Config, size int) *mock.Network {
	mn := mock.NewNetwork(size, conf.Logger())
	t.Cleanup(func() { mn.Close() })

	key, err := Keygen(conf)
	require.NoError(t, err)

	mn.Ledger.CreateAccount(operatorID, key.PublicKey(), 1000000000)
	mn.Ledger.CreateAccount(receiverID, nil, 0)

	conf.OperatorID = operatorID.String()

	return mn
}

func nodesOf(addrs map[string]entity.ID) []string {
	var nodes []string
	for addr, id := range addrs {
		nodes = append(nodes, fmt.Sprintf("%s@%s", id, addr))
	}
	return nodes
}

func newInmemClient(t *testing.T, size int) (*Client, *mock.Network) {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	mn := newMockLedger(t, conf, size)

	router := net.NewInmemRouter(time.Second)
	conf.Nodes = nodesOf(mn.ConnectInmem(router))

	c, err := NewWithFactory(conf, router.Factory())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	return c, mn
}

func TestTransferAndReceipt(t *testing.T) {
	c, mn := newInmemClient(t, 3)

	require.NotNil(t, c.Operator())
	assert.Equal(t, operatorID, c.Operator().AccountID)
	assert.Equal(t, 3, c.Network().Len())

	b := transaction.NewTransferTransaction()
	b.Body().AddHbarTransfer(operatorID, -100).AddHbarTransfer(receiverID, 100)

	ctx := context.Background()

	resp, err := b.Execute(ctx, c)
	require.NoError(t, err)

	receipt, err := c.GetReceipt(ctx, resp)
	require.NoError(t, err)
	assert.Equal(t, wire.StatusSuccess, receipt.Status)

	balance, err := query.NewAccountBalanceQuery(receiverID).Execute(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), balance.Balance)

	ledgerBalance, _ := mn.Ledger.Balance(receiverID)
	assert.Equal(t, int64(100), ledgerBalance)
}

func TestSerializeAndExecute(t *testing.T) {
	c, _ := newInmemClient(t, 2)

	b := transaction.NewTransferTransaction()
	b.Body().AddHbarTransfer(operatorID, -7).AddHbarTransfer(receiverID, 7)

	tx, err := b.FreezeWith(c)
	require.NoError(t, err)

	data, err := tx.ToBytes()
	require.NoError(t, err)

	decoded, err := c.TransactionFromBytes(data)
	require.NoError(t, err)
	assert.True(t, tx.TransactionID().Equal(decoded.TransactionID()))

	resp, err := decoded.Execute(context.Background(), c)
	require.NoError(t, err)

	_, err = c.GetReceipt(context.Background(), resp)
	require.NoError(t, err)
}

func TestPing(t *testing.T) {
	c, mn := newInmemClient(t, 3)

	require.NoError(t, c.PingAll(context.Background()))
	for _, n := range mn.Nodes {
		assert.Equal(t, 1, n.Calls(wire.MethodCryptoGetBalance))
	}

	// a node that keeps failing makes its ping fail
	c.Config.MaxAttempts = 3
	mn.Nodes[1].FailNext(100, net.ErrUnreachable)

	err := c.Ping(context.Background(), mn.Nodes[1].AccountID())
	require.Error(t, err)
	assert.ErrorIs(t, err, net.ErrUnreachable)

	assert.Error(t, c.PingAll(context.Background()))
}

func TestSetOperator(t *testing.T) {
	c, mn := newInmemClient(t, 1)

	other, err := keys.GeneratePrivateKey(keys.ECDSASecp256k1)
	require.NoError(t, err)

	otherID := entity.NewID(0, 0, 2000)
	mn.Ledger.CreateAccount(otherID, other.PublicKey(), 1000000)

	c.SetOperator(otherID, other)

	b := transaction.NewTransferTransaction()
	b.Body().AddHbarTransfer(otherID, -1).AddHbarTransfer(receiverID, 1)

	resp, err := b.Execute(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, otherID, resp.TransactionID.AccountID)
}

func TestNoOperator(t *testing.T) {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	mn := mock.NewNetwork(1, conf.Logger())

	router := net.NewInmemRouter(time.Second)
	conf.Nodes = nodesOf(mn.ConnectInmem(router))

	c, err := NewWithFactory(conf, router.Factory())
	require.NoError(t, err)
	defer c.Close()

	_, err = transaction.NewTransferTransaction().Execute(context.Background(), c)
	assert.True(t, common.IsLocal(err, common.NoOperator))
}

func TestAddressBookOverTCP(t *testing.T) {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	conf.Transport = config.TransportTCP
	mn := newMockLedger(t, conf, 2)

	addrs, err := mn.ServeTCP("127.0.0.1", 0)
	require.NoError(t, err)

	book, err := addressbook.New(addrs)
	require.NoError(t, err)
	require.NoError(t, addressbook.NewJSONAddressBook(conf.AddressBookFile()).Write(book))

	c, err := New(conf)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, addrs, c.Network().Network())
	require.NoError(t, c.PingAll(context.Background()))
}

func TestGRPC(t *testing.T) {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	mn := newMockLedger(t, conf, 2)

	addrs, err := mn.ServeGRPC("127.0.0.1", 0)
	require.NoError(t, err)
	conf.Nodes = nodesOf(addrs)

	c, err := New(conf)
	require.NoError(t, err)
	defer c.Close()

	b := transaction.NewTransferTransaction()
	b.Body().AddHbarTransfer(operatorID, -5).AddHbarTransfer(receiverID, 5)

	resp, err := b.Execute(context.Background(), c)
	require.NoError(t, err)

	_, err = c.GetReceipt(context.Background(), resp)
	require.NoError(t, err)
}

func TestUpdateNetwork(t *testing.T) {
	c, mn := newInmemClient(t, 3)

	book, err := addressbook.New(map[string]entity.ID{
		"127.0.0.1:50211": mn.Nodes[0].AccountID(),
	})
	require.NoError(t, err)

	require.NoError(t, c.UpdateNetwork(book))
	assert.Equal(t, 1, c.Network().Len())

	saved, err := c.AddressBook().Read()
	require.NoError(t, err)
	assert.Equal(t, book.NodeAddresses, saved.NodeAddresses)
}

func TestEmptyConfig(t *testing.T) {
	conf := config.NewTestConfig(t, logrus.DebugLevel)

	_, err := New(conf)
	assert.Error(t, err)

	conf.Nodes = []string{"not-a-node"}
	_, err = New(conf)
	assert.Error(t, err)
}

func TestMetrics(t *testing.T) {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	reg := prometheus.NewRegistry()
	conf.Registerer = reg

	mn := newMockLedger(t, conf, 1)
	router := net.NewInmemRouter(time.Second)
	conf.Nodes = nodesOf(mn.ConnectInmem(router))

	c, err := NewWithFactory(conf, router.Factory())
	require.NoError(t, err)

	_, err = transaction.NewTransferTransaction().Execute(context.Background(), c)
	require.NoError(t, err)

	require.NotNil(t, c.Metrics())
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Metrics().Executions.WithLabelValues(wire.KindCryptoTransfer, "Succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Metrics().Attempts.WithLabelValues(wire.KindCryptoTransfer, "0.0.3", "success")))

	require.NoError(t, c.Close())

	// the registry is free again
	c, err = NewWithFactory(conf, router.Factory())
	require.NoError(t, err)
	c.Close()
}
