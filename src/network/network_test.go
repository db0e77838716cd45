package network

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mosaicnetworks/hgclient/src/addressbook"
	"github.com/mosaicnetworks/hgclient/src/common"
	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/net"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	target string

	mu     sync.Mutex
	closed bool
}

func (c *fakeChannel) Invoke(ctx context.Context, method string, request []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, net.ErrChannelClosed
	}
	return request, nil
}

func (c *fakeChannel) Target() string {
	return c.target
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeFactory struct {
	mu       sync.Mutex
	channels map[string]*fakeChannel
}

func (f *fakeFactory) create(target string, security net.Security) (net.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.channels == nil {
		f.channels = make(map[string]*fakeChannel)
	}
	c := &fakeChannel{target: target}
	f.channels[target] = c
	return c, nil
}

func (f *fakeFactory) get(target string) *fakeChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channels[target]
}

func testNetwork(t *testing.T, size int) (*Network, *fakeFactory) {
	factory := &fakeFactory{}

	network := NewNetwork(Config{
		Ledger: entity.LocalNode,
		NodeConfig: NodeConfig{
			MinBackoff: 10 * time.Second,
			MaxBackoff: 80 * time.Second,
			Factory:    factory.create,
			Logger:     common.NewTestEntry(t, logrus.DebugLevel),
		},
	})

	nodes := make(map[string]entity.ID)
	for i := 0; i < size; i++ {
		nodes[net.NewInmemAddr()] = entity.NewID(0, 0, uint64(3+i))
	}

	require.NoError(t, network.ReplaceNodes(EntriesFromMap(nodes, net.Plaintext)))

	return network, factory
}

func TestBackoffGrowth(t *testing.T) {
	network, _ := testNetwork(t, 1)
	node := network.Nodes()[0]

	minBackoff, maxBackoff := 10*time.Second, 80*time.Second

	assert.Equal(t, minBackoff, node.CurrentBackoff())
	assert.Equal(t, Healthy, node.Health())

	for k := 1; k <= 6; k++ {
		network.ReportFailure(node)

		expected := minBackoff << uint(k)
		if expected > maxBackoff {
			expected = maxBackoff
		}

		assert.Equal(t, expected, node.CurrentBackoff(), "after %d failures", k)
		assert.Equal(t, Unhealthy, node.Health())
		assert.True(t, node.InBackoff())
	}

	network.ReportSuccess(node)

	assert.Equal(t, minBackoff, node.CurrentBackoff())
	assert.Equal(t, Healthy, node.Health())
	assert.Equal(t, 0, node.Failures())
	assert.False(t, node.InBackoff())
}

func TestSelectAvoidsBackoff(t *testing.T) {
	network, _ := testNetwork(t, 3)
	nodes := network.Nodes()

	network.ReportFailure(nodes[0])
	network.ReportFailure(nodes[2])

	for i := 0; i < 10; i++ {
		node, err := network.SelectNode(nil)
		require.NoError(t, err)
		assert.Equal(t, nodes[1], node)
	}

	// excluding the only fresh node falls back to the earliest window
	network.ReportFailure(nodes[2])

	node, err := network.SelectNode(map[entity.ID]bool{nodes[1].AccountID(): true})
	require.NoError(t, err)
	assert.Equal(t, nodes[0], node)
}

func TestSelectRoundRobin(t *testing.T) {
	network, _ := testNetwork(t, 3)

	seen := make(map[entity.ID]int)
	for i := 0; i < 9; i++ {
		node, err := network.SelectNode(nil)
		require.NoError(t, err)
		seen[node.AccountID()]++
	}

	assert.Len(t, seen, 3)
	for _, c := range seen {
		assert.Equal(t, 3, c)
	}
}

func TestSelectFrom(t *testing.T) {
	network, _ := testNetwork(t, 4)
	nodes := network.Nodes()

	candidates := []entity.ID{nodes[1].AccountID(), nodes[3].AccountID()}

	node, err := network.SelectFrom(candidates, map[entity.ID]bool{nodes[1].AccountID(): true})
	require.NoError(t, err)
	assert.Equal(t, nodes[3], node)

	_, err = network.SelectFrom(candidates, map[entity.ID]bool{
		nodes[1].AccountID(): true,
		nodes[3].AccountID(): true,
	})
	assert.True(t, common.IsLocal(err, common.NoHealthyNodes))

	empty := NewNetwork(Config{})
	_, err = empty.SelectNode(nil)
	assert.True(t, common.IsLocal(err, common.NoHealthyNodes))
}

func TestNodeAccountIDs(t *testing.T) {
	network, _ := testNetwork(t, 4)
	nodes := network.Nodes()

	network.ReportFailure(nodes[0])

	ids := network.NodeAccountIDs(0)
	require.Len(t, ids, 4)
	assert.Equal(t, nodes[0].AccountID(), ids[3])

	ids = network.NodeAccountIDs(2)
	require.Len(t, ids, 2)
	assert.NotContains(t, ids, nodes[0].AccountID())
}

func TestReplaceNodes(t *testing.T) {
	network, factory := testNetwork(t, 2)
	nodes := network.Nodes()

	kept, removed := nodes[0], nodes[1]
	network.ReportFailure(kept)

	// an attempt holds the removed node across the replacement
	ch, release, err := removed.Acquire()
	require.NoError(t, err)

	entries := []Entry{
		{Address: kept.Address(), AccountID: kept.AccountID()},
		{Address: net.NewInmemAddr(), AccountID: entity.NewID(0, 0, 10)},
	}
	require.NoError(t, network.ReplaceNodes(entries))

	after := network.Nodes()
	require.Len(t, after, 2)
	assert.Same(t, kept, after[0])
	assert.Equal(t, 1, after[0].Failures())
	assert.True(t, removed.Retired())
	assert.Empty(t, network.NodesFor(removed.AccountID()))

	// in flight call finishes, then the channel is closed
	_, err = ch.Invoke(context.Background(), "m", []byte("x"))
	assert.NoError(t, err)
	assert.False(t, factory.get(removed.Address()).isClosed())

	release()
	release()
	assert.True(t, factory.get(removed.Address()).isClosed())
}

func TestUpdateFromAddressBook(t *testing.T) {
	network := NewNetwork(Config{
		Mode:          net.TLS,
		TLSPortOffset: 1,
		NodeConfig:    NodeConfig{MinBackoff: time.Second, MaxBackoff: time.Minute},
	})

	book := &addressbook.AddressBook{
		NodeAddresses: []addressbook.NodeAddress{
			{
				AccountID: entity.NewID(0, 0, 3),
				CertHash:  "abcd",
				Endpoints: []addressbook.Endpoint{{Host: "10.0.0.1", Port: 50211}},
			},
			{
				AccountID: entity.NewID(0, 0, 4),
				Endpoints: []addressbook.Endpoint{{Host: "node4.example.com", Port: 50212}},
			},
		},
	}

	require.NoError(t, network.UpdateFromAddressBook(book))

	nodes := network.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "10.0.0.1:50212", nodes[0].Address())
	assert.Equal(t, net.Security{Mode: net.TLS, CertHash: "abcd"}, nodes[0].Security())
	assert.Equal(t, "node4.example.com:50212", nodes[1].Address())
}

func TestClose(t *testing.T) {
	network, factory := testNetwork(t, 3)

	for _, node := range network.Nodes() {
		_, err := node.Invoke(context.Background(), "m", nil)
		require.NoError(t, err)
	}

	require.NoError(t, network.Close())
	require.NoError(t, network.Close())

	for _, node := range network.Nodes() {
		assert.True(t, factory.get(node.Address()).isClosed())
	}

	assert.Error(t, network.ReplaceNodes(nil))
}

func TestConcurrentReports(t *testing.T) {
	network, _ := testNetwork(t, 3)
	nodes := network.Nodes()

	const workers = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			network.ReportFailure(nodes[0])
		}()
		go func() {
			defer wg.Done()
			network.ReportSuccess(nodes[1])
		}()
		go func() {
			defer wg.Done()
			_, err := network.SelectNode(nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, nodes[0].Failures())
	assert.Equal(t, 80*time.Second, nodes[0].CurrentBackoff())
	assert.Equal(t, Unhealthy, nodes[0].Health())

	assert.Equal(t, 0, nodes[1].Failures())
	assert.Equal(t, Healthy, nodes[1].Health())

	node, err := network.SelectNode(map[entity.ID]bool{nodes[1].AccountID(): true})
	require.NoError(t, err)
	assert.Equal(t, nodes[2].AccountID(), node.AccountID())
}
