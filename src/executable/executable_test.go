package executable

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mosaicnetworks/hgclient/src/common"
	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/net"
	"github.com/mosaicnetworks/hgclient/src/network"
	"github.com/mosaicnetworks/hgclient/src/wire"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	nodeMinBackoff = 20 * time.Millisecond
	nodeMaxBackoff = 160 * time.Millisecond
)

// scripted answers each call with the next reply of its script, repeating the
// last one.
type scripted struct {
	mu      sync.Mutex
	replies []reply
	calls   int
}

type reply struct {
	response []byte
	err      error
}

func (s *scripted) Handle(ctx context.Context, method string, request []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.replies[len(s.replies)-1]
	if s.calls < len(s.replies) {
		r = s.replies[s.calls]
	}
	s.calls++

	return r.response, r.err
}

func (s *scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// echo is an Executable whose responses are status strings.
type echo struct {
	candidates []entity.ID
}

func (echo) Name() string {
	return "echo"
}

func (e echo) Candidates() []entity.ID {
	return e.candidates
}

func (echo) Build(node *network.Node) (string, []byte, error) {
	return "Test/echo", []byte(node.AccountID().String()), nil
}

func (echo) Classify(node *network.Node, response []byte) Classification {
	switch string(response) {
	case "ok":
		return Classification{Outcome: Success}
	case "again":
		return Classification{
			Outcome:  RetryableLogical,
			Err:      &TransientLogicalError{Node: node.String(), Status: wire.StatusPlatformNotActive},
			SameNode: true,
		}
	case "elsewhere":
		return Classification{
			Outcome: RetryableLogical,
			Err:     &TransientLogicalError{Node: node.String(), Status: wire.StatusBusy},
		}
	default:
		return Classification{
			Outcome: Permanent,
			Err:     &PermanentLogicalError{Node: node.String(), Status: wire.StatusInvalidSignature},
		}
	}
}

func (echo) Decode(node *network.Node, response []byte) (string, error) {
	return node.AccountID().String(), nil
}

type testNet struct {
	net      *network.Network
	router   *net.InmemRouter
	handlers []*scripted
	nodes    []*network.Node
}

func newTestNet(t *testing.T, scripts ...[]reply) *testNet {
	router := net.NewInmemRouter(time.Second)

	nw := network.NewNetwork(network.Config{
		Ledger: entity.LocalNode,
		NodeConfig: network.NodeConfig{
			MinBackoff: nodeMinBackoff,
			MaxBackoff: nodeMaxBackoff,
			Factory:    router.Factory(),
			Logger:     common.NewTestEntry(t, logrus.DebugLevel),
		},
	})

	tn := &testNet{net: nw, router: router}

	var entries []network.Entry
	for i, script := range scripts {
		addr := net.NewInmemAddr()
		h := &scripted{replies: script}
		router.Connect(addr, h)
		tn.handlers = append(tn.handlers, h)
		entries = append(entries, network.Entry{Address: addr, AccountID: entity.NewID(0, 0, uint64(3+i))})
	}

	require.NoError(t, nw.ReplaceNodes(entries))
	tn.nodes = nw.Nodes()

	t.Cleanup(func() { nw.Close() })

	return tn
}

func testOptions(t *testing.T, maxAttempts int) Options {
	return Options{
		MaxAttempts:    maxAttempts,
		MinBackoff:     time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		GRPCDeadline:   200 * time.Millisecond,
		RequestTimeout: 5 * time.Second,
		Logger:         common.NewTestEntry(t, logrus.DebugLevel),
	}
}

var (
	okReply   = []reply{{response: []byte("ok")}}
	transport = []reply{{err: net.ErrUnreachable}}
	busy      = []reply{{err: net.ErrNodeBusy}}
)

func TestTransportErrorsThenSuccess(t *testing.T) {
	tn := newTestNet(t, transport, transport, okReply)

	res, err := Execute[string](context.Background(), tn.net, testOptions(t, 5), echo{})
	require.NoError(t, err)
	assert.Equal(t, "0.0.5", res)

	assert.Equal(t, 2*nodeMinBackoff, tn.nodes[0].CurrentBackoff())
	assert.Equal(t, network.Unhealthy, tn.nodes[0].Health())
	assert.Equal(t, 2*nodeMinBackoff, tn.nodes[1].CurrentBackoff())
	assert.Equal(t, network.Unhealthy, tn.nodes[1].Health())
	assert.Equal(t, nodeMinBackoff, tn.nodes[2].CurrentBackoff())
	assert.Equal(t, network.Healthy, tn.nodes[2].Health())

	for _, h := range tn.handlers {
		assert.Equal(t, 1, h.Calls())
	}
}

func TestAllBusy(t *testing.T) {
	tn := newTestNet(t, busy, busy, busy)

	_, err := Execute[string](context.Background(), tn.net, testOptions(t, 3), echo{})
	require.Error(t, err)

	var maxErr *MaxAttemptsExceededError
	require.True(t, errors.As(err, &maxErr))
	assert.Equal(t, 3, maxErr.Attempts)

	var busyErr *NodeBusyError
	assert.True(t, errors.As(err, &busyErr))
	assert.True(t, errors.Is(err, net.ErrNodeBusy))
	assert.True(t, IsExhausted(err))

	for i, node := range tn.nodes {
		assert.Equal(t, 1, node.Failures(), "node %d", i)
		assert.Equal(t, 2*nodeMinBackoff, node.CurrentBackoff(), "node %d", i)
	}
}

func TestConcurrentExecutions(t *testing.T) {
	tn := newTestNet(t, transport, busy, okReply)

	const workers = 40

	var wg sync.WaitGroup
	results := make([]string, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = Execute[string](context.Background(), tn.net, testOptions(t, 10), echo{})
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i], "execution %d", i)
		assert.Equal(t, "0.0.5", results[i])
	}

	// every failed attempt was counted once on its node
	assert.Positive(t, tn.handlers[0].Calls()+tn.handlers[1].Calls())
	for i := 0; i < 2; i++ {
		assert.Equal(t, tn.handlers[i].Calls(), tn.nodes[i].Failures(), "node %d", i)
		if tn.handlers[i].Calls() > 0 {
			assert.Equal(t, network.Unhealthy, tn.nodes[i].Health(), "node %d", i)
		}
	}

	assert.Equal(t, workers, tn.handlers[2].Calls())
	assert.Equal(t, 0, tn.nodes[2].Failures())
	assert.Equal(t, network.Healthy, tn.nodes[2].Health())
}

func TestPermanentStops(t *testing.T) {
	tn := newTestNet(t, []reply{{response: []byte("invalid")}}, okReply)

	_, err := Execute[string](context.Background(), tn.net, testOptions(t, 5), echo{})

	var perm *PermanentLogicalError
	require.True(t, errors.As(err, &perm))
	assert.Equal(t, wire.StatusInvalidSignature, perm.Status)
	assert.False(t, IsExhausted(err))

	assert.Equal(t, 1, tn.handlers[0].Calls())
	assert.Equal(t, 0, tn.handlers[1].Calls())
	assert.Equal(t, network.Healthy, tn.nodes[0].Health())
}

func TestLogicalRetrySameNode(t *testing.T) {
	tn := newTestNet(t,
		[]reply{{response: []byte("again")}, {response: []byte("again")}, {response: []byte("ok")}},
		okReply,
	)

	res, err := Execute[string](context.Background(), tn.net, testOptions(t, 5), echo{})
	require.NoError(t, err)
	assert.Equal(t, "0.0.3", res)

	assert.Equal(t, 3, tn.handlers[0].Calls())
	assert.Equal(t, 0, tn.handlers[1].Calls())
	assert.Equal(t, 0, tn.nodes[0].Failures())
}

func TestLogicalRetryOtherNode(t *testing.T) {
	tn := newTestNet(t, []reply{{response: []byte("elsewhere")}}, okReply)

	res, err := Execute[string](context.Background(), tn.net, testOptions(t, 5), echo{})
	require.NoError(t, err)
	assert.Equal(t, "0.0.4", res)

	// no health penalty
	assert.Equal(t, network.Healthy, tn.nodes[0].Health())
	assert.False(t, tn.nodes[0].InBackoff())
}

func TestCandidates(t *testing.T) {
	tn := newTestNet(t, okReply, okReply, okReply)

	e := echo{candidates: []entity.ID{entity.NewID(0, 0, 5)}}

	for i := 0; i < 3; i++ {
		res, err := Execute[string](context.Background(), tn.net, testOptions(t, 5), e)
		require.NoError(t, err)
		assert.Equal(t, "0.0.5", res)
	}

	assert.Equal(t, 0, tn.handlers[0].Calls())
	assert.Equal(t, 3, tn.handlers[2].Calls())
}

func TestRetriesWaitForNodeBackoff(t *testing.T) {
	// a single node failing twice is retried after its backoff window
	tn := newTestNet(t, []reply{{err: net.ErrUnreachable}, {err: net.ErrUnreachable}, {response: []byte("ok")}})

	start := time.Now()
	res, err := Execute[string](context.Background(), tn.net, testOptions(t, 5), echo{})
	require.NoError(t, err)
	assert.Equal(t, "0.0.3", res)

	assert.GreaterOrEqual(t, time.Since(start), 2*nodeMinBackoff+4*nodeMinBackoff)
	assert.Equal(t, 3, tn.handlers[0].Calls())
}

func TestTimeout(t *testing.T) {
	tn := newTestNet(t, transport)

	opts := testOptions(t, 100)
	opts.RequestTimeout = 100 * time.Millisecond

	_, err := Execute[string](context.Background(), tn.net, opts, echo{})

	var timeoutErr *TimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.True(t, errors.Is(err, net.ErrUnreachable))
	assert.True(t, IsExhausted(err))
	assert.Less(t, timeoutErr.Attempts, 100)
}

func TestCanceled(t *testing.T) {
	tn := newTestNet(t, okReply)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Execute[string](ctx, tn.net, testOptions(t, 5), echo{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, tn.handlers[0].Calls())
}

func TestEmptyNetwork(t *testing.T) {
	tn := newTestNet(t)

	_, err := Execute[string](context.Background(), tn.net, testOptions(t, 5), echo{})
	assert.True(t, common.IsLocal(err, common.NoHealthyNodes))
}

func TestClassifyTransportError(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		outcome Outcome
		busy    bool
	}{
		{"unreachable", net.ErrUnreachable, RetryableNode, false},
		{"closed", net.ErrChannelClosed, RetryableNode, false},
		{"deadline", context.DeadlineExceeded, RetryableNode, false},
		{"busy", net.ErrNodeBusy, RetryableNode, true},
		{"grpc unavailable", status.Error(codes.Unavailable, "connection refused"), RetryableNode, false},
		{"grpc deadline", status.Error(codes.DeadlineExceeded, "deadline"), RetryableNode, false},
		{"grpc exhausted", status.Error(codes.ResourceExhausted, "busy"), RetryableNode, true},
		{"grpc rst", status.Error(codes.Internal, "stream terminated by RST_STREAM with error code: PROTOCOL_ERROR"), RetryableNode, false},
		{"grpc internal", status.Error(codes.Internal, "boom"), Permanent, false},
		{"grpc unimplemented", status.Error(codes.Unimplemented, "no such method"), Permanent, false},
		{"remote", &net.RemoteError{Message: "unknown method"}, Permanent, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := ClassifyTransportError("0.0.3", tc.err)
			assert.Equal(t, tc.outcome, c.Outcome)
			assert.ErrorIs(t, c.Err, tc.err)

			var busyErr *NodeBusyError
			assert.Equal(t, tc.busy, errors.As(c.Err, &busyErr))
		})
	}

	assert.Equal(t, Success, ClassifyTransportError("0.0.3", nil).Outcome)
}
