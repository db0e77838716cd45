package net

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
)

const (
	bufSize = 64 * 1024
)

func newFrameHandle() *codec.MsgpackHandle {
	mh := new(codec.MsgpackHandle)
	mh.WriteExt = true
	return mh
}

var frameHandle = newFrameHandle()

/*
NetworkChannel is a Channel to one node over a StreamLayer connection, plain
TCP or TLS. Connections are dialed on first use and pooled, up to maxPool, for
the following calls.
*/
type NetworkChannel struct {
	logger *logrus.Entry

	target string
	dialer Dialer

	connPool     []*netConn
	active       map[*netConn]struct{}
	connPoolLock sync.Mutex
	maxPool      int

	shutdown     bool
	shutdownCh   chan struct{}
	shutdownLock sync.Mutex

	timeout time.Duration
}

type netConn struct {
	conn net.Conn
	w    *bufio.Writer
	dec  *codec.Decoder
	enc  *codec.Encoder
}

// Release closes the underlying connection
func (n *netConn) Release() error {
	return n.conn.Close()
}

// NewNetworkChannel creates a channel to target. The timeout applies to calls
// whose context has no deadline.
func NewNetworkChannel(
	target string,
	dialer Dialer,
	maxPool int,
	timeout time.Duration,
	logger *logrus.Entry,
) *NetworkChannel {

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &NetworkChannel{
		logger:     logger.WithField("target", target),
		target:     target,
		dialer:     dialer,
		active:     make(map[*netConn]struct{}),
		maxPool:    maxPool,
		shutdownCh: make(chan struct{}),
		timeout:    timeout,
	}
}

// NewNetworkChannelFactory returns a ChannelFactory producing NetworkChannels.
func NewNetworkChannelFactory(maxPool int, timeout time.Duration, logger *logrus.Entry) ChannelFactory {
	return func(target string, security Security) (Channel, error) {
		dialer, err := DialerFor(target, security)
		if err != nil {
			return nil, err
		}
		return NewNetworkChannel(target, dialer, maxPool, timeout, logger), nil
	}
}

// Target implements the Channel interface.
func (n *NetworkChannel) Target() string {
	return n.target
}

// Close closes pooled connections and interrupts the calls in flight.
func (n *NetworkChannel) Close() error {
	n.shutdownLock.Lock()
	defer n.shutdownLock.Unlock()

	if n.shutdown {
		return nil
	}

	close(n.shutdownCh)
	n.shutdown = true

	n.connPoolLock.Lock()
	defer n.connPoolLock.Unlock()

	for _, conn := range n.connPool {
		conn.Release()
	}
	n.connPool = nil

	for conn := range n.active {
		conn.Release()
	}

	return nil
}

// IsShutdown is used to check if the channel is closed.
func (n *NetworkChannel) IsShutdown() bool {
	select {
	case <-n.shutdownCh:
		return true
	default:
		return false
	}
}

// getPooledConn is used to grab a pooled connection.
func (n *NetworkChannel) getPooledConn() *netConn {
	n.connPoolLock.Lock()
	defer n.connPoolLock.Unlock()

	num := len(n.connPool)
	if num == 0 {
		return nil
	}

	var conn *netConn
	conn, n.connPool[num-1] = n.connPool[num-1], nil
	n.connPool = n.connPool[:num-1]
	return conn
}

// getConn is used to get a connection from the pool or dial a new one.
func (n *NetworkChannel) getConn(timeout time.Duration) (*netConn, error) {
	// Check for a pooled conn
	if conn := n.getPooledConn(); conn != nil {
		return conn, nil
	}

	// Dial a new connection
	conn, err := n.dialer.Dial(n.target, timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, n.target, err)
	}

	w := bufio.NewWriterSize(conn, bufSize)

	return &netConn{
		conn: conn,
		w:    w,
		dec:  codec.NewDecoder(bufio.NewReaderSize(conn, bufSize), frameHandle),
		enc:  codec.NewEncoder(w, frameHandle),
	}, nil
}

// track registers a connection as busy so that Close can interrupt it.
func (n *NetworkChannel) track(conn *netConn) bool {
	n.connPoolLock.Lock()
	defer n.connPoolLock.Unlock()

	if n.IsShutdown() {
		return false
	}
	n.active[conn] = struct{}{}
	return true
}

// returnConn returns a connection back to the pool.
func (n *NetworkChannel) returnConn(conn *netConn, reusable bool) {
	n.connPoolLock.Lock()
	defer n.connPoolLock.Unlock()

	delete(n.active, conn)

	if reusable && !n.IsShutdown() && len(n.connPool) < n.maxPool {
		n.connPool = append(n.connPool, conn)
	} else {
		conn.Release()
	}
}

// Invoke implements the Channel interface.
func (n *NetworkChannel) Invoke(ctx context.Context, method string, request []byte) ([]byte, error) {
	if n.IsShutdown() {
		return nil, ErrChannelClosed
	}

	timeout := n.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}

	conn, err := n.getConn(timeout)
	if err != nil {
		return nil, err
	}

	if !n.track(conn) {
		conn.Release()
		return nil, ErrChannelClosed
	}

	conn.conn.SetDeadline(time.Now().Add(timeout))

	// Unblock the read if the caller gives up first.
	stop := context.AfterFunc(ctx, func() {
		conn.conn.SetDeadline(time.Now())
	})
	defer stop()

	resp, reusable, err := n.roundTrip(conn, method, request)

	n.returnConn(conn, reusable)

	if err != nil && n.IsShutdown() {
		return nil, ErrChannelClosed
	}

	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	return resp, err
}

// roundTrip sends one request and decodes its response. It reports whether
// the connection can be reused.
func (n *NetworkChannel) roundTrip(conn *netConn, method string, request []byte) ([]byte, bool, error) {
	if err := sendRPC(conn, method, request); err != nil {
		return nil, false, err
	}

	return decodeResponse(conn)
}

// sendRPC is used to encode and send the RPC.
func sendRPC(conn *netConn, method string, request []byte) error {
	if err := conn.enc.Encode(method); err != nil {
		return err
	}

	if err := conn.enc.Encode(request); err != nil {
		return err
	}

	return conn.w.Flush()
}

// decodeResponse is used to decode an RPC response and reports whether
// the connection can be reused.
func decodeResponse(conn *netConn) ([]byte, bool, error) {
	// Decode the error if any
	var rpcError string
	if err := conn.dec.Decode(&rpcError); err != nil {
		return nil, false, err
	}

	// Decode the response
	var resp []byte
	if err := conn.dec.Decode(&resp); err != nil {
		return nil, false, err
	}

	if err := remoteError(rpcError); err != nil {
		return nil, true, err
	}

	return resp, true, nil
}
