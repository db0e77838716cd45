package network

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/net"
	"github.com/sirupsen/logrus"
)

// Health is the health state of a Node.
type Health uint32

const (
	// Healthy nodes are selected first.
	Healthy Health = iota
	// Unhealthy nodes are in backoff after one or more failures.
	Unhealthy
)

func (h Health) String() string {
	switch h {
	case Healthy:
		return "Healthy"
	case Unhealthy:
		return "Unhealthy"
	default:
		return "Unknown"
	}
}

// Node is one endpoint of the network.
type Node struct {
	accountID entity.ID
	address   string
	security  net.Security
	factory   net.ChannelFactory

	// failures past this backoff mark the node Unhealthy
	unhealthyThreshold time.Duration

	mu             sync.Mutex
	health         Health
	failures       int
	currentBackoff time.Duration
	backoffUntil   time.Time
	backoff        *backoff.Backoff
	channel        net.Channel
	inFlight       int
	retired        bool

	now    func() time.Time
	logger *logrus.Entry
}

// NodeConfig holds the parameters shared by the nodes of a Network.
type NodeConfig struct {
	MinBackoff         time.Duration
	MaxBackoff         time.Duration
	UnhealthyThreshold time.Duration
	Factory            net.ChannelFactory
	Logger             *logrus.Entry
}

// NewNode creates a healthy Node. Its channel is only created when the node is
// first used.
func NewNode(entry Entry, conf NodeConfig) *Node {
	threshold := conf.UnhealthyThreshold
	if threshold == 0 {
		threshold = conf.MinBackoff
	}

	logger := conf.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Node{
		accountID:          entry.AccountID.Base(),
		address:            entry.Address,
		security:           entry.Security,
		factory:            conf.Factory,
		unhealthyThreshold: threshold,
		currentBackoff:     conf.MinBackoff,
		backoff: &backoff.Backoff{
			Min:    conf.MinBackoff,
			Max:    conf.MaxBackoff,
			Factor: 2,
		},
		now: time.Now,
		logger: logger.WithFields(logrus.Fields{
			"node":    entry.AccountID.String(),
			"address": entry.Address,
		}),
	}
}

// AccountID returns the account of the node.
func (n *Node) AccountID() entity.ID {
	return n.accountID
}

// Address returns the address the node is dialed at.
func (n *Node) Address() string {
	return n.address
}

// Security returns how the node's channel is secured.
func (n *Node) Security() net.Security {
	return n.security
}

func (n *Node) String() string {
	return fmt.Sprintf("%s@%s", n.accountID, n.address)
}

// Health returns the health state. An Unhealthy node whose backoff window has
// elapsed is eligible again but stays Unhealthy until its next success.
func (n *Node) Health() Health {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.health
}

// Failures returns the number of consecutive failures.
func (n *Node) Failures() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.failures
}

// CurrentBackoff returns the length of the current backoff window.
func (n *Node) CurrentBackoff() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.currentBackoff
}

// BackoffUntil returns the end of the current backoff window.
func (n *Node) BackoffUntil() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.backoffUntil
}

// InBackoff reports whether the node's backoff window is still open.
func (n *Node) InBackoff() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.inBackoff(n.now())
}

func (n *Node) inBackoff(now time.Time) bool {
	return now.Before(n.backoffUntil)
}

// rank orders nodes for selection: healthy, then recovered, then in backoff.
func (n *Node) rank(now time.Time) (int, time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch {
	case n.inBackoff(now):
		return 2, n.backoffUntil
	case n.health == Unhealthy:
		return 1, n.backoffUntil
	default:
		return 0, n.backoffUntil
	}
}

func (n *Node) reportSuccess() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.health == Unhealthy {
		n.logger.Debug("Node recovered")
	}

	n.failures = 0
	n.backoff.Reset()
	n.currentBackoff = n.backoff.Min
	n.backoffUntil = time.Time{}
	n.health = Healthy
}

func (n *Node) reportFailure() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.failures++
	n.currentBackoff = n.backoff.ForAttempt(float64(n.failures))
	n.backoffUntil = n.now().Add(n.currentBackoff)

	if n.currentBackoff > n.unhealthyThreshold {
		n.health = Unhealthy
	}

	n.logger.WithFields(logrus.Fields{
		"failures": n.failures,
		"backoff":  n.currentBackoff,
	}).Debug("Node failure")

	return n.currentBackoff
}

// copyHealth carries the health of a node replaced by an identical one.
func (n *Node) copyHealth(other *Node) {
	other.mu.Lock()
	health, failures := other.health, other.failures
	current, until := other.currentBackoff, other.backoffUntil
	other.mu.Unlock()

	n.mu.Lock()
	defer n.mu.Unlock()
	n.health, n.failures = health, failures
	n.currentBackoff, n.backoffUntil = current, until
}

// Acquire returns the node's channel, creating it on first use, and holds it
// open until release is called.
func (n *Node) Acquire() (net.Channel, func(), error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.channel == nil {
		if n.factory == nil {
			return nil, nil, fmt.Errorf("node %s: no channel factory", n)
		}
		ch, err := n.factory(n.address, n.security)
		if err != nil {
			return nil, nil, fmt.Errorf("node %s: %w", n, err)
		}
		n.channel = ch
	}

	ch := n.channel
	n.inFlight++

	var once sync.Once
	release := func() {
		once.Do(n.release)
	}

	return ch, release, nil
}

func (n *Node) release() {
	n.mu.Lock()
	n.inFlight--
	closeNow := n.retired && n.inFlight == 0
	n.mu.Unlock()

	if closeNow {
		n.closeChannel()
	}
}

// Invoke sends one request on the node's channel.
func (n *Node) Invoke(ctx context.Context, method string, request []byte) ([]byte, error) {
	ch, release, err := n.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	return ch.Invoke(ctx, method, request)
}

// retire closes the channel once no attempt holds it anymore.
func (n *Node) retire() {
	n.mu.Lock()
	n.retired = true
	closeNow := n.inFlight == 0
	n.mu.Unlock()

	if closeNow {
		n.closeChannel()
	}
}

// Retired reports whether the node was removed from its Network.
func (n *Node) Retired() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.retired
}

func (n *Node) closeChannel() error {
	n.mu.Lock()
	ch := n.channel
	n.channel = nil
	n.mu.Unlock()

	if ch == nil {
		return nil
	}

	n.logger.Debug("Closing channel")

	return ch.Close()
}
