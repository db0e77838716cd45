package network

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mosaicnetworks/hgclient/src/addressbook"
	"github.com/mosaicnetworks/hgclient/src/common"
	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/net"
	"github.com/sirupsen/logrus"
)

// Entry describes one node address of a Network.
type Entry struct {
	Address   string
	AccountID entity.ID
	Security  net.Security
}

// Config holds the parameters of a Network.
type Config struct {
	// Ledger is used to compute and validate entity checksums.
	Ledger entity.LedgerID

	// Mode selects how address book entries are turned into node addresses.
	Mode net.Mode

	// TLSPortOffset is added to plaintext ports in TLS mode.
	TLSPortOffset int

	NodeConfig
}

// Network is the live set of Nodes.
type Network struct {
	conf Config

	mu     sync.RWMutex
	nodes  []*Node
	byAddr map[string]*Node
	byID   map[entity.ID][]*Node
	closed bool

	cursor uint64

	logger *logrus.Entry
}

// NewNetwork creates an empty Network. Use ReplaceNodes or
// UpdateFromAddressBook to populate it.
func NewNetwork(conf Config) *Network {
	logger := conf.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
		conf.Logger = logger
	}

	return &Network{
		conf:   conf,
		byAddr: make(map[string]*Node),
		byID:   make(map[entity.ID][]*Node),
		logger: logger,
	}
}

// Ledger returns the ledger id of the network.
func (n *Network) Ledger() entity.LedgerID {
	return n.conf.Ledger
}

// Mode returns the addressing mode.
func (n *Network) Mode() net.Mode {
	return n.conf.Mode
}

// Nodes returns the nodes in selection order.
func (n *Network) Nodes() []*Node {
	n.mu.RLock()
	defer n.mu.RUnlock()

	res := make([]*Node, len(n.nodes))
	copy(res, n.nodes)
	return res
}

// Len returns the number of nodes.
func (n *Network) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.nodes)
}

// NodesFor returns the nodes of an account.
func (n *Network) NodesFor(account entity.ID) []*Node {
	n.mu.RLock()
	defer n.mu.RUnlock()

	nodes := n.byID[account.Base()]
	res := make([]*Node, len(nodes))
	copy(res, nodes)
	return res
}

// Network returns the address → account map of the current membership.
func (n *Network) Network() map[string]entity.ID {
	n.mu.RLock()
	defer n.mu.RUnlock()

	res := make(map[string]entity.ID, len(n.nodes))
	for _, node := range n.nodes {
		res[node.address] = node.accountID
	}
	return res
}

// NodeAccountIDs returns up to max distinct node accounts, healthy nodes
// first, in a rotating order so that successive transactions spread over the
// network. max <= 0 returns every account.
func (n *Network) NodeAccountIDs(max int) []entity.ID {
	n.mu.RLock()
	nodes := make([]*Node, len(n.nodes))
	copy(nodes, n.nodes)
	n.mu.RUnlock()

	if len(nodes) == 0 {
		return nil
	}

	now := time.Now()
	start := int(atomic.AddUint64(&n.cursor, 1) % uint64(len(nodes)))

	type ranked struct {
		id   entity.ID
		rank int
	}

	seen := make(map[entity.ID]int)
	var accounts []ranked
	for i := range nodes {
		node := nodes[(start+i)%len(nodes)]
		r, _ := node.rank(now)
		if j, ok := seen[node.accountID]; ok {
			if r < accounts[j].rank {
				accounts[j].rank = r
			}
			continue
		}
		seen[node.accountID] = len(accounts)
		accounts = append(accounts, ranked{id: node.accountID, rank: r})
	}

	sort.SliceStable(accounts, func(i, j int) bool {
		return accounts[i].rank < accounts[j].rank
	})

	if max > 0 && max < len(accounts) {
		accounts = accounts[:max]
	}

	res := make([]entity.ID, len(accounts))
	for i, a := range accounts {
		res[i] = a.id
	}
	return res
}

// SelectNode returns the best node of the network whose account is not in
// excluding.
func (n *Network) SelectNode(excluding map[entity.ID]bool) (*Node, error) {
	return n.SelectFrom(nil, excluding)
}

// SelectFrom returns the best node whose account is in candidates and not in
// excluding. A nil candidates list means every node.
//
// Nodes outside their backoff window always win over nodes inside it, and
// healthy nodes over recovering ones. Ties are broken round-robin over the
// ordered node list. When every eligible node is in backoff, the one whose
// window closes first is returned.
func (n *Network) SelectFrom(candidates []entity.ID, excluding map[entity.ID]bool) (*Node, error) {
	n.mu.RLock()
	nodes := n.nodes
	n.mu.RUnlock()

	var allowed map[entity.ID]bool
	if candidates != nil {
		allowed = make(map[entity.ID]bool, len(candidates))
		for _, c := range candidates {
			allowed[c.Base()] = true
		}
	}

	if len(nodes) == 0 {
		return nil, common.NewLocalErr("network", common.NoHealthyNodes, "network is empty")
	}

	now := time.Now()
	start := int(atomic.LoadUint64(&n.cursor) % uint64(len(nodes)))

	var (
		best      *Node
		bestPos   int
		bestRank  = 3
		bestUntil time.Time
	)

	for i := range nodes {
		pos := (start + i) % len(nodes)
		node := nodes[pos]

		if allowed != nil && !allowed[node.accountID] {
			continue
		}
		if excluding[node.accountID] {
			continue
		}

		r, until := node.rank(now)
		switch {
		case r < bestRank:
		case r == 2 && bestRank == 2 && until.Before(bestUntil):
		default:
			continue
		}

		best, bestPos, bestRank, bestUntil = node, pos, r, until
	}

	if best == nil {
		return nil, common.NewLocalErr("network", common.NoHealthyNodes,
			fmt.Sprintf("no eligible node among %d", len(nodes)))
	}

	atomic.StoreUint64(&n.cursor, uint64(bestPos+1))

	return best, nil
}

// ReportSuccess resets the backoff of node and marks it healthy.
func (n *Network) ReportSuccess(node *Node) {
	node.reportSuccess()
}

// ReportFailure grows the backoff of node and returns the new window.
func (n *Network) ReportFailure(node *Node) time.Duration {
	return node.reportFailure()
}

// ReplaceNodes swaps the membership of the network. Nodes present before and
// after keep their health and channel. Removed nodes are retired.
func (n *Network) ReplaceNodes(entries []Entry) error {
	n.mu.Lock()

	if n.closed {
		n.mu.Unlock()
		return fmt.Errorf("network closed")
	}

	nodes := make([]*Node, 0, len(entries))
	byAddr := make(map[string]*Node, len(entries))
	byID := make(map[entity.ID][]*Node)

	for _, e := range entries {
		if _, ok := byAddr[e.Address]; ok {
			continue
		}

		node, ok := n.byAddr[e.Address]
		switch {
		case !ok:
			node = NewNode(e, n.conf.NodeConfig)
		case node.accountID != e.AccountID.Base() || node.security != e.Security:
			old := node
			node = NewNode(e, n.conf.NodeConfig)
			if old.accountID == node.accountID {
				node.copyHealth(old)
			}
		}

		nodes = append(nodes, node)
		byAddr[e.Address] = node
		byID[node.accountID] = append(byID[node.accountID], node)
	}

	var removed []*Node
	for addr, node := range n.byAddr {
		if byAddr[addr] != node {
			removed = append(removed, node)
		}
	}

	n.nodes, n.byAddr, n.byID = nodes, byAddr, byID
	atomic.StoreUint64(&n.cursor, 0)

	n.mu.Unlock()

	for _, node := range removed {
		node.retire()
	}

	n.logger.WithFields(logrus.Fields{
		"nodes":   len(nodes),
		"retired": len(removed),
	}).Debug("Network membership replaced")

	return nil
}

// EntriesFromAddressBook turns an address book into node entries according to
// the addressing mode of the network.
func (n *Network) EntriesFromAddressBook(book *addressbook.AddressBook) []Entry {
	var entries []Entry

	for _, na := range book.NodeAddresses {
		for _, ep := range na.Endpoints {
			e := Entry{
				AccountID: na.AccountID,
				Security:  net.Security{Mode: n.conf.Mode},
			}

			switch n.conf.Mode {
			case net.TLS:
				ep.Port = tlsPort(ep.Port, n.conf.TLSPortOffset)
				e.Security.CertHash = na.CertHash
			}

			e.Address = ep.String()
			entries = append(entries, e)
		}
	}

	return entries
}

// tlsPort maps a plaintext node port to its TLS counterpart. Ports already
// known to be TLS ports are kept.
func tlsPort(port int32, offset int) int32 {
	switch port {
	case 0, 50212, 443:
		return port
	}
	return port + int32(offset)
}

// UpdateFromAddressBook replaces the membership with the nodes of book.
func (n *Network) UpdateFromAddressBook(book *addressbook.AddressBook) error {
	return n.ReplaceNodes(n.EntriesFromAddressBook(book))
}

// EntriesFromMap builds plaintext or proxy entries from an address → account
// map. Entries are sorted by account then address so that the selection order
// is deterministic.
func EntriesFromMap(nodes map[string]entity.ID, mode net.Mode) []Entry {
	entries := make([]Entry, 0, len(nodes))
	for addr, id := range nodes {
		entries = append(entries, Entry{
			Address:   addr,
			AccountID: id,
			Security:  net.Security{Mode: mode},
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].AccountID, entries[j].AccountID
		if a.Base() != b.Base() {
			return idLess(a, b)
		}
		return entries[i].Address < entries[j].Address
	})

	return entries
}

func idLess(a, b entity.ID) bool {
	if a.Shard != b.Shard {
		return a.Shard < b.Shard
	}
	if a.Realm != b.Realm {
		return a.Realm < b.Realm
	}
	return a.Num < b.Num
}

// String lists the nodes and their health.
func (n *Network) String() string {
	var s string
	for i, node := range n.Nodes() {
		if i > 0 {
			s += ", "
		}
		s += node.String() + "(" + node.Health().String() + ":" + strconv.Itoa(node.Failures()) + ")"
	}
	return "[" + s + "]"
}

// Close closes the channel of every node. Calls in flight fail with
// net.ErrChannelClosed. Closing twice is a no-op.
func (n *Network) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	nodes := n.nodes
	n.mu.Unlock()

	var result error
	for _, node := range nodes {
		node.mu.Lock()
		node.retired = true
		node.mu.Unlock()

		if err := node.closeChannel(); err != nil {
			result = multierror.Append(result, fmt.Errorf("closing %s: %w", node, err))
		}
	}

	return result
}
