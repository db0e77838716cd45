package addressbook

import (
	"fmt"
	"net"
	"sort"
	"strconv"

	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/wire"
)

// Endpoint is one reachable address of a node.
type Endpoint struct {
	Host string `json:"host"`
	Port int32  `json:"port"`
}

// String returns host:port.
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port)))
}

// ParseEndpoint splits a host:port string.
func ParseEndpoint(addr string) (Endpoint, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return Endpoint{}, err
	}

	p, err := strconv.ParseInt(port, 10, 32)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid port in %q: %w", addr, err)
	}

	return Endpoint{Host: host, Port: int32(p)}, nil
}

// NodeAddress describes one node: its identity, where to reach it and the
// hash of its TLS certificate.
type NodeAddress struct {
	NodeID      int64      `json:"nodeId"`
	AccountID   entity.ID  `json:"accountId"`
	Endpoints   []Endpoint `json:"endpoints"`
	CertHash    string     `json:"certHash,omitempty"`
	PublicKey   string     `json:"publicKey,omitempty"`
	Description string     `json:"description,omitempty"`
	Stake       int64      `json:"stake,omitempty"`
}

// AddressBook lists the nodes of a network.
type AddressBook struct {
	NodeAddresses []NodeAddress `json:"nodeAddresses"`
}

// New builds an address book from an address → account map, the shape used in
// configuration files. Nodes are sorted by account.
func New(nodes map[string]entity.ID) (*AddressBook, error) {
	byAccount := make(map[entity.ID]*NodeAddress)

	for addr, account := range nodes {
		ep, err := ParseEndpoint(addr)
		if err != nil {
			return nil, err
		}

		na, ok := byAccount[account.Base()]
		if !ok {
			na = &NodeAddress{AccountID: account.Base()}
			byAccount[account.Base()] = na
		}
		na.Endpoints = append(na.Endpoints, ep)
	}

	book := &AddressBook{}
	for _, na := range byAccount {
		sort.Slice(na.Endpoints, func(i, j int) bool {
			return na.Endpoints[i].String() < na.Endpoints[j].String()
		})
		book.NodeAddresses = append(book.NodeAddresses, *na)
	}

	sort.Slice(book.NodeAddresses, func(i, j int) bool {
		return book.NodeAddresses[i].AccountID.Num < book.NodeAddresses[j].AccountID.Num
	})

	for i := range book.NodeAddresses {
		book.NodeAddresses[i].NodeID = int64(i)
	}

	return book, nil
}

// Len returns the number of nodes.
func (ab *AddressBook) Len() int {
	return len(ab.NodeAddresses)
}

// ByAccount returns the entry of a node account.
func (ab *AddressBook) ByAccount(account entity.ID) (NodeAddress, bool) {
	for _, na := range ab.NodeAddresses {
		if na.AccountID.Base() == account.Base() {
			return na, true
		}
	}
	return NodeAddress{}, false
}

// Network returns the address → account map of the book.
func (ab *AddressBook) Network() map[string]entity.ID {
	res := make(map[string]entity.ID)
	for _, na := range ab.NodeAddresses {
		for _, ep := range na.Endpoints {
			res[ep.String()] = na.AccountID
		}
	}
	return res
}

// FromBytes decodes an address book published by the network.
func FromBytes(data []byte) (*AddressBook, error) {
	var wb wire.NodeAddressBook
	if err := wire.Unmarshal(data, &wb); err != nil {
		return nil, fmt.Errorf("decoding address book: %w", err)
	}

	book := &AddressBook{}
	for _, wn := range wb.NodeAddress {
		na := NodeAddress{
			NodeID:      wn.NodeID,
			AccountID:   entity.FromWire(wn.NodeAccountID),
			CertHash:    string(wn.NodeCertHash),
			PublicKey:   wn.RSAPubKey,
			Description: wn.Description,
			Stake:       wn.Stake,
		}

		for _, se := range wn.ServiceEndpoint {
			host := se.DomainName
			if len(se.IPAddressV4) == 4 {
				host = net.IP(se.IPAddressV4).String()
			}
			na.Endpoints = append(na.Endpoints, Endpoint{Host: host, Port: se.Port})
		}

		book.NodeAddresses = append(book.NodeAddresses, na)
	}

	return book, nil
}

// ToBytes encodes the address book the way the network publishes it.
func (ab *AddressBook) ToBytes() ([]byte, error) {
	var wb wire.NodeAddressBook

	for _, na := range ab.NodeAddresses {
		wn := wire.NodeAddress{
			NodeID:        na.NodeID,
			NodeAccountID: na.AccountID.ToWire(),
			RSAPubKey:     na.PublicKey,
			Description:   na.Description,
			Stake:         na.Stake,
		}
		if na.CertHash != "" {
			wn.NodeCertHash = []byte(na.CertHash)
		}

		for _, ep := range na.Endpoints {
			se := wire.ServiceEndpoint{Port: ep.Port}
			if ip := net.ParseIP(ep.Host).To4(); ip != nil {
				se.IPAddressV4 = ip
			} else {
				se.DomainName = ep.Host
			}
			wn.ServiceEndpoint = append(wn.ServiceEndpoint, se)
		}

		wb.NodeAddress = append(wb.NodeAddress, wn)
	}

	return wire.Marshal(&wb)
}
