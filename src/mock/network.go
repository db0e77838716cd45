package mock

import (
	"fmt"
	gonet "net"

	"github.com/hashicorp/go-multierror"
	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/net"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
)

// FirstNodeAccount is the account of the first node of a mock network. The
// following nodes use the next account numbers.
const FirstNodeAccount = 3

// Network is a set of mock nodes sharing one ledger.
type Network struct {
	Ledger *Ledger
	Nodes  []*Node

	closers []func() error
	logger  *logrus.Entry
}

// NewNetwork creates size nodes on a new ledger.
func NewNetwork(size int, logger *logrus.Entry) *Network {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	ledger := NewLedger(logger)

	nw := &Network{Ledger: ledger, logger: logger}
	for i := 0; i < size; i++ {
		nw.Nodes = append(nw.Nodes, NewNode(entity.NewID(0, 0, uint64(FirstNodeAccount+i)), ledger))
	}

	return nw
}

// ConnectInmem registers every node on router and returns the address book
// map of the network.
func (nw *Network) ConnectInmem(router *net.InmemRouter) map[string]entity.ID {
	res := make(map[string]entity.ID, len(nw.Nodes))
	for _, n := range nw.Nodes {
		addr := net.NewInmemAddr()
		router.Connect(addr, n)
		res[addr] = n.AccountID()
	}
	return res
}

// ServeTCP starts a framed TCP server per node on host, on consecutive ports
// from basePort. Port 0 picks free ports.
func (nw *Network) ServeTCP(host string, basePort int) (map[string]entity.ID, error) {
	res := make(map[string]entity.ID, len(nw.Nodes))

	for i, n := range nw.Nodes {
		bind := gonet.JoinHostPort(host, portFor(basePort, i))

		srv, err := net.NewTCPServer(bind, n, nw.logger.WithField("node", n.AccountID().String()))
		if err != nil {
			nw.Close()
			return nil, fmt.Errorf("starting node %s: %w", n.AccountID(), err)
		}

		go srv.Listen()

		nw.closers = append(nw.closers, srv.Close)
		res[srv.Addr()] = n.AccountID()
	}

	return res, nil
}

// ServeGRPC starts a gRPC server per node on host, on consecutive ports from
// basePort. Port 0 picks free ports.
func (nw *Network) ServeGRPC(host string, basePort int, opts ...grpc.ServerOption) (map[string]entity.ID, error) {
	res := make(map[string]entity.ID, len(nw.Nodes))

	for i, n := range nw.Nodes {
		lis, err := gonet.Listen("tcp", gonet.JoinHostPort(host, portFor(basePort, i)))
		if err != nil {
			nw.Close()
			return nil, fmt.Errorf("starting node %s: %w", n.AccountID(), err)
		}

		srv := net.NewGRPCServer(n, opts...)

		go func() {
			if err := srv.Serve(lis); err != nil {
				nw.logger.WithError(err).Debug("gRPC server stopped")
			}
		}()

		nw.closers = append(nw.closers, func() error {
			srv.Stop()
			return nil
		})
		res[lis.Addr().String()] = n.AccountID()
	}

	return res, nil
}

func portFor(base, i int) string {
	if base == 0 {
		return "0"
	}
	return fmt.Sprint(base + i)
}

// Close stops every server started by the network.
func (nw *Network) Close() error {
	var result error
	for _, c := range nw.closers {
		if err := c(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	nw.closers = nil
	return result
}
