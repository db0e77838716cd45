package client

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/mosaicnetworks/hgclient/src/addressbook"
	"github.com/mosaicnetworks/hgclient/src/config"
	"github.com/mosaicnetworks/hgclient/src/crypto/keys"
	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/executable"
	"github.com/mosaicnetworks/hgclient/src/net"
	"github.com/mosaicnetworks/hgclient/src/network"
	"github.com/mosaicnetworks/hgclient/src/query"
	"github.com/mosaicnetworks/hgclient/src/telemetry"
	"github.com/mosaicnetworks/hgclient/src/transaction"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Client submits transactions and queries to a ledger network.
type Client struct {
	Config *config.Config

	network  *network.Network
	factory  net.ChannelFactory
	registry *transaction.Registry
	metrics  *telemetry.Metrics
	book     *addressbook.JSONAddressBook

	mu       sync.RWMutex
	operator *transaction.Operator

	logger *logrus.Entry
}

// New creates a client from conf. Channels are created with the transport
// named by the configuration.
func New(conf *config.Config) (*Client, error) {
	return NewWithFactory(conf, nil)
}

// NewWithFactory creates a client whose channels come from factory, for
// example an in-memory router. A nil factory selects the configured
// transport.
func NewWithFactory(conf *config.Config, factory net.ChannelFactory) (*Client, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		Config:   conf,
		factory:  factory,
		registry: transaction.DefaultRegistry(),
		book:     addressbook.NewJSONAddressBook(conf.AddressBookFile()),
		logger:   conf.Logger(),
	}

	if err := c.init(); err != nil {
		if c.network != nil {
			c.network.Close()
		}
		return nil, err
	}

	return c, nil
}

func (c *Client) init() error {
	if err := c.initMetrics(); err != nil {
		return err
	}

	if err := c.initFactory(); err != nil {
		return err
	}

	if err := c.initNetwork(); err != nil {
		return err
	}

	if err := c.initOperator(); err != nil {
		return err
	}

	return nil
}

func (c *Client) initMetrics() error {
	metrics, err := telemetry.NewMetrics(c.Config.Registerer)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}
	c.metrics = metrics
	return nil
}

func (c *Client) initFactory() error {
	if c.factory != nil {
		return nil
	}

	switch c.Config.Transport {
	case config.TransportGRPC:
		c.factory = net.NewGRPCChannelFactory()
	case config.TransportTCP:
		c.factory = net.NewNetworkChannelFactory(c.Config.MaxPool, c.Config.GRPCDeadline, c.logger)
	default:
		return fmt.Errorf("unknown transport %q", c.Config.Transport)
	}

	return nil
}

func (c *Client) initNetwork() error {
	mode, err := net.ParseMode(c.Config.AddressMode)
	if err != nil {
		return err
	}

	c.network = network.NewNetwork(network.Config{
		Ledger:        entity.LedgerIDForName(c.Config.Network),
		Mode:          mode,
		TLSPortOffset: c.Config.TLSPortOffset,
		NodeConfig: network.NodeConfig{
			MinBackoff: c.Config.NodeMinBackoff,
			MaxBackoff: c.Config.NodeMaxBackoff,
			Factory:    c.factory,
			Logger:     c.logger,
		},
	})

	if len(c.Config.Nodes) > 0 {
		nodes, err := ParseNodes(c.Config.Nodes)
		if err != nil {
			return err
		}
		return c.network.ReplaceNodes(network.EntriesFromMap(nodes, mode))
	}

	c.logger.WithField("path", c.book.Path()).Debug("Loading address book")

	book, err := c.book.Read()
	if err != nil {
		return fmt.Errorf("reading address book: %w", err)
	}
	if book.Len() == 0 {
		return fmt.Errorf("no nodes configured and address book %s is empty", c.book.Path())
	}

	return c.network.UpdateFromAddressBook(book)
}

func (c *Client) initOperator() error {
	if c.Config.OperatorID == "" {
		return nil
	}

	account, err := entity.ParseID(c.Config.OperatorID)
	if err != nil {
		return fmt.Errorf("operator id: %w", err)
	}

	key, err := keys.NewSimpleKeyfile(c.Config.Keyfile()).ReadKey()
	if err != nil {
		return fmt.Errorf("reading operator key: %w", err)
	}

	c.SetOperator(account, key)

	c.logger.WithFields(logrus.Fields{
		"operator":   account.String(),
		"public_key": key.PublicKey().String(),
	}).Debug("Operator set")

	return nil
}

// ParseNodes parses "account@host:port" node descriptions into an address
// book map.
func ParseNodes(nodes []string) (map[string]entity.ID, error) {
	conf := config.Config{Nodes: nodes}

	parsed, err := conf.ParseNodes()
	if err != nil {
		return nil, err
	}

	res := make(map[string]entity.ID, len(parsed))
	for addr, account := range parsed {
		id, err := entity.ParseID(account)
		if err != nil {
			return nil, err
		}
		res[addr] = id
	}
	return res, nil
}

// SetOperator sets the account paying for requests and the key signing for
// it.
func (c *Client) SetOperator(account entity.AccountID, key keys.PrivateKey) {
	c.SetOperatorWith(account, key.PublicKey(), keys.SignerOf(key))
}

// SetOperatorWith sets the operator with an external signer.
func (c *Client) SetOperatorWith(account entity.AccountID, pub keys.PublicKey, signer keys.Signer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.operator = &transaction.Operator{
		AccountID: account,
		PublicKey: pub,
		Signer:    signer,
	}
}

// Operator implements transaction.Executor.
func (c *Client) Operator() *transaction.Operator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.operator
}

// Network implements transaction.Executor.
func (c *Client) Network() *network.Network {
	return c.network
}

// ExecuteOptions implements transaction.Executor.
func (c *Client) ExecuteOptions() executable.Options {
	opts := executable.Options{
		MaxAttempts:    c.Config.MaxAttempts,
		MinBackoff:     c.Config.MinBackoff,
		MaxBackoff:     c.Config.MaxBackoff,
		GRPCDeadline:   c.Config.GRPCDeadline,
		RequestTimeout: c.Config.RequestTimeout,
		Logger:         c.logger,
	}
	if c.metrics != nil {
		opts.Observer = c.metrics
	}
	return opts
}

// Settings implements transaction.Executor.
func (c *Client) Settings() transaction.Settings {
	return transaction.Settings{
		MaxTransactionFee:      c.Config.MaxTransactionFee,
		ValidDuration:          c.Config.TransactionValidDuration,
		MaxNodesPerTransaction: c.Config.MaxNodesPerTransaction,
		AutoValidateChecksums:  c.Config.AutoValidateChecksums,
	}
}

// MaxQueryPayment implements query.Executor.
func (c *Client) MaxQueryPayment() uint64 {
	return c.Config.MaxQueryPayment
}

// Logger implements transaction.Executor.
func (c *Client) Logger() *logrus.Entry {
	return c.logger
}

// Ledger returns the ledger id of the network.
func (c *Client) Ledger() entity.LedgerID {
	return c.network.Ledger()
}

// Metrics returns the client's metrics, nil when disabled.
func (c *Client) Metrics() *telemetry.Metrics {
	return c.metrics
}

// Registry returns the registry used to decode transactions.
func (c *Client) Registry() *transaction.Registry {
	return c.registry
}

// TransactionFromBytes decodes a transaction serialized with ToBytes.
func (c *Client) TransactionFromBytes(data []byte) (*transaction.Transaction, error) {
	return transaction.FromBytes(c.registry, data)
}

// GetReceipt polls the receipt of a transaction on the node that accepted it.
func (c *Client) GetReceipt(ctx context.Context, resp *transaction.Response) (query.Receipt, error) {
	return query.GetReceipt(ctx, c, resp.TransactionID, resp.NodeID)
}

// WaitForReceipt implements transaction.Executor.
func (c *Client) WaitForReceipt(ctx context.Context, id transaction.TransactionID, node entity.AccountID) error {
	_, err := query.GetReceipt(ctx, c, id, node)
	return err
}

// Ping sends a free query to the given node account.
func (c *Client) Ping(ctx context.Context, node entity.AccountID) error {
	_, err := query.NewAccountBalanceQuery(node).
		SetNodeAccountIDs([]entity.ID{node}).
		Execute(ctx, c)
	return err
}

// PingAll pings every node account of the network concurrently and returns
// the first error.
func (c *Client) PingAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, id := range c.network.NodeAccountIDs(0) {
		id := id
		g.Go(func() error {
			if err := c.Ping(ctx, id); err != nil {
				return fmt.Errorf("ping %s: %w", id, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// UpdateNetwork replaces the nodes of the network with those of book and
// saves it as the client's address book file.
func (c *Client) UpdateNetwork(book *addressbook.AddressBook) error {
	if err := c.network.UpdateFromAddressBook(book); err != nil {
		return err
	}
	return c.book.Write(book)
}

// AddressBook returns the address book file of the client.
func (c *Client) AddressBook() *addressbook.JSONAddressBook {
	return c.book
}

// Close closes the channels of every node. In-flight requests fail.
func (c *Client) Close() error {
	var result error

	if err := c.network.Close(); err != nil {
		result = multierror.Append(result, err)
	}

	if c.Config.Registerer != nil && c.metrics != nil {
		c.metrics.Unregister(c.Config.Registerer)
	}

	return result
}

// Keygen creates an Ed25519 operator key at the configured key file path. It
// fails if a file is already there.
func Keygen(conf *config.Config) (keys.PrivateKey, error) {
	path := conf.Keyfile()

	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("another key already lives at %s", path)
	}

	key, err := keys.GeneratePrivateKey(keys.Ed25519)
	if err != nil {
		return nil, err
	}

	if err := keys.NewSimpleKeyfile(path).WriteKey(key); err != nil {
		return nil, err
	}

	return key, nil
}
