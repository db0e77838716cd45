package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/mosaicnetworks/hgclient/src/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultKeyfile is the default name of the file containing the operator's
	// private key
	DefaultKeyfile = "operator_key"

	// DefaultAddressBookFile is the default name of the JSON address book.
	DefaultAddressBookFile = "addressbook.json"

	// DefaultConfigName is the name, without extension, of the configuration
	// file looked up in the data directory.
	DefaultConfigName = "hgclient"
)

// Addressing modes.
const (
	AddressModePlaintext = "plaintext"
	AddressModeTLS       = "tls"
	AddressModeProxy     = "proxy"
)

// Transports.
const (
	TransportGRPC = "grpc"
	TransportTCP  = "tcp"
)

// Default configuration values.
const (
	DefaultLogLevel                 = "info"
	DefaultNetwork                  = "testnet"
	DefaultAddressMode              = AddressModePlaintext
	DefaultTransport                = TransportGRPC
	DefaultMaxPool                  = 2
	DefaultMaxAttempts              = 10
	DefaultMinBackoff               = 250 * time.Millisecond
	DefaultMaxBackoff               = 8 * time.Second
	DefaultNodeMinBackoff           = 8 * time.Second
	DefaultNodeMaxBackoff           = 1 * time.Hour
	DefaultGRPCDeadline             = 10 * time.Second
	DefaultRequestTimeout           = 2 * time.Minute
	DefaultMaxNodesPerTransaction   = 0
	DefaultMaxTransactionFee        = 200000000
	DefaultMaxQueryPayment          = 100000000
	DefaultTransactionValidDuration = 120 * time.Second
	DefaultAutoValidateChecksums    = true
	DefaultTLSPortOffset            = 1
)

// Config contains all the configuration properties of a client.
type Config struct {
	// DataDir is the directory containing the operator key and the cached
	// address book.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// Network is the name of the ledger network. It selects the ledger id
	// used to compute and validate entity checksums.
	Network string `mapstructure:"network"`

	// Nodes lists the nodes of the network as "account@host:port", for
	// example "0.0.3@35.237.200.180:50211". When empty, the nodes are read
	// from the address book file.
	Nodes []string `mapstructure:"nodes"`

	// AddressBook is the path of a JSON address book. Defaults to
	// addressbook.json in the data directory.
	AddressBook string `mapstructure:"address-book"`

	// AddressMode is one of plaintext, tls or proxy. In tls mode, node ports
	// are shifted by TLSPortOffset and certificates are pinned to the hash
	// published in the address book. In proxy mode, node addresses are TLS
	// proxies verified against the system roots.
	AddressMode string `mapstructure:"address-mode"`

	// TLSPortOffset is added to plaintext ports in tls mode (50211 → 50212).
	TLSPortOffset int `mapstructure:"tls-port-offset"`

	// Transport is grpc or tcp.
	Transport string `mapstructure:"transport"`

	// MaxPool controls how many connections are pooled per node by the tcp
	// transport.
	MaxPool int `mapstructure:"max-pool"`

	// MaxAttempts is the maximum number of attempts for one request.
	MaxAttempts int `mapstructure:"max-attempts"`

	// MinBackoff and MaxBackoff bound the wait between attempts of a request.
	MinBackoff time.Duration `mapstructure:"min-backoff"`
	MaxBackoff time.Duration `mapstructure:"max-backoff"`

	// NodeMinBackoff and NodeMaxBackoff bound how long a failing node is kept
	// out of selection.
	NodeMinBackoff time.Duration `mapstructure:"node-min-backoff"`
	NodeMaxBackoff time.Duration `mapstructure:"node-max-backoff"`

	// GRPCDeadline is the timeout of a single call to a node.
	GRPCDeadline time.Duration `mapstructure:"grpc-deadline"`

	// RequestTimeout is the overall deadline of a request, all attempts
	// included.
	RequestTimeout time.Duration `mapstructure:"request-timeout"`

	// MaxNodesPerTransaction caps the number of nodes a transaction is frozen
	// for when the caller does not choose them. 0 means all nodes.
	MaxNodesPerTransaction int `mapstructure:"max-nodes-per-transaction"`

	// MaxTransactionFee is the default fee limit of transactions, in tinybars.
	MaxTransactionFee uint64 `mapstructure:"max-transaction-fee"`

	// MaxQueryPayment is the default payment limit of paid queries, in
	// tinybars.
	MaxQueryPayment uint64 `mapstructure:"max-query-payment"`

	// TransactionValidDuration is the valid window of transactions.
	TransactionValidDuration time.Duration `mapstructure:"transaction-valid-duration"`

	// AutoValidateChecksums validates the checksum of every entity id against
	// Network before a request is sent.
	AutoValidateChecksums bool `mapstructure:"auto-validate-checksums"`

	// OperatorID is the account paying for transactions and queries.
	OperatorID string `mapstructure:"operator-id"`

	// OperatorKey is the path of the operator's key file. Defaults to
	// operator_key in the data directory.
	OperatorKey string `mapstructure:"operator-key"`

	// Registerer receives the client's prometheus collectors. Metrics are
	// disabled when nil.
	Registerer prometheus.Registerer `mapstructure:"-"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:                  DefaultDataDir(),
		LogLevel:                 DefaultLogLevel,
		Network:                  DefaultNetwork,
		AddressMode:              DefaultAddressMode,
		TLSPortOffset:            DefaultTLSPortOffset,
		Transport:                DefaultTransport,
		MaxPool:                  DefaultMaxPool,
		MaxAttempts:              DefaultMaxAttempts,
		MinBackoff:               DefaultMinBackoff,
		MaxBackoff:               DefaultMaxBackoff,
		NodeMinBackoff:           DefaultNodeMinBackoff,
		NodeMaxBackoff:           DefaultNodeMaxBackoff,
		GRPCDeadline:             DefaultGRPCDeadline,
		RequestTimeout:           DefaultRequestTimeout,
		MaxNodesPerTransaction:   DefaultMaxNodesPerTransaction,
		MaxTransactionFee:        DefaultMaxTransactionFee,
		MaxQueryPayment:          DefaultMaxQueryPayment,
		TransactionValidDuration: DefaultTransactionValidDuration,
		AutoValidateChecksums:    DefaultAutoValidateChecksums,
	}

	return config
}

// NewTestConfig returns a config object with short timeouts and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.DataDir = t.TempDir()
	config.Network = "local-node"
	config.MinBackoff = 5 * time.Millisecond
	config.MaxBackoff = 20 * time.Millisecond
	config.NodeMinBackoff = 50 * time.Millisecond
	config.NodeMaxBackoff = 400 * time.Millisecond
	config.GRPCDeadline = 500 * time.Millisecond
	config.RequestTimeout = 5 * time.Second
	config.logger = common.NewTestLogger(t, level)
	return config
}

// LoadFile reads a configuration file on top of the default values. The
// format is deduced from the file extension.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	config := NewDefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("decoding config %s: %w", path, err)
	}

	return config, config.Validate()
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.AddressMode {
	case AddressModePlaintext, AddressModeTLS, AddressModeProxy:
	default:
		return fmt.Errorf("unknown address mode %q", c.AddressMode)
	}

	switch c.Transport {
	case TransportGRPC, TransportTCP:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}

	if c.MaxAttempts < 1 {
		return fmt.Errorf("max-attempts must be at least 1, got %d", c.MaxAttempts)
	}

	if c.MinBackoff > c.MaxBackoff {
		return fmt.Errorf("min-backoff %s exceeds max-backoff %s", c.MinBackoff, c.MaxBackoff)
	}

	if c.NodeMinBackoff > c.NodeMaxBackoff {
		return fmt.Errorf("node-min-backoff %s exceeds node-max-backoff %s", c.NodeMinBackoff, c.NodeMaxBackoff)
	}

	return nil
}

// SetDataDir sets the data directory.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
}

// Keyfile returns the full path of the file containing the operator key.
func (c *Config) Keyfile() string {
	if c.OperatorKey != "" {
		return c.OperatorKey
	}
	return filepath.Join(c.DataDir, DefaultKeyfile)
}

// AddressBookFile returns the full path of the JSON address book.
func (c *Config) AddressBookFile() string {
	if c.AddressBook != "" {
		return c.AddressBook
	}
	return filepath.Join(c.DataDir, DefaultAddressBookFile)
}

// ParseNodes splits Nodes into account and address pairs.
func (c *Config) ParseNodes() (map[string]string, error) {
	res := make(map[string]string, len(c.Nodes))
	for _, n := range c.Nodes {
		i := strings.IndexByte(n, '@')
		if i <= 0 || i == len(n)-1 {
			return nil, fmt.Errorf("invalid node %q, expected account@host:port", n)
		}
		res[n[i+1:]] = n[:i]
	}
	return res, nil
}

// Logger returns a formatted logrus Entry, with prefix set to "hgclient".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
	}
	return c.logger.WithField("prefix", "hgclient")
}

// SetLogger replaces the logger returned by Logger.
func (c *Config) SetLogger(logger *logrus.Logger) {
	c.logger = logger
}

// DefaultDataDir return the default data directory based on the underlying
// OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".HGClient")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "HGClient")
		} else {
			return filepath.Join(home, ".hgclient")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
