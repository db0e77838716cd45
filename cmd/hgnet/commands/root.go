package commands

import (
	"os"

	"github.com/mosaicnetworks/hgclient/src/client"
	"github.com/mosaicnetworks/hgclient/src/config"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var (
	_config = NewDefaultCLIConfig()
)

func init() {
	flags := RootCmd.PersistentFlags()

	flags.String("datadir", _config.Client.DataDir, "Top-level directory for configuration and data")
	flags.String("log", _config.Client.LogLevel, "debug, info, warn, error, fatal, panic")
	flags.String("log-file", _config.LogFile, "Also write logs to this file")

	// Network
	flags.String("network", _config.Client.Network, "mainnet, testnet, previewnet, local-node or a custom ledger name")
	flags.StringSlice("nodes", _config.Client.Nodes, "Nodes as account@host:port, instead of the address book")
	flags.String("address-book", _config.Client.AddressBook, "JSON address book (defaults to [datadir]/addressbook.json)")
	flags.String("address-mode", _config.Client.AddressMode, "plaintext, tls or proxy")
	flags.String("transport", _config.Client.Transport, "grpc or tcp")
	flags.Int("max-pool", _config.Client.MaxPool, "Connection pool size max (tcp transport)")

	// Requests
	flags.Int("max-attempts", _config.Client.MaxAttempts, "Max attempts per request")
	flags.Duration("grpc-deadline", _config.Client.GRPCDeadline, "Timeout of a single call to a node")
	flags.Duration("request-timeout", _config.Client.RequestTimeout, "Timeout of a request, all attempts included")

	// Operator
	flags.String("operator-id", _config.Client.OperatorID, "Account paying for requests")
	flags.String("operator-key", _config.Client.OperatorKey, "Operator key file (defaults to [datadir]/operator_key)")
}

// RootCmd is the root command for hgnet
var RootCmd = &cobra.Command{
	Use:               "hgnet",
	Short:             "ledger network diagnostics",
	TraverseChildren:  true,
	PersistentPreRunE: loadConfig,
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if err := bindFlagsLoadViper(cmd); err != nil {
		return err
	}

	_config.Client.SetLogger(newLogger())

	_config.Client.Logger().WithFields(logrus.Fields{
		"DataDir":     _config.Client.DataDir,
		"Network":     _config.Client.Network,
		"Nodes":       _config.Client.Nodes,
		"AddressBook": _config.Client.AddressBookFile(),
		"AddressMode": _config.Client.AddressMode,
		"Transport":   _config.Client.Transport,
		"MaxAttempts": _config.Client.MaxAttempts,
		"OperatorID":  _config.Client.OperatorID,
	}).Debug("Config")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/hgclient.toml (.json, .yaml also work)
	viper.SetConfigName(config.DefaultConfigName)
	viper.AddConfigPath(_config.Client.DataDir)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	// second unmarshal to read from config file
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	return _config.Client.Validate()
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.Level = config.LogLevel(_config.Client.LogLevel)
	logger.Formatter = new(prefixed.TextFormatter)

	if _config.LogFile == "" {
		return logger
	}

	f, err := os.OpenFile(_config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		logger.Infof("Failed to open %s, using default stderr", _config.LogFile)
		return logger
	}
	f.Close()

	logger.Hooks.Add(lfshook.NewHook(
		lfshook.PathMap{
			logrus.DebugLevel: _config.LogFile,
			logrus.InfoLevel:  _config.LogFile,
			logrus.WarnLevel:  _config.LogFile,
			logrus.ErrorLevel: _config.LogFile,
		},
		&logrus.TextFormatter{},
	))

	return logger
}

func newClient() (*client.Client, error) {
	return client.New(&_config.Client)
}
