package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/hgclient/src/addressbook"
	"github.com/mosaicnetworks/hgclient/src/client"
	"github.com/mosaicnetworks/hgclient/src/config"
	"github.com/mosaicnetworks/hgclient/src/crypto/keys"
	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/mock"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	localnetSize     = 4
	localnetHost     = "127.0.0.1"
	localnetPort     = 50211
	localnetOperator = "0.0.2"
	localnetBalance  = int64(5000000000000)
)

// NewLocalnetCmd returns the command that runs a local network of mock nodes
func NewLocalnetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "localnet",
		Short: "Run a local network of mock nodes",
		Long: `Run a local network of mock nodes on consecutive ports and write its
address book to the data directory, so that other hgnet commands run against
it. The operator account is funded with the operator key, which is created if
missing.`,
		RunE: localnet,
	}

	cmd.Flags().IntVar(&localnetSize, "size", localnetSize, "Number of nodes")
	cmd.Flags().StringVar(&localnetHost, "host", localnetHost, "Host the nodes listen on")
	cmd.Flags().IntVar(&localnetPort, "port", localnetPort, "Port of the first node")
	cmd.Flags().StringVar(&localnetOperator, "operator", localnetOperator, "Funded operator account")

	return cmd
}

func localnet(cmd *cobra.Command, args []string) error {
	logger := _config.Client.Logger()

	operator, err := entity.ParseID(localnetOperator)
	if err != nil {
		return err
	}

	key, err := operatorKey(&_config.Client)
	if err != nil {
		return err
	}

	mn := mock.NewNetwork(localnetSize, logger.WithField("component", "localnet"))
	defer mn.Close()

	mn.Ledger.CreateAccount(operator, key.PublicKey(), localnetBalance)

	var nodes map[string]entity.ID
	switch _config.Client.Transport {
	case config.TransportTCP:
		nodes, err = mn.ServeTCP(localnetHost, localnetPort)
	default:
		nodes, err = mn.ServeGRPC(localnetHost, localnetPort)
	}
	if err != nil {
		return err
	}

	book, err := addressbook.New(nodes)
	if err != nil {
		return err
	}

	path := _config.Client.AddressBookFile()
	if err := addressbook.NewJSONAddressBook(path).Write(book); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"nodes":        nodes,
		"transport":    _config.Client.Transport,
		"address_book": path,
		"operator":     operator.String(),
	}).Info("Local network running")

	fmt.Printf("Local network of %d nodes running. Operator %s, address book %s\n", localnetSize, operator, path)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Info("Stopping local network")

	return nil
}

func operatorKey(conf *config.Config) (keys.PrivateKey, error) {
	key, err := keys.NewSimpleKeyfile(conf.Keyfile()).ReadKey()
	if err == nil {
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	return client.Keygen(conf)
}
