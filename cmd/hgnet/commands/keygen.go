package commands

import (
	"fmt"

	"github.com/mosaicnetworks/hgclient/src/client"
	"github.com/spf13/cobra"
)

// NewKeygenCmd produces a KeygenCmd which creates the operator key
func NewKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Create a new operator key",
		RunE:  keygen,
	}
}

func keygen(cmd *cobra.Command, args []string) error {
	key, err := client.Keygen(&_config.Client)
	if err != nil {
		return err
	}

	fmt.Printf("Your private key has been saved to: %s\n", _config.Client.Keyfile())
	fmt.Printf("Public key: %s\n", key.PublicKey())

	return nil
}
