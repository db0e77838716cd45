package commands

import (
	"context"
	"fmt"

	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/query"
	"github.com/spf13/cobra"
)

// NewBalanceCmd returns the command that queries the balance of an account
func NewBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance [account]",
		Short: "Show the balance of an account",
		Args:  cobra.ExactArgs(1),
		RunE:  balance,
	}
}

func balance(cmd *cobra.Command, args []string) error {
	id, err := entity.ParseID(args[0])
	if err != nil {
		return err
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Close()

	b, err := query.NewAccountBalanceQuery(id).Execute(context.Background(), c)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d tinybars\n", b.AccountID.StringWithChecksum(c.Ledger()), b.Balance)

	return nil
}
