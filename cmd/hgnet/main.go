package main

import (
	"os"

	cmd "github.com/mosaicnetworks/hgclient/cmd/hgnet/commands"
)

func main() {
	rootCmd := cmd.RootCmd

	rootCmd.AddCommand(
		cmd.VersionCmd,
		cmd.NewKeygenCmd(),
		cmd.NewPingCmd(),
		cmd.NewBalanceCmd(),
		cmd.NewAddressBookCmd(),
		cmd.NewLocalnetCmd())

	//Do not print usage when error occurs
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
