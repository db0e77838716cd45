package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mosaicnetworks/hgclient/src/addressbook"
	"github.com/spf13/cobra"
)

// NewAddressBookCmd returns the address book command and its subcommands
func NewAddressBookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "addressbook",
		Short: "Inspect and convert address books",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "print [file]",
			Short: "Print an address book, binary or .json",
			Args:  cobra.ExactArgs(1),
			RunE:  printAddressBook,
		},
		&cobra.Command{
			Use:   "convert [in] [out]",
			Short: "Convert an address book between the binary and .json forms",
			Args:  cobra.ExactArgs(2),
			RunE:  convertAddressBook,
		},
	)

	return cmd
}

func readAddressBook(path string) (*addressbook.AddressBook, error) {
	if filepath.Ext(path) == ".json" {
		return addressbook.NewJSONAddressBook(path).Read()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return addressbook.FromBytes(data)
}

func writeAddressBook(path string, book *addressbook.AddressBook) error {
	if filepath.Ext(path) == ".json" {
		return addressbook.NewJSONAddressBook(path).Write(book)
	}

	data, err := book.ToBytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func printAddressBook(cmd *cobra.Command, args []string) error {
	book, err := readAddressBook(args[0])
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(book, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))

	return nil
}

func convertAddressBook(cmd *cobra.Command, args []string) error {
	book, err := readAddressBook(args[0])
	if err != nil {
		return err
	}

	if err := writeAddressBook(args[1], book); err != nil {
		return err
	}

	fmt.Printf("Wrote %d nodes to %s\n", book.Len(), args[1])

	return nil
}
