// Package config defines the configuration of a ledger client.
//
// Regardless of how the client is created, directly from Go code or by the
// hgnet command, it uses the Config object defined in this package. Values can
// be loaded from a yaml, toml or json file with LoadFile. On top of these
// options, the client relies on a data directory, defined by Config.DataDir,
// where it expects to find a few additional files:
//
//	operator_key // a plain text file containing the operator's private key.
//	addressbook.json // (optional) a JSON copy of the last known address book.
package config
