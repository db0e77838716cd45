// Package client ties the pieces of the library together.
//
// A Client owns a Network built from its configuration, the operator that
// pays for requests by default, the registry used to decode serialized
// transactions and, optionally, a set of prometheus metrics. It implements
// the executor interfaces of the transaction and query packages, so requests
// are executed by passing the client to them:
//
//	c, err := client.New(conf)
//	...
//	b := transaction.NewTransferTransaction()
//	b.Body().AddHbarTransfer(from, -10).AddHbarTransfer(to, 10)
//	resp, err := b.Execute(ctx, c)
//	...
//	receipt, err := c.GetReceipt(ctx, resp)
//
// Clients are safe for concurrent use and share nothing with each other.
package client
