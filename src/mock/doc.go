// Package mock implements an in-process ledger that answers the requests of
// the client like real nodes do, to run local networks and tests.
//
// A Ledger holds the state shared by the nodes: accounts and their keys and
// balances, files, topics and receipts. Each Node is a net.Handler bound to
// one node account of the ledger. Nodes can be scripted to fail, report busy
// statuses or delay receipts, so that the retry behaviour of the client can be
// exercised deterministically.
package mock
