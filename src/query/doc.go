// Package query implements read-only requests to the ledger.
//
// A Query pairs a Body, which says what is asked, with a decoder that turns
// the node's answer into a Go value. Queries run through the same retry
// engine as transactions.
//
// Some queries must be paid for. Before such a query is sent, the node's
// price is fetched with a COST_ANSWER request, unless an explicit amount
// was set. The price is checked against the maximum query payment, and a
// transfer from the operator to each candidate node is then frozen and
// signed. Every payment shares one transaction id, so at most one of them
// is ever applied.
package query
