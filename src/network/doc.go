// Package network keeps the client's view of the ledger nodes.
//
// A Network owns a set of Nodes, one per node address. Each Node tracks its
// own health: consecutive failures push it into an exponentially growing
// backoff window during which it is only selected if nothing better exists.
// Successes bring it back to its minimum backoff.
//
// Membership is replaced wholesale (ReplaceNodes, UpdateFromAddressBook).
// Nodes that survive a replacement keep their health and channel. Removed
// nodes are retired: attempts already holding them finish normally and their
// channel is closed when the last one releases it.
package network
