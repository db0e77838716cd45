// Package transaction implements signed, state-changing requests.
//
// A transaction is configured on a mutable Builder and then frozen for a set
// of nodes. Freezing produces an immutable *Transaction holding one envelope
// per (node, chunk) pair, stored in a flat arena indexed by
// chunk*len(nodes)+node. Every envelope carries the same logical body; only
// the node account slot differs between the envelopes of one chunk. Bodies
// whose payload exceeds the chunk size are split into an ordered chain of
// chunks sharing the initial TransactionID.
//
// Signatures are appended to a frozen Transaction and propagate to every
// envelope. Chunks are submitted in order through the executable engine, one
// at a time.
package transaction
