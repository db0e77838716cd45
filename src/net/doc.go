// Package net implements the channels used to talk to ledger nodes.
//
// A Channel carries opaque request bytes to one node and returns the response
// bytes. Channels are created lazily by the node that owns them, reused for
// every request sent to that node, and closed when the node leaves the
// network. Closing a channel makes calls in flight on it fail immediately.
//
// There are three implementations:
//
// - GRPC: the transport spoken by ledger nodes. Requests are sent as raw
// bytes with a pass-through codec, so no generated stubs are needed.
//
// - TCP: a lightweight framed protocol over a StreamLayer, plain TCP or TLS.
// Each request is framed as the msgpack encoded method name followed by the
// request bytes. The response is an error string followed by the response
// bytes. Server is the listening side of this protocol.
//
// - Inmem: in-memory channels routed by an InmemRouter, used to run whole
// networks inside a test.
//
// # Addressing
//
// Security describes how a node is reached. In plaintext mode the address is
// dialed as is. In TLS mode the node's certificate is pinned to the SHA-384
// hash published in the address book. In proxy mode the address is a TLS
// proxy whose certificate is verified against the system roots.
package net
