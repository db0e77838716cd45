// Package executable implements the retry engine shared by queries and
// transactions.
//
// An Executable describes one logical request: which nodes may serve it, how
// to build the bytes sent to a given node, how to classify the raw response
// and how to decode a successful one. Execute drives it through
//
//	BUILDING -> ATTEMPTING -> SUCCEEDED
//	                       -> RETRYING -> ATTEMPTING
//	                       -> FAILED
//
// Every attempt is classified into one of four outcomes. Success reports the
// node healthy and returns the decoded result. A retryable node error
// (transport failure, busy node) penalizes the node's health and moves to
// another node. A retryable logical error (a transient status returned by the
// ledger) retries without touching node health, on the same node or another
// one. A permanent error stops immediately.
//
// Attempts stop after MaxAttempts or when the request deadline has passed,
// returning a MaxAttemptsExceededError or TimeoutError that wraps the last
// classified error. No attempt starts after the deadline, but an attempt in
// flight is only bounded by its own per-call timeout.
package executable
