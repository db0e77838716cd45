package executable

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mosaicnetworks/hgclient/src/net"
	"github.com/mosaicnetworks/hgclient/src/wire"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// TransportError is a failure to deliver a request to a node or to get its
// answer: refused connection, reset stream, call deadline.
type TransportError struct {
	Node string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error on node %s: %v", e.Node, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NodeBusyError is returned when a node refuses a request because it is
// overloaded.
type NodeBusyError struct {
	Node string
	Err  error
}

func (e *NodeBusyError) Error() string {
	return fmt.Sprintf("node %s is busy: %v", e.Node, e.Err)
}

func (e *NodeBusyError) Unwrap() error {
	return e.Err
}

// TransientLogicalError is a status returned by the ledger meaning the request
// may succeed if tried again.
type TransientLogicalError struct {
	Node          string
	Status        wire.Status
	TransactionID string
}

func (e *TransientLogicalError) Error() string {
	return fmt.Sprintf("transient status %s from node %s for %s", e.Status, e.Node, e.TransactionID)
}

// PermanentLogicalError is a status returned by the ledger meaning the request
// will never succeed as constructed.
type PermanentLogicalError struct {
	Node          string
	Status        wire.Status
	TransactionID string
}

func (e *PermanentLogicalError) Error() string {
	if e.TransactionID == "" {
		return fmt.Sprintf("status %s from node %s", e.Status, e.Node)
	}
	return fmt.Sprintf("transaction %s failed precheck with status %s", e.TransactionID, e.Status)
}

// MaxAttemptsExceededError is returned when every attempt of a request failed
// with a retryable error.
type MaxAttemptsExceededError struct {
	Name     string
	Attempts int
	Last     error
}

func (e *MaxAttemptsExceededError) Error() string {
	return fmt.Sprintf("%s: max attempts (%d) exceeded: %v", e.Name, e.Attempts, e.Last)
}

func (e *MaxAttemptsExceededError) Unwrap() error {
	return e.Last
}

// TimeoutError is returned when the deadline of a request passed before an
// attempt succeeded.
type TimeoutError struct {
	Name     string
	Attempts int
	Last     error
}

func (e *TimeoutError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("%s: timed out after %d attempts", e.Name, e.Attempts)
	}
	return fmt.Sprintf("%s: timed out after %d attempts: %v", e.Name, e.Attempts, e.Last)
}

func (e *TimeoutError) Unwrap() error {
	return e.Last
}

// IsExhausted reports whether err means the engine gave up retrying, as
// opposed to a local precondition or a permanent error.
func IsExhausted(err error) bool {
	var maxErr *MaxAttemptsExceededError
	var timeoutErr *TimeoutError
	return errors.As(err, &maxErr) || errors.As(err, &timeoutErr)
}

// ClassifyTransportError classifies an error returned by a channel.
func ClassifyTransportError(node string, err error) Classification {
	if err == nil {
		return Classification{Outcome: Success}
	}

	if errors.Is(err, net.ErrNodeBusy) {
		return Classification{Outcome: RetryableNode, Err: &NodeBusyError{Node: node, Err: err}}
	}

	var remote *net.RemoteError
	if errors.As(err, &remote) {
		return Classification{Outcome: Permanent, Err: fmt.Errorf("node %s: %w", node, err)}
	}

	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.ResourceExhausted:
			return Classification{Outcome: RetryableNode, Err: &NodeBusyError{Node: node, Err: err}}
		case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
			return Classification{Outcome: RetryableNode, Err: &TransportError{Node: node, Err: err}}
		case codes.Internal:
			if strings.Contains(s.Message(), "RST_STREAM") {
				return Classification{Outcome: RetryableNode, Err: &TransportError{Node: node, Err: err}}
			}
		}
		return Classification{Outcome: Permanent, Err: fmt.Errorf("node %s: %w", node, err)}
	}

	// context.DeadlineExceeded, net.ErrUnreachable, net.ErrChannelClosed and
	// connection errors
	return Classification{Outcome: RetryableNode, Err: &TransportError{Node: node, Err: err}}
}
