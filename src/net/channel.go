package net

import (
	"context"
	"errors"
)

var (
	// ErrChannelClosed is returned by calls on a closed channel, including
	// calls that were in flight when it was closed.
	ErrChannelClosed = errors.New("channel closed")

	// ErrUnreachable is returned when a connection to the node cannot be
	// established.
	ErrUnreachable = errors.New("node unreachable")

	// ErrNodeBusy is returned when the node refuses the call because it is
	// overloaded.
	ErrNodeBusy = errors.New("node busy")
)

// Channel is a bidirectional RPC transport to one node.
type Channel interface {
	// Invoke sends request to method and waits for the response. The call is
	// bounded by the context deadline.
	Invoke(ctx context.Context, method string, request []byte) ([]byte, error)

	// Target is the address the channel is connected to.
	Target() string

	// Close releases the channel. Closing a closed channel is a no-op.
	Close() error
}

// ChannelFactory creates the channel of a node.
type ChannelFactory func(target string, security Security) (Channel, error)

// Handler answers the requests received by a node.
type Handler interface {
	Handle(ctx context.Context, method string, request []byte) ([]byte, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, method string, request []byte) ([]byte, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, method string, request []byte) ([]byte, error) {
	return f(ctx, method, request)
}

// RemoteError is an error string returned by a node over the TCP protocol.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// remoteError turns an error string received from a node back into an error,
// restoring the sentinel errors of this package.
func remoteError(msg string) error {
	switch msg {
	case "":
		return nil
	case ErrNodeBusy.Error():
		return ErrNodeBusy
	case ErrUnreachable.Error():
		return ErrUnreachable
	}
	return &RemoteError{Message: msg}
}
