package net

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const methodPrefix = "/proto."

// rawCodec passes request and response bytes through untouched. The ledger
// messages are encoded by the caller.
type rawCodec struct{}

func (rawCodec) Marshal(v interface{}) ([]byte, error) {
	b, ok := v.(*[]byte)
	if !ok {
		return nil, fmt.Errorf("raw codec cannot marshal %T", v)
	}
	return *b, nil
}

func (rawCodec) Unmarshal(data []byte, v interface{}) error {
	b, ok := v.(*[]byte)
	if !ok {
		return fmt.Errorf("raw codec cannot unmarshal into %T", v)
	}
	*b = append((*b)[:0], data...)
	return nil
}

func (rawCodec) Name() string {
	return "raw"
}

// GRPCChannel is a Channel over a gRPC client connection. The connection is
// established on the first call.
type GRPCChannel struct {
	target string
	conn   *grpc.ClientConn

	closeOnce sync.Once
	closed    chan struct{}
}

// NewGRPCChannel creates a channel to target. Extra dial options are appended
// to the ones derived from security.
func NewGRPCChannel(target string, security Security, opts ...grpc.DialOption) (*GRPCChannel, error) {
	conf, err := security.TLSConfig(target)
	if err != nil {
		return nil, err
	}

	creds := insecure.NewCredentials()
	if conf != nil {
		creds = credentials.NewTLS(conf)
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(rawCodec{})),
	}, opts...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, err
	}

	return &GRPCChannel{
		target: target,
		conn:   conn,
		closed: make(chan struct{}),
	}, nil
}

// NewGRPCChannelFactory returns a ChannelFactory producing GRPCChannels.
func NewGRPCChannelFactory(opts ...grpc.DialOption) ChannelFactory {
	return func(target string, security Security) (Channel, error) {
		return NewGRPCChannel(target, security, opts...)
	}
}

// Target implements the Channel interface.
func (c *GRPCChannel) Target() string {
	return c.target
}

// Invoke implements the Channel interface.
func (c *GRPCChannel) Invoke(ctx context.Context, method string, request []byte) ([]byte, error) {
	select {
	case <-c.closed:
		return nil, ErrChannelClosed
	default:
	}

	var resp []byte
	err := c.conn.Invoke(ctx, methodPrefix+method, &request, &resp)
	if err != nil {
		select {
		case <-c.closed:
			return nil, ErrChannelClosed
		default:
		}
		return nil, err
	}

	return resp, nil
}

// Close implements the Channel interface.
func (c *GRPCChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

// NewGRPCServer returns a gRPC server that answers every method with handler.
// Handler errors are mapped to status codes: ErrNodeBusy becomes
// ResourceExhausted and ErrUnreachable becomes Unavailable.
func NewGRPCServer(handler Handler, opts ...grpc.ServerOption) *grpc.Server {
	serverOpts := append([]grpc.ServerOption{
		grpc.ForceServerCodec(rawCodec{}),
		grpc.UnknownServiceHandler(func(_ interface{}, stream grpc.ServerStream) error {
			fullMethod, ok := grpc.MethodFromServerStream(stream)
			if !ok {
				return status.Error(codes.Internal, "no method in stream")
			}

			var request []byte
			if err := stream.RecvMsg(&request); err != nil {
				return err
			}

			resp, err := handler.Handle(stream.Context(), strings.TrimPrefix(fullMethod, methodPrefix), request)
			if err != nil {
				return toStatus(err)
			}

			return stream.SendMsg(&resp)
		}),
	}, opts...)

	return grpc.NewServer(serverOpts...)
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, ErrNodeBusy):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, ErrUnreachable):
		return status.Error(codes.Unavailable, err.Error())
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codes.Unknown, err.Error())
}
