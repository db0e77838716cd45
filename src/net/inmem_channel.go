package net

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"
)

// NewInmemAddr returns a new in-memory addr with
// a randomly generate UUID as the ID.
func NewInmemAddr() string {
	return generateUUID()
}

// generateUUID is used to generate a random UUID.
func generateUUID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Errorf("failed to read random bytes: %v", err))
	}

	return fmt.Sprintf("%08x-%04x-%04x-%04x-%12x",
		buf[0:4],
		buf[4:6],
		buf[6:8],
		buf[8:10],
		buf[10:16])
}

// InmemRouter routes in-memory channels to the handlers registered for their
// target, to allow whole networks to be tested without going over a network.
type InmemRouter struct {
	sync.RWMutex
	nodes   map[string]Handler
	timeout time.Duration
}

// NewInmemRouter creates an empty router. The timeout applies to calls whose
// context has no deadline.
func NewInmemRouter(timeout time.Duration) *InmemRouter {
	return &InmemRouter{
		nodes:   make(map[string]Handler),
		timeout: timeout,
	}
}

// Connect is used to route target to a handler. It replaces any previous
// route.
func (r *InmemRouter) Connect(target string, h Handler) {
	r.Lock()
	defer r.Unlock()
	r.nodes[target] = h
}

// Disconnect is used to remove the ability to route to a given target. Calls
// to it fail with ErrUnreachable.
func (r *InmemRouter) Disconnect(target string) {
	r.Lock()
	defer r.Unlock()
	delete(r.nodes, target)
}

// DisconnectAll is used to remove all routes.
func (r *InmemRouter) DisconnectAll() {
	r.Lock()
	defer r.Unlock()
	r.nodes = make(map[string]Handler)
}

// Factory returns a ChannelFactory producing InmemChannels on this router.
// Security is ignored.
func (r *InmemRouter) Factory() ChannelFactory {
	return func(target string, _ Security) (Channel, error) {
		return r.Dial(target), nil
	}
}

// Dial returns a channel to target. The route is resolved on every call, so
// the target does not need to be connected yet.
func (r *InmemRouter) Dial(target string) *InmemChannel {
	return &InmemChannel{
		router:     r,
		target:     target,
		shutdownCh: make(chan struct{}),
	}
}

func (r *InmemRouter) handler(target string) (Handler, bool) {
	r.RLock()
	defer r.RUnlock()
	h, ok := r.nodes[target]
	return h, ok
}

// InmemChannel implements the Channel interface on top of an InmemRouter.
type InmemChannel struct {
	router *InmemRouter
	target string

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// Target implements the Channel interface.
func (i *InmemChannel) Target() string {
	return i.target
}

type inmemResponse struct {
	resp []byte
	err  error
}

// Invoke implements the Channel interface.
func (i *InmemChannel) Invoke(ctx context.Context, method string, request []byte) ([]byte, error) {
	select {
	case <-i.shutdownCh:
		return nil, ErrChannelClosed
	default:
	}

	h, ok := i.router.handler(i.target)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnreachable, i.target)
	}

	if _, ok := ctx.Deadline(); !ok && i.router.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.router.timeout)
		defer cancel()
	}

	// Copy the request so that handlers can't alias the caller's bytes
	req := append([]byte(nil), request...)

	respCh := make(chan inmemResponse, 1)
	go func() {
		resp, err := h.Handle(ctx, method, req)
		respCh <- inmemResponse{resp, err}
	}()

	// Wait for a response
	select {
	case r := <-respCh:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-i.shutdownCh:
		return nil, ErrChannelClosed
	}
}

// Close implements the Channel interface.
func (i *InmemChannel) Close() error {
	i.shutdownOnce.Do(func() {
		close(i.shutdownCh)
	})
	return nil
}
