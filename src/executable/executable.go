package executable

import (
	"context"
	"errors"
	"time"

	"github.com/jpillora/backoff"
	"github.com/mosaicnetworks/hgclient/src/common"
	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/network"
	"github.com/sirupsen/logrus"
)

// Outcome is the class of an attempt's result.
type Outcome int

const (
	// Success ends the execution with a result.
	Success Outcome = iota
	// RetryableNode penalizes the node and retries on another one.
	RetryableNode
	// RetryableLogical retries without penalizing the node.
	RetryableLogical
	// Permanent ends the execution with an error.
	Permanent
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case RetryableNode:
		return "retryable_node"
	case RetryableLogical:
		return "retryable_logical"
	case Permanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Classification is the verdict on one attempt.
type Classification struct {
	Outcome Outcome

	// Err is the classified error, nil on success.
	Err error

	// SameNode retries a RetryableLogical outcome on the node that returned
	// it.
	SameNode bool
}

// Executable is one logical request.
type Executable[R any] interface {
	// Name identifies the kind of request in logs and metrics.
	Name() string

	// Candidates restricts the nodes that may serve the request. nil means
	// any node of the network.
	Candidates() []entity.ID

	// Build returns the method and bytes to send to node.
	Build(node *network.Node) (string, []byte, error)

	// Classify inspects the raw response of node.
	Classify(node *network.Node, response []byte) Classification

	// Decode turns a successful response into the result.
	Decode(node *network.Node, response []byte) (R, error)
}

// Observer receives execution events. telemetry.Metrics implements it.
type Observer interface {
	ObserveAttempt(name string, node string, outcome Outcome, duration time.Duration)
	ObserveNodeBackoff(node string, backoff time.Duration)
	ObserveExecution(name string, state State, attempts int, duration time.Duration)
}

// Options are the retry parameters of an execution.
type Options struct {
	MaxAttempts int

	// MinBackoff and MaxBackoff bound the wait between two attempts.
	MinBackoff time.Duration
	MaxBackoff time.Duration

	// GRPCDeadline is the timeout of one attempt.
	GRPCDeadline time.Duration

	// RequestTimeout is the deadline of the whole execution.
	RequestTimeout time.Duration

	Logger   *logrus.Entry
	Observer Observer
}

// Default option values.
const (
	DefaultMaxAttempts    = 10
	DefaultMinBackoff     = 250 * time.Millisecond
	DefaultMaxBackoff     = 8 * time.Second
	DefaultGRPCDeadline   = 10 * time.Second
	DefaultRequestTimeout = 2 * time.Minute
)

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.MinBackoff <= 0 {
		o.MinBackoff = DefaultMinBackoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = DefaultMaxBackoff
	}
	if o.MaxBackoff < o.MinBackoff {
		o.MaxBackoff = o.MinBackoff
	}
	if o.GRPCDeadline <= 0 {
		o.GRPCDeadline = DefaultGRPCDeadline
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.Logger == nil {
		o.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return o
}

// execution is the state of one call to Execute.
type execution struct {
	opts     Options
	net      *network.Network
	deadline time.Time
	backoff  *backoff.Backoff
	attempts int
	last     error
	state    stateHolder
	logger   *logrus.Entry
}

// Execute runs e against the nodes of nw until it succeeds, fails
// permanently, runs out of attempts or passes its deadline.
//
// The deadline is the earliest of the context deadline and RequestTimeout.
// Each attempt is bounded by GRPCDeadline and is not interrupted by the
// cancellation of ctx.
func Execute[R any](ctx context.Context, nw *network.Network, opts Options, e Executable[R]) (R, error) {
	var zero R

	opts = opts.withDefaults()
	start := time.Now()

	x := &execution{
		opts:     opts,
		net:      nw,
		deadline: start.Add(opts.RequestTimeout),
		backoff: &backoff.Backoff{
			Min:    opts.MinBackoff,
			Max:    opts.MaxBackoff,
			Factor: 2,
			Jitter: true,
		},
		logger: opts.Logger.WithField("request", e.Name()),
	}
	if d, ok := ctx.Deadline(); ok && d.Before(x.deadline) {
		x.deadline = d
	}

	res, err := execute(ctx, x, e)

	if err != nil {
		x.state.set(Failed)
	} else {
		x.state.set(Succeeded)
	}

	if opts.Observer != nil {
		opts.Observer.ObserveExecution(e.Name(), x.state.get(), x.attempts, time.Since(start))
	}

	x.logger.WithFields(logrus.Fields{
		"state":    x.state.get(),
		"attempts": x.attempts,
		"duration": time.Since(start),
	}).Debug("Execute")

	if err != nil {
		return zero, err
	}
	return res, nil
}

func execute[R any](ctx context.Context, x *execution, e Executable[R]) (R, error) {
	var zero R

	x.state.set(Building)

	candidates := e.Candidates()
	excluding := make(map[entity.ID]bool)

	var sameNode *network.Node

	for x.attempts < x.opts.MaxAttempts {
		if err := x.checkDeadline(ctx, e.Name()); err != nil {
			return zero, err
		}

		node := sameNode
		sameNode = nil

		if node == nil || node.Retired() {
			var err error
			node, err = x.net.SelectFrom(candidates, excluding)
			if common.IsLocal(err, common.NoHealthyNodes) && len(excluding) > 0 {
				// every candidate was tried in this pass
				excluding = make(map[entity.ID]bool)
				node, err = x.net.SelectFrom(candidates, excluding)
			}
			if err != nil {
				return zero, err
			}
		}

		// only happens when every candidate is in backoff
		if until := node.BackoffUntil(); time.Now().Before(until) {
			x.logger.WithFields(logrus.Fields{
				"node":  node.String(),
				"until": until,
			}).Debug("Waiting for node backoff")

			if err := x.sleep(ctx, time.Until(until), e.Name()); err != nil {
				return zero, err
			}
		}

		excluding[node.AccountID()] = true

		method, request, err := e.Build(node)
		if err != nil {
			return zero, err
		}

		x.state.set(Attempting)
		x.attempts++

		response, c := x.attempt(ctx, node, method, request, e)

		if x.opts.Observer != nil {
			x.opts.Observer.ObserveAttempt(e.Name(), node.AccountID().String(), c.Outcome, c.duration)
		}

		logger := x.logger.WithFields(logrus.Fields{
			"node":    node.String(),
			"attempt": x.attempts,
			"outcome": c.Outcome,
		})

		switch c.Outcome {
		case Success:
			x.net.ReportSuccess(node)
			logger.Debug("Attempt succeeded")
			return e.Decode(node, response)
		case Permanent:
			logger.WithError(c.Err).Debug("Attempt failed")
			return zero, c.Err
		case RetryableNode:
			b := x.net.ReportFailure(node)
			if x.opts.Observer != nil {
				x.opts.Observer.ObserveNodeBackoff(node.AccountID().String(), b)
			}
		case RetryableLogical:
			if c.SameNode {
				sameNode = node
				delete(excluding, node.AccountID())
			}
		}

		x.last = c.Err
		x.state.set(Retrying)

		logger.WithError(c.Err).Debug("Attempt will be retried")

		if x.attempts < x.opts.MaxAttempts {
			if err := x.sleep(ctx, x.backoff.Duration(), e.Name()); err != nil {
				return zero, err
			}
		}
	}

	return zero, &MaxAttemptsExceededError{
		Name:     e.Name(),
		Attempts: x.attempts,
		Last:     x.last,
	}
}

type attemptResult struct {
	Classification
	duration time.Duration
}

func (x *execution) attempt(ctx context.Context, node *network.Node, method string, request []byte, c classifier) ([]byte, attemptResult) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), x.opts.GRPCDeadline)
	defer cancel()

	start := time.Now()
	response, err := node.Invoke(callCtx, method, request)
	d := time.Since(start)

	if err != nil {
		return nil, attemptResult{ClassifyTransportError(node.String(), err), d}
	}

	return response, attemptResult{c.Classify(node, response), d}
}

// classifier is the part of Executable used by attempt.
type classifier interface {
	Classify(node *network.Node, response []byte) Classification
}

func (x *execution) checkDeadline(ctx context.Context, name string) error {
	if err := ctx.Err(); errors.Is(err, context.Canceled) {
		return err
	}
	if !time.Now().Before(x.deadline) || ctx.Err() != nil {
		return &TimeoutError{Name: name, Attempts: x.attempts, Last: x.last}
	}
	return nil
}

// sleep waits for d, or until the deadline if it comes first.
func (x *execution) sleep(ctx context.Context, d time.Duration, name string) error {
	remaining := time.Until(x.deadline)
	if remaining <= 0 {
		return &TimeoutError{Name: name, Attempts: x.attempts, Last: x.last}
	}

	timeout := false
	if d >= remaining {
		d = remaining
		timeout = true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return x.checkDeadline(ctx, name)
	}

	if timeout {
		return &TimeoutError{Name: name, Attempts: x.attempts, Last: x.last}
	}
	return nil
}
