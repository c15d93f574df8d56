// Package dispatch runs one tool invocation through validation, resolution,
// fetching and normalization, in that order.
package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/alphavantage-mcp/internal/alphavantage"
	"github.com/bobmcallan/alphavantage-mcp/internal/catalog"
	"github.com/bobmcallan/alphavantage-mcp/internal/common"
	"github.com/bobmcallan/alphavantage-mcp/internal/normalize"
	"github.com/bobmcallan/alphavantage-mcp/internal/resolve"
	"github.com/bobmcallan/alphavantage-mcp/internal/toolerr"
)

// State is a stage of an invocation.
type State string

const (
	Received   State = "Received"
	Validated  State = "Validated"
	Resolved   State = "Resolved"
	Fetching   State = "Fetching"
	Normalized State = "Normalized"
	Completed  State = "Completed"
	Failed     State = "Failed"
)

// Caller issues upstream requests. *alphavantage.Client implements it.
type Caller interface {
	CallAll(ctx context.Context, reqs []resolve.EndpointRequest) []alphavantage.Result
}

// Observer is notified of every state transition of an invocation.
type Observer func(invocationID string, from, to State)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithObserver registers a transition observer.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// Dispatcher is stateless between invocations and safe for concurrent use:
// every invocation carries its own state in local variables.
type Dispatcher struct {
	catalog  *catalog.Catalog
	caller   Caller
	logger   *common.Logger
	observer Observer
}

// New creates a Dispatcher.
func New(cat *catalog.Catalog, caller Caller, logger *common.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	d := &Dispatcher{catalog: cat, caller: caller, logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Catalog returns the tool table the dispatcher serves.
func (d *Dispatcher) Catalog() *catalog.Catalog { return d.catalog }

// invocation tracks the state of one call.
type invocation struct {
	id     string
	tool   string
	state  State
	logger *common.Logger
	notify Observer
}

func (inv *invocation) advance(to State) {
	from := inv.state
	inv.state = to
	inv.logger.Debug().Str("tool", inv.tool).Str("from", string(from)).Str("to", string(to)).Msg("invocation state")
	if inv.notify != nil {
		inv.notify(inv.id, from, to)
	}
}

// fail moves the invocation to Failed and returns err as a *toolerr.Error.
func (inv *invocation) fail(err error) error {
	te, ok := toolerr.As(err)
	if !ok {
		te = toolerr.Wrap(toolerr.UpstreamRejected, err, "invocation failed")
	}
	if te.Tool == "" {
		te = te.WithTool(inv.tool)
	}
	inv.advance(Failed)

	if te.Kind.CallerError() {
		inv.logger.Info().Str("tool", inv.tool).Str("kind", string(te.Kind)).Str("param", te.Param).Msg("tool invocation rejected")
	} else {
		inv.logger.Warn().Str("tool", inv.tool).Str("kind", string(te.Kind)).Bool("retryable", te.Retryable()).Msg("tool invocation failed")
	}
	return te
}

// Dispatch runs one invocation to completion and returns exactly one of a
// result or an error. Validation and resolution failures return before any
// upstream request is made. Upstream failures are never retried here; a
// retryable error is reported as such to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) (normalize.Result, error) {
	id := uuid.New().String()
	inv := &invocation{
		id:     id,
		tool:   name,
		state:  Received,
		logger: d.logger.WithCorrelationId(id),
		notify: d.observer,
	}
	if inv.notify != nil {
		inv.notify(id, "", Received)
	}
	start := time.Now()

	tool, params, err := d.catalog.Validate(name, args)
	if err != nil {
		return nil, inv.fail(err)
	}
	inv.advance(Validated)

	reqs, err := resolve.Resolve(tool, params)
	if err != nil {
		return nil, inv.fail(err)
	}
	inv.advance(Resolved)

	if err := ctx.Err(); err != nil {
		return nil, inv.fail(toolerr.Wrap(toolerr.UpstreamUnreachable, err, "invocation cancelled before fetching"))
	}
	inv.advance(Fetching)
	results := d.caller.CallAll(ctx, reqs)

	res, err := normalize.Normalize(tool, params, results)
	if err != nil {
		return nil, inv.fail(err)
	}
	inv.advance(Normalized)
	inv.advance(Completed)

	inv.logger.Info().Str("tool", name).Int("requests", len(reqs)).Int64("duration_ms", time.Since(start).Milliseconds()).Msg("tool invocation completed")
	return res, nil
}
