package mutation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Transport performs one mutation call against the backend. A non-nil error
// means the call did not complete (network, breaker); a completed call that
// the server rejected is reported as Response.OK == false.
type Transport interface {
	Send(ctx context.Context, req Request) (Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req Request) (Response, error)

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Gateway dispatches mutations and tracks which (operation, entity) pairs
// are in flight. It does not serialize unrelated calls.
type Gateway struct {
	transport Transport
	logger    *slog.Logger

	mu       sync.Mutex
	inflight map[Key]int
	wg       sync.WaitGroup
}

// NewGateway creates a Gateway over transport. A nil logger uses slog.Default().
func NewGateway(transport Transport, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		transport: transport,
		logger:    logger,
		inflight:  make(map[Key]int),
	}
}

// Dispatch starts req and returns a channel that receives exactly one Result
// and is then closed. Invalid requests resolve immediately as failures.
func (g *Gateway) Dispatch(ctx context.Context, req Request) <-chan Result {
	out, _ := g.dispatch(ctx, req, false)
	return out
}

// TryDispatch is Dispatch, except that it does nothing and reports false
// when the request's (operation, entity) key is already in flight. The key
// is reserved atomically, so concurrent callers cannot both start it.
func (g *Gateway) TryDispatch(ctx context.Context, req Request) (<-chan Result, bool) {
	return g.dispatch(ctx, req, true)
}

func (g *Gateway) dispatch(ctx context.Context, req Request, exclusive bool) (<-chan Result, bool) {
	out := make(chan Result, 1)

	if err := req.Validate(); err != nil {
		out <- failed(req, fmt.Sprintf("invalid mutation: %v", err), "")
		close(out)
		return out, true
	}

	key := req.Key()
	g.mu.Lock()
	if exclusive && g.inflight[key] > 0 {
		g.mu.Unlock()
		return nil, false
	}
	g.inflight[key]++
	g.mu.Unlock()

	g.logger.Debug("mutation: dispatch",
		slog.String("operation", string(req.Operation)),
		slog.String("entity_id", req.EntityID))

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		res := g.send(ctx, req)

		g.mu.Lock()
		if g.inflight[key]--; g.inflight[key] <= 0 {
			delete(g.inflight, key)
		}
		g.mu.Unlock()

		if res.OK() {
			g.logger.Debug("mutation: resolved",
				slog.String("operation", string(req.Operation)),
				slog.String("entity_id", req.EntityID))
		} else {
			g.logger.Debug("mutation: failed",
				slog.String("operation", string(req.Operation)),
				slog.String("entity_id", req.EntityID),
				slog.String("error", res.Failure.Message))
		}
		out <- res
		close(out)
	}()
	return out, true
}

func (g *Gateway) send(ctx context.Context, req Request) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = failed(req, fmt.Sprintf("mutation: transport panic: %v", p), "")
		}
	}()
	resp, err := g.transport.Send(ctx, req)
	if err != nil {
		return failed(req, err.Error(), err.Error())
	}
	if !resp.OK {
		return failed(req, ExtractMessage(resp.Raw), resp.Raw)
	}
	return Result{Request: req, State: resp.ServerState}
}

// InFlight reports whether op against entityID has been dispatched and not
// yet resolved.
func (g *Gateway) InFlight(op Operation, entityID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inflight[Key{Operation: op, EntityID: entityID}] > 0
}

// Wait blocks until every dispatched call has resolved.
func (g *Gateway) Wait() {
	g.wg.Wait()
}
