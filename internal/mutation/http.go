package mutation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects calls after repeated
// transport failures.
var ErrCircuitOpen = errors.New("mutation backend unavailable (circuit open)")

var errServerStatus = errors.New("server error status")

// MutationsPath is the backend endpoint receiving mutation requests.
const MutationsPath = "/api/mutations"

// HTTPConfig configures HTTPTransport.
type HTTPConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// MaxFailures consecutive transport or 5xx failures open the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// HTTPTransport sends mutations to the backend's REST endpoint.
type HTTPTransport struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewHTTPTransport creates an HTTPTransport. Zero config values fall back to
// a 30s timeout, 5 failures and a 30s open period.
func NewHTTPTransport(cfg HTTPConfig, logger *slog.Logger) *HTTPTransport {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout)
	if cfg.Token != "" {
		c.SetAuthToken(cfg.Token)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "MutationTransport",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("mutation: breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	return &HTTPTransport{client: c, breaker: breaker, logger: logger}
}

// Send posts req to the backend. Rejections with a 4xx or 5xx status are
// returned as a non-OK Response carrying the body; only 5xx and network
// errors count against the breaker.
func (t *HTTPTransport) Send(ctx context.Context, req Request) (Response, error) {
	out, err := t.breaker.Execute(func() (interface{}, error) {
		return t.post(ctx, req)
	})
	resp, _ := out.(Response)
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return Response{}, ErrCircuitOpen
	case errors.Is(err, errServerStatus):
		return resp, nil
	case err != nil:
		return Response{}, err
	}
	return resp, nil
}

func (t *HTTPTransport) post(ctx context.Context, req Request) (Response, error) {
	r, err := t.client.R().
		SetContext(ctx).
		SetBody(req).
		Post(MutationsPath)
	if err != nil {
		return Response{}, fmt.Errorf("mutation: %s request: %w", req.Operation, err)
	}

	body := r.String()
	switch {
	case r.StatusCode() >= http.StatusInternalServerError:
		return Response{Raw: body}, errServerStatus
	case r.StatusCode() != http.StatusOK:
		return Response{Raw: body}, nil
	}

	var resp Response
	if err := json.Unmarshal(r.Body(), &resp); err != nil {
		t.logger.Warn("mutation: unreadable response",
			slog.String("operation", string(req.Operation)),
			slog.String("error", err.Error()))
		return Response{Raw: body}, nil
	}
	if !resp.OK && resp.Raw == "" {
		resp.Raw = body
	}
	return resp, nil
}
