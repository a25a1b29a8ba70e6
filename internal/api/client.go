package api

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/chatstream/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/chatstream/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/chatstream/internal/shared/types"
)

// RequestIDHeader carries a per-call correlation id
const RequestIDHeader = "X-Request-ID"

// Options configures a Client
type Options struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit is requests per second; zero or less disables limiting
	RateLimit float64
	Retries   int
	Logger    *zap.Logger
	Metrics   *monitoring.Metrics
}

// Client talks to the backend's REST endpoints
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// New creates a client
func New(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	logger := opts.Logger

	// pooled transport only; retries stay with resty and default to none
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil

	restyClient := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "chatstream/1.0").
		SetTransport(retryClient.HTTPClient.Transport).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			if req.Header.Get(RequestIDHeader) == "" {
				req.SetHeader(RequestIDHeader, uuid.NewString())
			}
			return nil
		})

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	breaker := resilience.New("api", resilience.Settings{
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsFailure: isServerFailure,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})

	return &Client{
		resty:   restyClient,
		limiter: limiter,
		breaker: breaker,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// BreakerState returns the circuit breaker state
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// ListSessions returns the conversation list, newest first
func (c *Client) ListSessions(ctx context.Context) ([]types.SessionSummary, error) {
	var out []types.SessionSummary
	if err := c.do(ctx, "list_sessions", resty.MethodGet, "/sessions", &out, nil); err != nil {
		return nil, err
	}
	if out == nil {
		out = []types.SessionSummary{}
	}
	return out, nil
}

// GetSession returns one conversation with its messages
func (c *Client) GetSession(ctx context.Context, id types.ConversationID) (*types.Conversation, error) {
	var out types.Conversation
	err := c.do(ctx, "get_session", resty.MethodGet, "/sessions/{id}", &out, func(r *resty.Request) {
		r.SetPathParam("id", id.String())
	})
	if err != nil {
		return nil, err
	}
	if out.Messages == nil {
		out.Messages = []types.Message{}
	}
	return &out, nil
}

// ListModels returns the model catalog
func (c *Client) ListModels(ctx context.Context) (*types.ModelCatalog, error) {
	var out types.ModelCatalog
	if err := c.do(ctx, "list_models", resty.MethodGet, "/models", &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// SelectModel switches the backend's current model. Model ids may contain
// slashes and are sent unescaped.
func (c *Client) SelectModel(ctx context.Context, modelID string) (*types.ModelSelection, error) {
	if strings.TrimSpace(modelID) == "" {
		return nil, fmt.Errorf("api: empty model id")
	}

	var out types.ModelSelection
	err := c.do(ctx, "select_model", resty.MethodPost, "/models/select/{model_id}", &out, func(r *resty.Request) {
		r.SetRawPathParam("model_id", strings.Trim(modelID, "/"))
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, result interface{}, configure func(*resty.Request)) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	timer := monitoring.NewTimer(c.metrics, endpoint)
	var resp *resty.Response

	err := c.breaker.Do(func() error {
		req := c.resty.R().
			SetContext(ctx).
			SetResult(result).
			SetError(&errorBody{})
		if configure != nil {
			configure(req)
		}

		var err error
		resp, err = req.Execute(method, path)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		if resp.IsError() {
			return toError(resp)
		}
		return nil
	})

	status := "error"
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		status = "circuit_open"
	case resp != nil:
		status = strconv.Itoa(resp.StatusCode())
	}
	timer.Stop(status)

	if err != nil {
		c.logger.Debug("API call failed",
			zap.String("endpoint", endpoint),
			zap.String("status", status),
			zap.Error(err))
		return err
	}
	return nil
}

func toError(resp *resty.Response) error {
	apiErr := &Error{Status: resp.StatusCode()}
	if body, ok := resp.Error().(*errorBody); ok {
		apiErr.Detail = body.message()
	}
	if apiErr.Detail == "" {
		apiErr.Detail = strings.TrimSpace(resp.String())
	}
	return apiErr
}
