package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tirthgodhni98/giftcard-api/pkg/httpclient"
	"github.com/tirthgodhni98/giftcard-api/pkg/logger"
	"github.com/tirthgodhni98/giftcard-api/pkg/resilience"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// AccessTokenHeader authenticates every ledger call
	AccessTokenHeader = "X-Shopify-Access-Token"

	DefaultAPIVersion      = "2025-04"
	DefaultBaseURLTemplate = "https://%s/admin/api/%s/graphql.json"
)

// Config tunes the ledger client
type Config struct {
	BaseURLTemplate string // receives domain then API version
	APIVersion      string
	Timeout         time.Duration
	RatePerSecond   float64 // per shop; <= 0 disables throttling
	RateBurst       int
	BreakerEnabled  bool
	Breaker         resilience.Settings // Name is replaced per shop
}

// Client talks to the remote ledger's GraphQL endpoint. Calls are never
// retried; each shop gets its own throttle and circuit breaker.
type Client struct {
	cfg    Config
	http   *httpclient.Client
	tracer trace.Tracer

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	breakers map[string]*resilience.CircuitBreaker
}

// NewClient creates a ledger client
func NewClient(cfg Config) *Client {
	if cfg.BaseURLTemplate == "" {
		cfg.BaseURLTemplate = DefaultBaseURLTemplate
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Breaker.IsFailure == nil {
		cfg.Breaker.IsFailure = CountsAgainstBreaker
	}

	return &Client{
		cfg:      cfg,
		http:     httpclient.NewClient("", cfg.Timeout).With(httpclient.WithUserAgent("giftcard-api")),
		tracer:   otel.Tracer("github.com/tirthgodhni98/giftcard-api/internal/ledger"),
		limiters: make(map[string]*rate.Limiter),
		breakers: make(map[string]*resilience.CircuitBreaker),
	}
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// Endpoint returns the GraphQL URL for a shop
func (c *Client) Endpoint(cred Credential) string {
	version := cred.APIVersion
	if version == "" {
		version = c.cfg.APIVersion
	}
	return fmt.Sprintf(c.cfg.BaseURLTemplate, cred.Domain, version)
}

// Execute sends one GraphQL document and decodes the data payload into out.
// Envelope-level errors become a ProtocolError. Nested userErrors are left
// to the caller.
func (c *Client) Execute(ctx context.Context, cred Credential, op, query string, variables map[string]interface{}, out interface{}) error {
	return c.execute(ctx, cred, op, query, variables, out, nil)
}

// execute is Execute plus an optional userErrors extractor that runs once
// out has been decoded. Business rejections never count against the breaker.
func (c *Client) execute(ctx context.Context, cred Credential, op, query string, variables map[string]interface{}, out interface{}, userErrors func() []UserError) (err error) {
	start := time.Now()
	defer func() {
		ledgerRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		ledgerRequestsTotal.WithLabelValues(op, outcome(err)).Inc()
	}()

	if strings.TrimSpace(cred.Domain) == "" {
		return invalid("shop domain is required")
	}
	if strings.TrimSpace(cred.AccessToken) == "" {
		return invalid("access token is required for %s", cred.Domain)
	}

	ctx, span := c.tracer.Start(ctx, "ledger."+op, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("ledger.operation", op),
			attribute.String("shop.domain", cred.Domain),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome(err))
		}
		span.End()
	}()

	if waitErr := c.limiter(cred.Domain).Wait(ctx); waitErr != nil {
		return &TransportError{Op: op, Err: waitErr}
	}

	call := func(ctx context.Context) (interface{}, error) {
		sendErr := c.send(ctx, cred, op, query, variables, out)
		var transportErr *TransportError
		if ctx.Err() != nil && errors.As(sendErr, &transportErr) {
			transportErr.Aborted = true
		}
		return nil, sendErr
	}

	breaker := c.breaker(cred.Domain)
	if breaker == nil {
		_, err = call(ctx)
	} else {
		_, err = breaker.Execute(ctx, call)
		if errors.Is(err, resilience.ErrCircuitOpen) {
			err = &TransportError{Op: op, Err: err}
		}
	}

	if err == nil && userErrors != nil {
		if list := userErrors(); len(list) > 0 {
			err = &UserErrorsError{Op: op, Errors: list}
		}
	}

	if err != nil {
		logger.WithContext(ctx).Warn("ledger call failed",
			zap.String("operation", op),
			zap.String("shop_domain", cred.Domain),
			zap.Error(err),
		)
	}
	return err
}

func (c *Client) send(ctx context.Context, cred Credential, op, query string, variables map[string]interface{}, out interface{}) error {
	headers := map[string]string{AccessTokenHeader: cred.AccessToken}

	body, err := c.http.Post(ctx, c.Endpoint(cred), graphQLRequest{Query: query, Variables: variables}, headers)
	if err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) {
			return &ProtocolError{Op: op, StatusCode: httpErr.StatusCode, Message: truncate(httpErr.Body, 512), Err: err}
		}
		return &TransportError{Op: op, Err: err}
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return &ProtocolError{Op: op, Message: "undecodable response body", Err: err}
	}

	if msg := envelopeErrors(envelope.Errors); msg != "" {
		return &ProtocolError{Op: op, Message: msg}
	}

	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return &ProtocolError{Op: op, Message: "response has no data"}
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return &ProtocolError{Op: op, Message: "unexpected payload shape", Err: err}
		}
	}
	return nil
}

// envelopeErrors flattens the top-level errors member, which is either a
// list of {message} objects or a bare string.
func envelopeErrors(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var list []graphQLError
	if err := json.Unmarshal(raw, &list); err == nil {
		msgs := make([]string, 0, len(list))
		for _, e := range list {
			msgs = append(msgs, e.Message)
		}
		if len(msgs) == 0 {
			return ""
		}
		return strings.Join(msgs, "; ")
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	return string(raw)
}

func (c *Client) limiter(domain string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.limiters[domain]
	if !ok {
		if c.cfg.RatePerSecond <= 0 {
			l = rate.NewLimiter(rate.Inf, 0)
		} else {
			burst := c.cfg.RateBurst
			if burst <= 0 {
				burst = 1
			}
			l = rate.NewLimiter(rate.Limit(c.cfg.RatePerSecond), burst)
		}
		c.limiters[domain] = l
	}
	return l
}

func (c *Client) breaker(domain string) *resilience.CircuitBreaker {
	if !c.cfg.BreakerEnabled {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.breakers[domain]
	if !ok {
		settings := c.cfg.Breaker
		settings.Name = "ledger:" + domain
		b = resilience.NewCircuitBreaker(settings, resilience.GracefulDegradation(settings.Name))
		c.breakers[domain] = b
	}
	return b
}

func outcome(err error) string {
	var (
		transportErr *TransportError
		protocolErr  *ProtocolError
		userErrs     *UserErrorsError
	)
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.As(err, &userErrs):
		return outcomeRejected
	case errors.As(err, &transportErr):
		return outcomeTransport
	case errors.As(err, &protocolErr):
		return outcomeProtocol
	case errors.Is(err, ErrInvalidVariables):
		return outcomeInvalid
	default:
		return outcomeTransport
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
