// Package apiclient issues JSON requests against the daybook backend.
//
// Send makes exactly one network attempt per call. It attaches the stored
// bearer token when asked to, clears that token when the server answers 401,
// and returns non-2xx responses as *StructuredError with the body intact.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fyrsmithlabs/daybook/internal/credentials"
	"github.com/fyrsmithlabs/daybook/internal/logging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 15 * time.Second

	// HeaderRequestID carries the per-call correlation id.
	HeaderRequestID = "X-Request-Id"
)

// Request describes one call. The client never mutates it.
type Request struct {
	Method string
	// Path is joined to the base URL unless it is already absolute.
	Path         string
	Header       http.Header
	Body         any
	RequiresAuth bool
}

// Response is a 2xx reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Payload    Payload
	RequestID  string
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	return r.Payload.Decode(v)
}

// Client sends requests to one backend.
type Client struct {
	baseURL    string
	store      credentials.Store
	httpClient *http.Client
	limiter    *rate.Limiter
	tracer     trace.Tracer
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRateLimit throttles outgoing calls. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTracerProvider sets where request spans go.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer("daybook/apiclient") }
}

// WithLogger sets the logger. nil means no logging.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l == nil {
			l = zap.NewNop()
		}
		c.logger = l
	}
}

// New creates a Client for baseURL. store may be nil when no call needs auth.
func New(baseURL string, store credentials.Store, opts ...Option) (*Client, error) {
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("base URL must be absolute http(s), got %q", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		store:      store,
		httpClient: &http.Client{Timeout: defaultTimeout},
		tracer:     otel.Tracer("daybook/apiclient"),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Store returns the credential store the client reads from.
func (c *Client) Store() credentials.Store {
	return c.store
}

// Send performs req. Errors are *StructuredError (non-2xx), *NetworkFault,
// or match ErrCancelled.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	ctx, span := c.tracer.Start(ctx, "apiclient.send", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("url.path", req.Path),
		))
	defer span.End()

	start := time.Now()
	resp, class, err := c.send(ctx, method, req)
	elapsed := time.Since(start)

	RequestsTotal.WithLabelValues(method, class).Inc()
	RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())

	fields := []zap.Field{
		zap.String("method", method),
		zap.String("path", req.Path),
		zap.String("outcome", class),
		zap.Duration("duration", elapsed),
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, class)
		var se *StructuredError
		if errors.As(err, &se) {
			span.SetAttributes(attribute.Int("http.status_code", se.StatusCode))
		}
		c.logger.Debug("api request failed", append(fields, zap.Error(err))...)
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.logger.Debug("api request", append(fields, zap.String("request_id", resp.RequestID))...)
	return resp, nil
}

// send returns the response, the metrics outcome class and any error.
func (c *Client) send(ctx context.Context, method string, req Request) (*Response, string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, "cancelled", cancelled(err)
		}
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, "encode", fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.resolve(req.Path), body)
	if err != nil {
		return nil, "encode", fmt.Errorf("building request: %w", err)
	}

	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	requestID := logging.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	httpReq.Header.Set(HeaderRequestID, requestID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	if req.RequiresAuth {
		if token := c.token(ctx); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "cancelled", cancelled(ctxErr)
		}
		return nil, "network", &NetworkFault{Op: method + " " + req.Path, Err: err}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "cancelled", cancelled(ctxErr)
		}
		return nil, "network", &NetworkFault{Op: "read response body", Err: err}
	}

	payload := NewPayload(raw)
	class := statusClass(httpResp.StatusCode)

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		if httpResp.StatusCode == http.StatusUnauthorized {
			c.invalidate(ctx)
		}
		return nil, class, &StructuredError{
			Method:     method,
			Path:       req.Path,
			StatusCode: httpResp.StatusCode,
			Payload:    payload,
		}
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Payload:    payload,
		RequestID:  requestID,
	}, class, nil
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// token reads the stored token. A store failure means unauthenticated.
func (c *Client) token(ctx context.Context) string {
	if c.store == nil {
		return ""
	}
	token, err := c.store.Token(ctx)
	if err != nil {
		c.logger.Warn("credential read failed, sending unauthenticated", zap.Error(err))
		return ""
	}
	return token
}

// invalidate clears the token before the 401 is handed back to the caller.
func (c *Client) invalidate(ctx context.Context) {
	if c.store == nil {
		return
	}
	// The clear must happen even if the caller's context just ended.
	if err := c.store.Clear(context.WithoutCancel(ctx)); err != nil {
		c.logger.Warn("clearing credential after 401 failed", zap.Error(err))
		return
	}
	CredentialInvalidations.Inc()
	c.logger.Info("credential cleared after unauthorized response")
}
