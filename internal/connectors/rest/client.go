package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/connect-cli/internal/logger"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// UserAgent is sent with every request.
	UserAgent = "connect-cli"
)

// Encoding selects how a request body is serialised.
type Encoding int

const (
	// EncodingDefault uses the client's default encoding (JSON unless configured).
	EncodingDefault Encoding = iota
	// EncodingJSON sends application/json.
	EncodingJSON
	// EncodingForm sends application/x-www-form-urlencoded with bracket notation.
	EncodingForm
	// EncodingRaw sends Body ([]byte, string or io.Reader) as is with ContentType.
	EncodingRaw
)

// Kind classifies a response body.
type Kind int

const (
	// KindEmpty is a 204 or a response without a body.
	KindEmpty Kind = iota
	// KindJSON is a JSON body.
	KindJSON
	// KindText is any other body, kept as raw text.
	KindText
)

// Request describes one API call.
type Request struct {
	// Method is the HTTP method; defaults to GET.
	Method string
	// Path is joined to the client's base URL. Absolute http(s) URLs are used as is.
	Path string
	// Query holds query parameters; keys whose values are all empty are dropped.
	Query url.Values
	// Body is the request payload, encoded per Encoding. Nil sends no body.
	Body any
	// Encoding overrides the client's default body encoding.
	Encoding Encoding
	// ContentType is used with EncodingRaw.
	ContentType string
	// Header holds extra request headers.
	Header http.Header
}

// Response is a classified API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Kind       Kind
}

// Decode parses a JSON body into v. Empty responses leave v untouched.
// A body that is not JSON, or does not fit v, returns a *DecodeError.
func (r *Response) Decode(v any) error {
	switch r.Kind {
	case KindEmpty:
		return nil
	case KindJSON:
		if err := json.Unmarshal(r.Body, v); err != nil {
			return NewDecodeError(v, r.Body, err)
		}
		return nil
	default:
		return NewDecodeError(v, r.Body, ErrNotJSON)
	}
}

// Text returns the raw body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// Client issues authenticated requests against one provider API.
type Client struct {
	name        string
	baseURL     string
	httpClient  *http.Client
	auth        Authenticator
	headers     http.Header
	encoding    Encoding
	parseError  ErrorParser
	rateLimiter *RateLimiter
	metrics     *Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithName sets the connector name used in errors, logs and metrics.
func WithName(name string) Option {
	return func(c *Client) { c.name = name }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Transport: c.httpClient.Transport, Timeout: d}
		}
	}
}

// WithAuth sets the authenticator.
func WithAuth(a Authenticator) Option {
	return func(c *Client) { c.auth = a }
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

// WithEncoding sets the default body encoding.
func WithEncoding(e Encoding) Option {
	return func(c *Client) { c.encoding = e }
}

// WithErrorParser overrides how provider error payloads are read.
func WithErrorParser(p ErrorParser) Option {
	return func(c *Client) {
		if p != nil {
			c.parseError = p
		}
	}
}

// WithRateLimit throttles requests to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.rateLimiter = NewRateLimiter(rps, burst) }
}

// WithRateLimiter shares an existing limiter.
func WithRateLimiter(r *RateLimiter) Option {
	return func(c *Client) { c.rateLimiter = r }
}

// WithMetrics records request metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		headers:    make(http.Header),
		encoding:   EncodingJSON,
		parseError: DefaultErrorParser,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the base URL requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Name returns the connector name.
func (c *Client) Name() string {
	return c.name
}

// Get issues a GET and decodes the response into out (which may be nil).
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.call(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post issues a POST with body and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Patch issues a PATCH with body and decodes the response into out.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, Request{Method: http.MethodPatch, Path: path, Body: body}, out)
}

// Put issues a PUT with body and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Delete issues a DELETE and decodes the response into out.
func (c *Client) Delete(ctx context.Context, path string, query url.Values, out any) error {
	return c.call(ctx, Request{Method: http.MethodDelete, Path: path, Query: query}, out)
}

func (c *Client) call(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

// DoJSON issues req and decodes the JSON response into a new T.
func DoJSON[T any](ctx context.Context, c *Client, req Request) (*T, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	var out T
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Do issues req and classifies the response. Non-2xx responses return an
// *APIError. A 401 with a refreshable authenticator triggers one token
// refresh and exactly one retry.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	target, err := c.buildURL(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	body, contentType, err := c.encodeBody(req)
	if err != nil {
		return nil, err
	}

	resp, used, err := c.send(ctx, req, target, body, contentType)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if r := findRefreshable(c.auth); r != nil && r.CanRefresh() {
			if _, rerr := r.Refresh(ctx, used); rerr != nil {
				return nil, fmt.Errorf("%w (%w)", c.apiError(req.Method, target, resp), rerr)
			}
			resp, _, err = c.send(ctx, req, target, body, contentType)
			if err != nil {
				return nil, err
			}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.apiError(req.Method, target, resp)
	}
	return resp, nil
}

// send performs one HTTP round trip and returns the bearer token it used.
func (c *Client) send(
	ctx context.Context, req Request, target string, body []byte, contentType string,
) (*Response, string, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, "", err
		}
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, reader)
	if err != nil {
		return nil, "", fmt.Errorf("%s: create request: %w", c.label(), err)
	}

	httpReq.Header.Set("User-Agent", UserAgent)
	httpReq.Header.Set("Accept", "application/json")
	for k, vs := range c.headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	for k, vs := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if c.auth != nil {
		if err := c.auth.Authenticate(ctx, httpReq); err != nil {
			return nil, "", fmt.Errorf("%s: authenticate: %w", c.label(), err)
		}
	}
	used := strings.TrimPrefix(httpReq.Header.Get("Authorization"), "Bearer ")

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.observe(c.label(), req.Method, 0, elapsed)
		return nil, "", fmt.Errorf("%s: %s %s: %w", c.label(), req.Method, redact(target), err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%s: read response: %w", c.label(), err)
	}

	c.metrics.observe(c.label(), req.Method, httpResp.StatusCode, elapsed)
	logger.L().Debug("http request",
		zap.String("connector", c.label()),
		zap.String("method", req.Method),
		zap.String("url", redact(target)),
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("elapsed", elapsed),
	)

	if httpResp.StatusCode == http.StatusTooManyRequests && c.rateLimiter != nil {
		c.rateLimiter.RecordRateLimit(ParseRetryAfter(httpResp.Header))
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		Kind:       classify(httpResp.StatusCode, httpResp.Header.Get("Content-Type"), data),
	}, used, nil
}

func (c *Client) apiError(method, target string, resp *Response) *APIError {
	code, message := c.parseError(resp.StatusCode, resp.Body)
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return &APIError{
		Connector:  c.name,
		StatusCode: resp.StatusCode,
		Code:       code,
		Message:    message,
		Method:     method,
		URL:        redact(target),
		Body:       resp.Body,
	}
}

func (c *Client) label() string {
	if c.name == "" {
		return "rest"
	}
	return c.name
}

// buildURL joins path to the base URL and appends non-empty query parameters.
func (c *Client) buildURL(path string, query url.Values) (string, error) {
	raw := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		raw = c.baseURL + "/" + strings.TrimLeft(path, "/")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%s: parse URL %q: %w", c.label(), raw, err)
	}

	q := u.Query()
	for key, values := range query {
		for _, v := range values {
			if v != "" {
				q.Add(key, v)
			}
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) encodeBody(req Request) ([]byte, string, error) {
	if req.Body == nil {
		return nil, "", nil
	}

	enc := req.Encoding
	if enc == EncodingDefault {
		enc = c.encoding
	}

	switch enc {
	case EncodingForm:
		s, err := EncodeForm(req.Body)
		if err != nil {
			return nil, "", err
		}
		return []byte(s), "application/x-www-form-urlencoded", nil
	case EncodingRaw:
		var data []byte
		switch b := req.Body.(type) {
		case []byte:
			data = b
		case string:
			data = []byte(b)
		case io.Reader:
			read, err := io.ReadAll(b)
			if err != nil {
				return nil, "", fmt.Errorf("%s: read body: %w", c.label(), err)
			}
			data = read
		default:
			return nil, "", fmt.Errorf("%s: raw body must be []byte, string or io.Reader, got %T", c.label(), req.Body)
		}
		return data, req.ContentType, nil
	default:
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, "", fmt.Errorf("%s: encode body: %w", c.label(), err)
		}
		return data, "application/json", nil
	}
}

// classify decides how a response body should be read.
func classify(status int, contentType string, body []byte) Kind {
	if status == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return KindEmpty
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return KindText
	}
	if mediaType == "application/json" || strings.HasSuffix(mediaType, "+json") {
		return KindJSON
	}
	return KindText
}

// redact strips credential-looking query parameters from a URL for logs and errors.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	changed := false
	for _, key := range []string{"access_token", "api_key", "key", "client_secret", "fb_exchange_token"} {
		if q.Has(key) {
			q.Set(key, "REDACTED")
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}
