package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/http/cookiejar"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/requst/internal/core"
	"golang.org/x/net/publicsuffix"
)

// ErrStatus is wrapped by transport errors caused by a non-2xx response.
var ErrStatus = errors.New("request failed with status code")

// Request is what the pipeline hands to the transport.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	// Body is JSON-encoded when non-nil.
	Body any
	// Credentials sends and stores cookies through the client's jar.
	Credentials bool
}

// TransportError is returned for any failed send. Response is set when the
// server answered, nil for network and setup failures.
type TransportError struct {
	Response *core.Response
	Err      error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client sends requests over HTTP.
type Client struct {
	httpClient    *http.Client
	jar           http.CookieJar
	config        Config
	errorOnStatus bool
}

// Config holds HTTP client configuration.
type Config struct {
	Timeout        time.Duration
	FollowRedirect bool
}

// Option is a function that configures the Client.
type Option func(*Client)

// NewClient creates a new HTTP client with the given options.
func NewClient(opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		config: Config{
			Timeout:        30 * time.Second,
			FollowRedirect: true,
		},
		errorOnStatus: true,
	}

	// cookiejar.New never fails with a non-nil options value.
	if jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List}); err == nil {
		client.jar = jar
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// WithTimeout sets the request timeout. Zero disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.config.Timeout = timeout
		c.httpClient.Timeout = timeout
	}
}

// WithTransport sets a custom round tripper.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = transport
	}
}

// WithNoRedirects disables automatic redirect following.
func WithNoRedirects() Option {
	return func(c *Client) {
		c.config.FollowRedirect = false
		c.httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
}

// WithCookieJar replaces the jar used for credentialed requests.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) {
		c.jar = jar
	}
}

// WithErrorOnStatus controls whether non-2xx responses are returned as a
// *TransportError. It is on by default.
func WithErrorOnStatus(enabled bool) Option {
	return func(c *Client) {
		c.errorOnStatus = enabled
	}
}

// Protocol returns the protocol identifier.
func (c *Client) Protocol() string {
	return "http"
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// Send executes an HTTP request and returns the normalized response.
// Every failure is a *TransportError.
func (c *Client) Send(ctx context.Context, req Request) (*core.Response, error) {
	httpReq, err := c.toHTTPRequest(ctx, req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	hc := c.httpClient
	if req.Credentials && c.jar != nil {
		withJar := *c.httpClient
		withJar.Jar = c.jar
		hc = &withJar
	}

	httpResp, err := hc.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	resp := fromHTTPResponse(httpResp, bodyBytes)
	if c.errorOnStatus && (httpResp.StatusCode < 200 || httpResp.StatusCode > 299) {
		return nil, &TransportError{
			Response: resp,
			Err:      fmt.Errorf("%w %d", ErrStatus, httpResp.StatusCode),
		}
	}
	return resp, nil
}

// toHTTPRequest converts a Request to an http.Request.
func (c *Client) toHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bodyReader)
	if err != nil {
		return nil, err
	}

	// Keys differing only in case name one header; sorted order keeps the
	// surviving value stable.
	for _, key := range slices.Sorted(maps.Keys(req.Headers)) {
		httpReq.Header.Set(key, req.Headers[key])
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	return httpReq, nil
}

// fromHTTPResponse converts an http.Response to a core.Response. Header names
// are lowercased and repeated values joined with ", ".
func fromHTTPResponse(httpResp *http.Response, bodyBytes []byte) *core.Response {
	headers := make(map[string]string, len(httpResp.Header))
	for key, values := range httpResp.Header {
		headers[strings.ToLower(key)] = strings.Join(values, ", ")
	}

	return &core.Response{
		Status:     core.Status(httpResp.StatusCode),
		StatusText: statusText(httpResp),
		Headers:    headers,
		Body:       decodeBody(bodyBytes),
	}
}

func statusText(httpResp *http.Response) string {
	text := strings.TrimPrefix(httpResp.Status, strconv.Itoa(httpResp.StatusCode))
	text = strings.TrimSpace(text)
	if text == "" {
		text = http.StatusText(httpResp.StatusCode)
	}
	return text
}

// decodeBody returns parsed JSON when the body is JSON and the raw text otherwise.
func decodeBody(data []byte) any {
	if len(bytes.TrimSpace(data)) == 0 {
		return string(data)
	}
	var v any
	if err := json.Unmarshal(data, &v); err == nil {
		return v
	}
	return string(data)
}
