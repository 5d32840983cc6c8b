package adguardhome

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adguardctl/adguardhome-go/internal/metrics"
	"github.com/adguardctl/adguardhome-go/transport"
)

// LibraryVersion is the version of this library, sent in the default
// User-Agent header.
const LibraryVersion = "0.3.0"

// Client is an AdGuard Home API client.
// It is safe for concurrent use from multiple goroutines.
type Client struct {
	config  *clientConfig
	baseURL *url.URL
	session *transport.Session
	logger  *slog.Logger
	metrics *metrics.Collector
}

// New creates a new AdGuard Home client for host with the given options.
//
// Example:
//
//	// Local instance on the default port
//	client, err := adguardhome.New("192.168.1.2")
//
//	// Authenticated instance behind TLS
//	client, err := adguardhome.New("adguard.example.com",
//	    adguardhome.WithTLS(true),
//	    adguardhome.WithPort(443),
//	    adguardhome.WithBasicAuth("admin", "secret"),
//	)
func New(host string, opts ...Option) (*Client, error) {
	config := defaultConfig(host)
	for _, opt := range opts {
		opt(config)
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	config.basePath = normalizeBasePath(config.basePath)

	// Set up session
	var session *transport.Session
	if config.httpClient != nil {
		session = transport.Borrowed(config.httpClient)
	} else {
		session = transport.Owned(transport.WithVerifyTLS(config.verifyTLS))
	}

	logger := config.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var collector *metrics.Collector
	if config.registerer != nil {
		var err error
		collector, err = metrics.New(config.registerer)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	return &Client{
		config:  config,
		baseURL: config.baseURL(),
		session: session,
		logger:  logger,
		metrics: collector,
	}, nil
}

// MustNew creates a new AdGuard Home client with the given options.
// Panics if the configuration is invalid.
// Use New() for error handling in production code.
func MustNew(host string, opts ...Option) *Client {
	client, err := New(host, opts...)
	if err != nil {
		panic(err)
	}
	return client
}

// Use creates a client, passes it to fn and closes it when fn returns or
// panics. The error of fn is returned, joined with any error from Close.
func Use(host string, fn func(*Client) error, opts ...Option) (err error) {
	client, err := New(host, opts...)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, client.Close())
	}()
	return fn(client)
}

// validateConfig validates the client configuration.
func validateConfig(config *clientConfig) error {
	if config.host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if config.port < 1 || config.port > 65535 {
		return fmt.Errorf("port %d out of range", config.port)
	}
	if config.timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	return nil
}

// Request calls uri on the AdGuard Home instance and decodes the response.
//
// uri is resolved against the base path: "status" becomes
// "/control/status", while an absolute path such as "/" replaces it. The
// whole exchange, including reading the body, is bounded by the configured
// timeout.
//
// Statuses in [400,600) are returned as *ApplicationError. Timeouts and
// transport failures are returned as *ConnectionError. JSON responses are
// returned as-is; any other response is wrapped as {"message": text}.
//
// Example:
//
//	resp, err := client.Request(ctx, "filtering/refresh",
//	    adguardhome.WithMethod(http.MethodPost),
//	    adguardhome.WithJSON(map[string]bool{"whitelist": false}),
//	    adguardhome.WithQuery(url.Values{"force": {"true"}}),
//	)
func (c *Client) Request(ctx context.Context, uri string, opts ...RequestOption) (*Response, error) {
	reqConfig := &requestConfig{method: http.MethodGet}
	for _, opt := range opts {
		opt(reqConfig)
	}

	u, err := resolveURL(c.baseURL, uri, reqConfig.query)
	if err != nil {
		return nil, &ApplicationError{Message: "invalid request uri", Err: err}
	}

	body, contentType, err := encodeBody(reqConfig)
	if err != nil {
		return nil, &ApplicationError{Message: "encode request body", Err: err}
	}

	if c.config.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, reqConfig.method, u.String(), body)
	if err != nil {
		return nil, &ApplicationError{Message: "create request", Err: err}
	}
	httpReq.Header.Set("Accept", acceptHeader)
	httpReq.Header.Set("User-Agent", c.config.userAgent)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if c.config.username != "" && c.config.password != "" {
		httpReq.SetBasicAuth(c.config.username, c.config.password)
	}

	endpoint, _, _ := strings.Cut(uri, "?")
	start := time.Now()

	resp, err := c.execute(ctx, httpReq)

	outcome := metrics.OutcomeSuccess
	var appErr *ApplicationError
	switch {
	case errors.As(err, &appErr):
		outcome = metrics.OutcomeApplicationError
	case err != nil:
		outcome = metrics.OutcomeConnectionError
	}
	c.metrics.RecordRequest(reqConfig.method, endpoint, time.Since(start), outcome)

	return resp, err
}

// execute sends the request through the session and classifies the result.
func (c *Client) execute(ctx context.Context, httpReq *http.Request) (*Response, error) {
	httpClient, created := c.session.Client()
	if created {
		c.logger.DebugContext(ctx, "created HTTP session")
	}

	start := time.Now()
	httpResp, err := httpClient.Do(httpReq)
	if err != nil {
		connErr := classifyTransportError(ctx, err)
		c.logger.DebugContext(ctx, "request failed",
			"method", httpReq.Method,
			"url", httpReq.URL.Redacted(),
			"error", err.Error(),
		)
		return nil, connErr
	}
	defer httpResp.Body.Close()

	// The body is always read to the end so the connection can be reused.
	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	ct := httpResp.Header.Get("Content-Type")
	c.logger.DebugContext(ctx, "request completed",
		"method", httpReq.Method,
		"url", httpReq.URL.Redacted(),
		"status", httpResp.StatusCode,
		"duration", time.Since(start),
	)

	if httpResp.StatusCode/100 == 4 || httpResp.StatusCode/100 == 5 {
		return nil, &ApplicationError{
			StatusCode: httpResp.StatusCode,
			Body:       errorBody(ct, raw),
		}
	}

	if isJSONContentType(ct) {
		resp, err := newJSONResponse(httpResp.StatusCode, ct, raw)
		if err != nil {
			return nil, &ApplicationError{
				StatusCode: httpResp.StatusCode,
				Message:    "invalid JSON response",
				Err:        err,
			}
		}
		return resp, nil
	}

	resp, err := newTextResponse(httpResp.StatusCode, ct, raw)
	if err != nil {
		return nil, &ApplicationError{StatusCode: httpResp.StatusCode, Err: err}
	}
	return resp, nil
}

// classifyTransportError maps a transport failure to a ConnectionError.
func classifyTransportError(ctx context.Context, err error) *ConnectionError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &ConnectionError{Message: msgTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ConnectionError{Message: msgTimeout, Err: err}
	}
	return &ConnectionError{Message: msgCommunication, Err: err}
}

// Close releases the HTTP session if the client created it. A session
// passed with WithHTTPClient is left open. A request made after Close
// creates a new session.
func (c *Client) Close() error {
	if c.session.IsOwned() && c.session.Active() {
		c.logger.Debug("closing HTTP session")
	}
	return c.session.Close()
}

// BaseURL returns the absolute URL requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Status is the server status reported by the "status" endpoint.
type Status struct {
	Version                    string   `json:"version"`
	Language                   string   `json:"language"`
	DNSAddresses               []string `json:"dns_addresses"`
	DNSPort                    int      `json:"dns_port"`
	HTTPPort                   int      `json:"http_port"`
	ProtectionEnabled          bool     `json:"protection_enabled"`
	ProtectionDisabledDuration int64    `json:"protection_disabled_duration,omitempty"`
	DHCPAvailable              bool     `json:"dhcp_available"`
	Running                    bool     `json:"running"`
}

// Status returns the server status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	resp, err := c.Request(ctx, "status")
	if err != nil {
		return nil, err
	}
	var st Status
	if err := resp.Unmarshal(&st); err != nil {
		return nil, &ApplicationError{StatusCode: resp.StatusCode, Message: "decode status", Err: err}
	}
	return &st, nil
}

// ProtectionEnabled reports whether AdGuard Home protection is enabled.
func (c *Client) ProtectionEnabled(ctx context.Context) (bool, error) {
	resp, err := c.Request(ctx, "status")
	if err != nil {
		return false, err
	}
	return Field[bool](resp, "protection_enabled")
}

// EnableProtection enables AdGuard Home protection.
func (c *Client) EnableProtection(ctx context.Context) error {
	return WrapError("failed enabling AdGuard Home protection", c.setProtection(ctx, true))
}

// DisableProtection disables AdGuard Home protection.
func (c *Client) DisableProtection(ctx context.Context) error {
	return WrapError("failed disabling AdGuard Home protection", c.setProtection(ctx, false))
}

func (c *Client) setProtection(ctx context.Context, enabled bool) error {
	_, err := c.Request(ctx, "dns_config",
		WithMethod(http.MethodPost),
		WithJSON(map[string]bool{"protection_enabled": enabled}),
	)
	return err
}

// Version returns the version of the connected AdGuard Home instance.
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.Request(ctx, "status")
	if err != nil {
		return "", err
	}
	return Field[string](resp, "version")
}
