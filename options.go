package adguardhome

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Default connection parameters.
const (
	DefaultBasePath = "/control"
	DefaultPort     = 3000
	DefaultTimeout  = 10 * time.Second
)

// Option configures a Client.
type Option func(*clientConfig)

// clientConfig holds client configuration.
type clientConfig struct {
	host       string
	port       int
	basePath   string
	username   string
	password   string
	timeout    time.Duration
	tls        bool
	verifyTLS  bool
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
	registerer prometheus.Registerer
}

// defaultConfig returns the default client configuration.
func defaultConfig(host string) *clientConfig {
	return &clientConfig{
		host:      host,
		port:      DefaultPort,
		basePath:  DefaultBasePath,
		timeout:   DefaultTimeout,
		verifyTLS: true,
		userAgent: "GoAdGuardHome/" + LibraryVersion,
	}
}

// scheme returns "https" when TLS is enabled and "http" otherwise.
func (c *clientConfig) scheme() string {
	if c.tls {
		return "https"
	}
	return "http"
}

// normalizeBasePath returns the base path with exactly one trailing slash
// and a leading slash.
func normalizeBasePath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// baseURL returns scheme://host:port/basePath/.
func (c *clientConfig) baseURL() *url.URL {
	return &url.URL{
		Scheme: c.scheme(),
		Host:   joinHostPort(c.host, c.port),
		Path:   c.basePath,
	}
}

// WithBasePath sets the base path of the control API (default: "/control").
// A trailing slash is added if missing.
func WithBasePath(p string) Option {
	return func(c *clientConfig) {
		c.basePath = p
	}
}

// WithPort sets the port of the web interface (default: 3000).
func WithPort(port int) Option {
	return func(c *clientConfig) {
		c.port = port
	}
}

// WithBasicAuth sets the credentials for HTTP Basic authentication.
// Authentication is only sent when both username and password are set.
func WithBasicAuth(username, password string) Option {
	return func(c *clientConfig) {
		c.username = username
		c.password = password
	}
}

// WithTimeout bounds each whole request, connect through body read
// (default: 10s).
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// WithTLS switches the scheme to https.
func WithTLS(enabled bool) Option {
	return func(c *clientConfig) {
		c.tls = enabled
	}
}

// WithVerifyTLS controls certificate verification (default: true). Set to
// false when the instance uses a self-signed certificate. It only affects the
// client's own HTTP session, not one passed with WithHTTPClient.
func WithVerifyTLS(verify bool) Option {
	return func(c *clientConfig) {
		c.verifyTLS = verify
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *clientConfig) {
		c.userAgent = ua
	}
}

// WithHTTPClient makes the client borrow an existing HTTP client instead of
// creating its own. A borrowed client is never closed by Client.Close.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithLogger sets the logger used for request diagnostics. Output is
// discarded by default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithMetrics registers request metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *clientConfig) {
		c.registerer = reg
	}
}

// RequestOption configures a single request.
type RequestOption func(*requestConfig)

// requestConfig holds per-request configuration.
type requestConfig struct {
	method   string
	data     *string
	jsonBody any
	hasJSON  bool
	query    url.Values
}

// WithMethod sets the HTTP method (default: GET).
func WithMethod(method string) RequestOption {
	return func(c *requestConfig) {
		c.method = method
	}
}

// WithJSON sends v encoded as JSON.
func WithJSON(v any) RequestOption {
	return func(c *requestConfig) {
		c.jsonBody = v
		c.hasJSON = true
	}
}

// WithData sends a raw text body, as used by a few legacy endpoints.
func WithData(data string) RequestOption {
	return func(c *requestConfig) {
		c.data = &data
	}
}

// WithQuery adds query parameters to the request URL.
func WithQuery(q url.Values) RequestOption {
	return func(c *requestConfig) {
		c.query = q
	}
}
