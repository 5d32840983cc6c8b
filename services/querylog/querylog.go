// Package querylog provides a client for the AdGuard Home query log
// settings.
package querylog

import (
	"context"
	"net/http"

	"github.com/adguardctl/adguardhome-go"
)

// QueryLogClient defines the interface for query log operations.
// Implement this interface for testing with mocks.
type QueryLogClient interface {
	Enabled(ctx context.Context) (bool, error)
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	Interval(ctx context.Context) (int, error)
	SetInterval(ctx context.Context, days int) error
	Config(ctx context.Context) (*Config, error)
}

// Client is a query log service client.
type Client struct {
	client adguardhome.Requester
}

// NewClient creates a new query log client.
func NewClient(r adguardhome.Requester) *Client {
	return &Client{client: r}
}

// Ensure Client implements QueryLogClient.
var _ QueryLogClient = (*Client)(nil)

// Config is the query log configuration reported by "querylog_info".
type Config struct {
	Enabled           bool `json:"enabled"`
	Interval          int  `json:"interval"`
	AnonymizeClientIP bool `json:"anonymize_client_ip,omitempty"`
}

// Config returns the query log configuration.
func (c *Client) Config(ctx context.Context) (*Config, error) {
	resp, err := c.client.Request(ctx, "querylog_info")
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := resp.Unmarshal(&cfg); err != nil {
		return nil, adguardhome.WrapError("decode query log config", err)
	}
	return &cfg, nil
}

// Enabled reports whether the query log is enabled.
func (c *Client) Enabled(ctx context.Context) (bool, error) {
	resp, err := c.client.Request(ctx, "querylog_info")
	if err != nil {
		return false, err
	}
	return adguardhome.Field[bool](resp, "enabled")
}

// Interval returns the number of days query log data is kept.
func (c *Client) Interval(ctx context.Context) (int, error) {
	resp, err := c.client.Request(ctx, "querylog_info")
	if err != nil {
		return 0, err
	}
	return adguardhome.Field[int](resp, "interval")
}

// Enable enables the query log.
func (c *Client) Enable(ctx context.Context) error {
	enabled := true
	return adguardhome.WrapError("enabling AdGuard Home query log failed",
		c.configure(ctx, &enabled, nil))
}

// Disable disables the query log.
func (c *Client) Disable(ctx context.Context) error {
	enabled := false
	return adguardhome.WrapError("disabling AdGuard Home query log failed",
		c.configure(ctx, &enabled, nil))
}

// SetInterval sets the number of days query log data is kept.
func (c *Client) SetInterval(ctx context.Context, days int) error {
	return adguardhome.WrapError("setting AdGuard Home query log interval failed",
		c.configure(ctx, nil, &days))
}

// configure posts querylog_config with both fields; a nil field keeps the
// value currently configured on the instance.
func (c *Client) configure(ctx context.Context, enabled *bool, interval *int) error {
	if enabled == nil || interval == nil {
		cfg, err := c.Config(ctx)
		if err != nil {
			return err
		}
		if enabled == nil {
			enabled = &cfg.Enabled
		}
		if interval == nil {
			interval = &cfg.Interval
		}
	}

	_, err := c.client.Request(ctx, "querylog_config",
		adguardhome.WithMethod(http.MethodPost),
		adguardhome.WithJSON(map[string]any{"enabled": *enabled, "interval": *interval}),
	)
	return err
}
