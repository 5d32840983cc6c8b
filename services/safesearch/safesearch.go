// Package safesearch provides a client for AdGuard Home safe search
// enforcement on search engines and video sites.
package safesearch

import (
	"context"
	"net/http"

	"github.com/adguardctl/adguardhome-go"
)

// SafeSearchClient defines the interface for safe search operations.
type SafeSearchClient interface {
	Enabled(ctx context.Context) (bool, error)
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
}

// Client is a safe search service client.
type Client struct {
	client adguardhome.Requester
}

// NewClient creates a new safe search client.
func NewClient(r adguardhome.Requester) *Client {
	return &Client{client: r}
}

// Ensure Client implements SafeSearchClient.
var _ SafeSearchClient = (*Client)(nil)

// Enabled reports whether safe search is enforced.
func (c *Client) Enabled(ctx context.Context) (bool, error) {
	resp, err := c.client.Request(ctx, "safesearch/status")
	if err != nil {
		return false, err
	}
	return adguardhome.Field[bool](resp, "enabled")
}

// Enable enables safe search.
func (c *Client) Enable(ctx context.Context) error {
	return c.toggle(ctx, "safesearch/enable", "enabling AdGuard Home safe search failed")
}

// Disable disables safe search.
func (c *Client) Disable(ctx context.Context) error {
	return c.toggle(ctx, "safesearch/disable", "disabling AdGuard Home safe search failed")
}

func (c *Client) toggle(ctx context.Context, uri, msg string) error {
	resp, err := c.client.Request(ctx, uri, adguardhome.WithMethod(http.MethodPost))
	if err != nil {
		return adguardhome.WrapError(msg, err)
	}
	if !resp.IsOK() {
		return adguardhome.NewApplicationError(msg, resp)
	}
	return nil
}
