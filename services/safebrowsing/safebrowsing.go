// Package safebrowsing provides a client for the AdGuard Home safe
// browsing web service toggle.
package safebrowsing

import (
	"context"
	"net/http"

	"github.com/adguardctl/adguardhome-go"
)

// SafeBrowsingClient defines the interface for safe browsing operations.
type SafeBrowsingClient interface {
	Enabled(ctx context.Context) (bool, error)
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
}

// Client is a safe browsing service client.
type Client struct {
	client adguardhome.Requester
}

// NewClient creates a new safe browsing client.
func NewClient(r adguardhome.Requester) *Client {
	return &Client{client: r}
}

// Ensure Client implements SafeBrowsingClient.
var _ SafeBrowsingClient = (*Client)(nil)

// Enabled reports whether safe browsing is enabled.
func (c *Client) Enabled(ctx context.Context) (bool, error) {
	resp, err := c.client.Request(ctx, "safebrowsing/status")
	if err != nil {
		return false, err
	}
	return adguardhome.Field[bool](resp, "enabled")
}

// Enable enables safe browsing.
func (c *Client) Enable(ctx context.Context) error {
	return c.toggle(ctx, "safebrowsing/enable", "enabling AdGuard Home safe browsing failed")
}

// Disable disables safe browsing.
func (c *Client) Disable(ctx context.Context) error {
	return c.toggle(ctx, "safebrowsing/disable", "disabling AdGuard Home safe browsing failed")
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
