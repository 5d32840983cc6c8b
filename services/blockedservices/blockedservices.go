// Package blockedservices provides a client for AdGuard Home blocked
// services, such as streaming or social media platforms blocked as a whole.
package blockedservices

import (
	"context"
	"net/http"

	"github.com/adguardctl/adguardhome-go"
)

// BlockedServicesClient defines the interface for blocked services
// operations.
type BlockedServicesClient interface {
	All(ctx context.Context) ([]Service, error)
	List(ctx context.Context) ([]string, error)
	Set(ctx context.Context, ids []string) error
}

// Client is a blocked services client.
type Client struct {
	client adguardhome.Requester
}

// NewClient creates a new blocked services client.
func NewClient(r adguardhome.Requester) *Client {
	return &Client{client: r}
}

// Ensure Client implements BlockedServicesClient.
var _ BlockedServicesClient = (*Client)(nil)

// Service is a service that can be blocked.
type Service struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	IconSVG string   `json:"icon_svg,omitempty"`
	Rules   []string `json:"rules,omitempty"`
}

// All returns every service that can be blocked.
func (c *Client) All(ctx context.Context) ([]Service, error) {
	resp, err := c.client.Request(ctx, "blocked_services/all")
	if err != nil {
		return nil, err
	}
	return adguardhome.Field[[]Service](resp, "blocked_services")
}

// List returns the ids of the currently blocked services.
func (c *Client) List(ctx context.Context) ([]string, error) {
	resp, err := c.client.Request(ctx, "blocked_services/list")
	if err != nil {
		return nil, err
	}
	ids := []string{}
	if err := resp.Unmarshal(&ids); err != nil {
		return nil, adguardhome.WrapError("decode blocked services", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Set replaces the blocked services with ids. An empty list unblocks all
// services.
//
// Example:
//
//	err := bs.Set(ctx, []string{"tiktok", "snapchat"})
func (c *Client) Set(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	_, err := c.client.Request(ctx, "blocked_services/set",
		adguardhome.WithMethod(http.MethodPost),
		adguardhome.WithJSON(ids),
	)
	return adguardhome.WrapError("setting AdGuard Home blocked services failed", err)
}
