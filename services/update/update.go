// Package update provides a client for AdGuard Home version checks and
// self-updates.
package update

import (
	"context"
	"net/http"

	"github.com/adguardctl/adguardhome-go"
)

// UpdateClient defines the interface for update operations.
type UpdateClient interface {
	Available(ctx context.Context) (*AvailableUpdate, error)
	Begin(ctx context.Context) error
}

// Client is an update service client.
type Client struct {
	client adguardhome.Requester
}

// NewClient creates a new update client.
func NewClient(r adguardhome.Requester) *Client {
	return &Client{client: r}
}

// Ensure Client implements UpdateClient.
var _ UpdateClient = (*Client)(nil)

// AvailableUpdate describes the latest AdGuard Home release. Disabled is
// set when update checks are turned off on the instance.
type AvailableUpdate struct {
	NewVersion      string `json:"new_version"`
	Announcement    string `json:"announcement"`
	AnnouncementURL string `json:"announcement_url"`
	CanAutoupdate   bool   `json:"can_autoupdate"`
	Disabled        bool   `json:"disabled"`
}

// Available returns the latest available update.
func (c *Client) Available(ctx context.Context) (*AvailableUpdate, error) {
	resp, err := c.client.Request(ctx, "version.json", adguardhome.WithMethod(http.MethodPost))
	if err != nil {
		return nil, err
	}
	var u AvailableUpdate
	if err := resp.Unmarshal(&u); err != nil {
		return nil, adguardhome.WrapError("decode available update", err)
	}
	return &u, nil
}

// Begin starts the auto-update procedure. The instance restarts once the
// update is installed.
func (c *Client) Begin(ctx context.Context) error {
	_, err := c.client.Request(ctx, "update", adguardhome.WithMethod(http.MethodPost))
	return adguardhome.WrapError("begin AdGuard Home update failed", err)
}
