// Package parental provides a client for AdGuard Home parental control.
package parental

import (
	"context"
	"net/http"

	"github.com/adguardctl/adguardhome-go"
)

// Sensitivity is the parental control age group sent when enabling.
const Sensitivity = "TEEN"

// ParentalClient defines the interface for parental control operations.
// Implement this interface for testing with mocks.
type ParentalClient interface {
	Enabled(ctx context.Context) (bool, error)
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
}

// Client is a parental control service client.
type Client struct {
	client adguardhome.Requester
}

// NewClient creates a new parental control client.
func NewClient(r adguardhome.Requester) *Client {
	return &Client{client: r}
}

// Ensure Client implements ParentalClient.
var _ ParentalClient = (*Client)(nil)

// Enabled reports whether parental control is enabled.
func (c *Client) Enabled(ctx context.Context) (bool, error) {
	resp, err := c.client.Request(ctx, "parental/status")
	if err != nil {
		return false, err
	}
	return adguardhome.Field[bool](resp, "enabled")
}

// Enable enables parental control. The instance must answer with "OK".
func (c *Client) Enable(ctx context.Context) error {
	const msg = "enabling AdGuard Home parental control failed"

	resp, err := c.client.Request(ctx, "parental/enable",
		adguardhome.WithMethod(http.MethodPost),
		adguardhome.WithData("sensitivity="+Sensitivity),
	)
	if err != nil {
		return adguardhome.WrapError(msg, err)
	}
	if !resp.IsOK() {
		return adguardhome.NewApplicationError(msg, resp)
	}
	return nil
}

// Disable disables parental control. The instance must answer with "OK".
func (c *Client) Disable(ctx context.Context) error {
	const msg = "disabling AdGuard Home parental control failed"

	resp, err := c.client.Request(ctx, "parental/disable", adguardhome.WithMethod(http.MethodPost))
	if err != nil {
		return adguardhome.WrapError(msg, err)
	}
	if !resp.IsOK() {
		return adguardhome.NewApplicationError(msg, resp)
	}
	return nil
}
