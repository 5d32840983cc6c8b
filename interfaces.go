package adguardhome

import (
	"context"
	"io"
)

// Requester issues requests against the AdGuard Home control API. Service
// clients depend on this interface rather than on *Client.
type Requester interface {
	// Request calls uri, relative to the client's base path, and returns
	// the decoded response.
	Request(ctx context.Context, uri string, opts ...RequestOption) (*Response, error)
}

// ProtectionController toggles global protection.
type ProtectionController interface {
	// ProtectionEnabled reports whether protection is enabled.
	ProtectionEnabled(ctx context.Context) (bool, error)

	// EnableProtection enables protection.
	EnableProtection(ctx context.Context) error

	// DisableProtection disables protection.
	DisableProtection(ctx context.Context) error
}

// API combines every capability of the root client.
type API interface {
	Requester
	ProtectionController
	io.Closer
}

// Ensure Client implements all interfaces.
var (
	_ Requester            = (*Client)(nil)
	_ ProtectionController = (*Client)(nil)
	_ API                  = (*Client)(nil)
)
