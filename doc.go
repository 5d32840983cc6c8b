// Package adguardhome provides a Go client for the AdGuard Home control API.
//
// AdGuard Home is a network-wide ad and tracker blocking DNS server. Its web
// interface is backed by an HTTP API under /control/, which this package
// wraps: protection status and toggling live on the root Client, while each
// functional area has a small client under services/.
//
// # Quick Start
//
//	client, err := adguardhome.New("192.168.1.2",
//	    adguardhome.WithBasicAuth("admin", "secret"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	enabled, err := client.ProtectionEnabled(ctx)
//
// # Configuration
//
// Use functional options to configure the client:
//
//	client, err := adguardhome.New("adguard.example.com",
//	    adguardhome.WithTLS(true),
//	    adguardhome.WithPort(443),
//	    adguardhome.WithBasePath("/control"),
//	    adguardhome.WithTimeout(5*time.Second),
//	)
//
// The config package loads the same settings from a TOML file.
//
// # Services
//
// Service clients take any Requester, normally a *Client:
//
//	filter := filtering.NewClient(client)
//	count, err := filter.RulesCount(ctx, false)
//
//	st := stats.NewClient(client)
//	pct, err := st.BlockedPercentage(ctx)
//
// # Sessions
//
// By default the client creates its own HTTP session on the first request
// and releases it on Close. A session passed with WithHTTPClient is
// borrowed and never closed. Use scopes the client to a function:
//
//	err := adguardhome.Use("192.168.1.2", func(c *adguardhome.Client) error {
//	    return c.EnableProtection(ctx)
//	})
//
// # Error Handling
//
// Every request error matches ErrAdGuardHome and is one of two kinds:
//
//   - *ConnectionError: the instance could not be reached, or the request
//     timed out
//   - *ApplicationError: the instance answered with a status in [400,600),
//     or a response failed a check such as a missing "OK" marker
//
//	err := client.EnableProtection(ctx)
//	if adguardhome.IsUnauthorized(err) {
//	    // Check credentials
//	}
//	var connErr *adguardhome.ConnectionError
//	if errors.As(err, &connErr) && connErr.Timeout() {
//	    // Instance is slow or down
//	}
//
// # Thread Safety
//
// The Client is safe for concurrent use from multiple goroutines. Requests
// are not serialized: read-modify-write helpers such as clients.Update can
// race with each other.
package adguardhome
