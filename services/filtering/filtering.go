// Package filtering provides a client for AdGuard Home DNS filtering:
// the global toggle, filter list subscriptions and host checks.
package filtering

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/miekg/dns"

	"github.com/adguardctl/adguardhome-go"
)

// FilteringClient defines the interface for filtering operations.
// Implement this interface for testing with mocks.
type FilteringClient interface {
	Enabled(ctx context.Context) (bool, error)
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	Interval(ctx context.Context) (int, error)
	SetInterval(ctx context.Context, days int) error
	Status(ctx context.Context) (*Status, error)
	RulesCount(ctx context.Context, allowlist bool) (int, error)
	AddURL(ctx context.Context, allowlist bool, name, listURL string) error
	RemoveURL(ctx context.Context, allowlist bool, listURL string) error
	EnableURL(ctx context.Context, allowlist bool, listURL string) error
	DisableURL(ctx context.Context, allowlist bool, listURL string) error
	Refresh(ctx context.Context, allowlist, force bool) error
	CheckHost(ctx context.Context, name string) (*HostCheck, error)
}

// Client is a filtering service client.
type Client struct {
	client adguardhome.Requester
}

// NewClient creates a new filtering client.
func NewClient(r adguardhome.Requester) *Client {
	return &Client{client: r}
}

// Ensure Client implements FilteringClient.
var _ FilteringClient = (*Client)(nil)

// Filter is one filter list subscription.
type Filter struct {
	ID          int64  `json:"id"`
	Enabled     bool   `json:"enabled"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	RulesCount  int    `json:"rules_count"`
	LastUpdated string `json:"last_updated,omitempty"`
}

// Status is the filtering configuration reported by "filtering/status".
type Status struct {
	Enabled          bool     `json:"enabled"`
	Interval         int      `json:"interval"`
	Filters          []Filter `json:"filters"`
	WhitelistFilters []Filter `json:"whitelist_filters"`
	UserRules        []string `json:"user_rules"`
}

// Lists returns the allowlist or blocklist subscriptions.
func (s *Status) Lists(allowlist bool) []Filter {
	if allowlist {
		return s.WhitelistFilters
	}
	return s.Filters
}

// HostCheck is the filtering verdict for a single host name.
type HostCheck struct {
	Reason      string   `json:"reason"`
	FilterID    int64    `json:"filter_id,omitempty"`
	Rule        string   `json:"rule,omitempty"`
	ServiceName string   `json:"service_name,omitempty"`
	CNAME       string   `json:"cname,omitempty"`
	IPAddrs     []string `json:"ip_addrs,omitempty"`
}

// Blocked reports whether the verdict blocks the host.
func (h *HostCheck) Blocked() bool {
	return strings.HasPrefix(h.Reason, "Filtered")
}

// Status returns the full filtering configuration.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	resp, err := c.client.Request(ctx, "filtering/status")
	if err != nil {
		return nil, err
	}
	var st Status
	if err := resp.Unmarshal(&st); err != nil {
		return nil, adguardhome.WrapError("decode filtering status", err)
	}
	return &st, nil
}

// Enabled reports whether filtering is enabled.
func (c *Client) Enabled(ctx context.Context) (bool, error) {
	resp, err := c.client.Request(ctx, "filtering/status")
	if err != nil {
		return false, err
	}
	return adguardhome.Field[bool](resp, "enabled")
}

// Interval returns the filter list update interval in hours.
func (c *Client) Interval(ctx context.Context) (int, error) {
	resp, err := c.client.Request(ctx, "filtering/status")
	if err != nil {
		return 0, err
	}
	return adguardhome.Field[int](resp, "interval")
}

// Enable enables filtering, keeping the current interval.
func (c *Client) Enable(ctx context.Context) error {
	return adguardhome.WrapError("enabling AdGuard Home filtering failed",
		c.configure(ctx, ptr(true), nil))
}

// Disable disables filtering, keeping the current interval.
func (c *Client) Disable(ctx context.Context) error {
	return adguardhome.WrapError("disabling AdGuard Home filtering failed",
		c.configure(ctx, ptr(false), nil))
}

// SetInterval sets the filter list update interval, keeping the current
// enabled state.
func (c *Client) SetInterval(ctx context.Context, hours int) error {
	return adguardhome.WrapError("setting AdGuard Home filtering interval failed",
		c.configure(ctx, nil, &hours))
}

// configure posts filtering/config. The endpoint replaces both fields, so
// any field not given is read from the server first.
func (c *Client) configure(ctx context.Context, enabled *bool, interval *int) error {
	if enabled == nil || interval == nil {
		st, err := c.Status(ctx)
		if err != nil {
			return err
		}
		if enabled == nil {
			enabled = &st.Enabled
		}
		if interval == nil {
			interval = &st.Interval
		}
	}

	_, err := c.client.Request(ctx, "filtering/config",
		adguardhome.WithMethod(http.MethodPost),
		adguardhome.WithJSON(map[string]any{"enabled": *enabled, "interval": *interval}),
	)
	return err
}

// RulesCount returns the number of rules loaded from allowlists or
// blocklists.
//
// Example:
//
//	blocked, err := filter.RulesCount(ctx, false)
func (c *Client) RulesCount(ctx context.Context, allowlist bool) (int, error) {
	st, err := c.Status(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, f := range st.Lists(allowlist) {
		total += f.RulesCount
	}
	return total, nil
}

// AddURL subscribes to a filter list.
func (c *Client) AddURL(ctx context.Context, allowlist bool, name, listURL string) error {
	_, err := c.client.Request(ctx, "filtering/add_url",
		adguardhome.WithMethod(http.MethodPost),
		adguardhome.WithJSON(map[string]any{"whitelist": allowlist, "name": name, "url": listURL}),
	)
	return adguardhome.WrapError("failed adding URL to AdGuard Home filter", err)
}

// RemoveURL removes a filter list subscription.
func (c *Client) RemoveURL(ctx context.Context, allowlist bool, listURL string) error {
	_, err := c.client.Request(ctx, "filtering/remove_url",
		adguardhome.WithMethod(http.MethodPost),
		adguardhome.WithJSON(map[string]any{"whitelist": allowlist, "url": listURL}),
	)
	return adguardhome.WrapError("failed removing URL from AdGuard Home filter", err)
}

// EnableURL enables a filter list subscription.
func (c *Client) EnableURL(ctx context.Context, allowlist bool, listURL string) error {
	return adguardhome.WrapError("failed enabling URL on AdGuard Home filter",
		c.setURL(ctx, allowlist, listURL, true))
}

// DisableURL disables a filter list subscription.
func (c *Client) DisableURL(ctx context.Context, allowlist bool, listURL string) error {
	return adguardhome.WrapError("failed disabling URL on AdGuard Home filter",
		c.setURL(ctx, allowlist, listURL, false))
}

// setURL posts filtering/set_url. The endpoint requires the subscription
// name, so it is looked up by URL first.
func (c *Client) setURL(ctx context.Context, allowlist bool, listURL string, enabled bool) error {
	st, err := c.Status(ctx)
	if err != nil {
		return err
	}

	name := "Unknown"
	for _, f := range st.Lists(allowlist) {
		if strings.EqualFold(f.URL, listURL) {
			name = f.Name
			break
		}
	}

	_, err = c.client.Request(ctx, "filtering/set_url",
		adguardhome.WithMethod(http.MethodPost),
		adguardhome.WithJSON(map[string]any{
			"url":       listURL,
			"whitelist": allowlist,
			"data":      map[string]any{"enabled": enabled, "name": name, "url": listURL},
		}),
	)
	return err
}

// Refresh reloads filter lists from their URLs. With force, lists are
// downloaded even if they have not expired.
func (c *Client) Refresh(ctx context.Context, allowlist, force bool) error {
	_, err := c.client.Request(ctx, "filtering/refresh",
		adguardhome.WithMethod(http.MethodPost),
		adguardhome.WithJSON(map[string]bool{"whitelist": allowlist}),
		adguardhome.WithQuery(url.Values{"force": {strconv.FormatBool(force)}}),
	)
	return adguardhome.WrapError("failed refreshing filter URLs in AdGuard Home", err)
}

// CheckHost returns how the current filtering rules treat name.
//
// Example:
//
//	check, err := filter.CheckHost(ctx, "ads.example.com")
//	if err == nil && check.Blocked() {
//	    fmt.Println("blocked by", check.Rule)
//	}
func (c *Client) CheckHost(ctx context.Context, name string) (*HostCheck, error) {
	if _, ok := dns.IsDomainName(name); !ok {
		return nil, &adguardhome.ApplicationError{
			Message: fmt.Sprintf("invalid host name %q", name),
		}
	}

	resp, err := c.client.Request(ctx, "filtering/check_host",
		adguardhome.WithQuery(url.Values{"name": {name}}),
	)
	if err != nil {
		return nil, adguardhome.WrapError("checking host in AdGuard Home failed", err)
	}
	var check HostCheck
	if err := resp.Unmarshal(&check); err != nil {
		return nil, adguardhome.WrapError("decode host check", err)
	}
	return &check, nil
}

func ptr[T any](v T) *T { return &v }
