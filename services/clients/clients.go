// Package clients provides a client for AdGuard Home per-client settings.
//
// AdGuard Home has no partial update endpoint for a client: Update reads
// the full record, applies a change and writes the full record back. Two
// concurrent updates of the same client can race, and the later write
// silently discards the earlier change. Callers that update the same
// client from several goroutines must serialize those calls themselves.
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/yl2chen/cidranger"

	"github.com/adguardctl/adguardhome-go"
)

// ClientsClient defines the interface for client settings operations.
// Implement this interface for testing with mocks.
type ClientsClient interface {
	All(ctx context.Context) ([]Settings, error)
	Get(ctx context.Context, name string) (*Settings, error)
	AutoClients(ctx context.Context) ([]AutoClient, error)
	SupportedTags(ctx context.Context) ([]string, error)
	Update(ctx context.Context, name string, mutate func(*Settings)) error
	SetFiltering(ctx context.Context, name string, enabled bool) error
	SetParental(ctx context.Context, name string, enabled bool) error
	SetSafeBrowsing(ctx context.Context, name string, enabled bool) error
	SetSafeSearch(ctx context.Context, name string, enabled bool) error
	FindByAddress(ctx context.Context, ip net.IP) (*Settings, error)
}

// Client is a client settings service client.
type Client struct {
	client adguardhome.Requester
}

// NewClient creates a new client settings client.
func NewClient(r adguardhome.Requester) *Client {
	return &Client{client: r}
}

// Ensure Client implements ClientsClient.
var _ ClientsClient = (*Client)(nil)

// Settings is a persistent client. IDs hold IP addresses, CIDR ranges, MAC
// addresses or ClientIDs. Fields this package does not model are kept
// and written back unchanged by Update.
type Settings struct {
	Name                     string   `json:"name"`
	IDs                      []string `json:"ids"`
	Tags                     []string `json:"tags"`
	UseGlobalSettings        bool     `json:"use_global_settings"`
	FilteringEnabled         bool     `json:"filtering_enabled"`
	ParentalEnabled          bool     `json:"parental_enabled"`
	SafeBrowsingEnabled      bool     `json:"safebrowsing_enabled"`
	SafeSearchEnabled        bool     `json:"safesearch_enabled"`
	UseGlobalBlockedServices bool     `json:"use_global_blocked_services"`
	BlockedServices          []string `json:"blocked_services"`
	Upstreams                []string `json:"upstreams"`

	extra map[string]json.RawMessage
}

type settingsFields Settings

// UnmarshalJSON decodes the known fields and keeps the raw document.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var f settingsFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Settings(f)
	s.extra = raw
	return nil
}

// MarshalJSON encodes the known fields over the fields kept from decoding.
func (s Settings) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(settingsFields(s))
	if err != nil {
		return nil, err
	}
	if len(s.extra) == 0 {
		return data, nil
	}

	var known map[string]json.RawMessage
	if err := json.Unmarshal(data, &known); err != nil {
		return nil, err
	}
	merged := make(map[string]json.RawMessage, len(s.extra)+len(known))
	for k, v := range s.extra {
		merged[k] = v
	}
	for k, v := range known {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// AutoClient is a client discovered from DHCP leases, ARP, rDNS or WHOIS.
type AutoClient struct {
	IP        string            `json:"ip"`
	Name      string            `json:"name"`
	Source    string            `json:"source"`
	WhoisInfo map[string]string `json:"whois_info,omitempty"`
}

type clientsResponse struct {
	Clients       []Settings   `json:"clients"`
	AutoClients   []AutoClient `json:"auto_clients"`
	SupportedTags []string     `json:"supported_tags"`
}

func (c *Client) fetch(ctx context.Context) (*clientsResponse, error) {
	resp, err := c.client.Request(ctx, "clients")
	if err != nil {
		return nil, err
	}
	var out clientsResponse
	if err := resp.Unmarshal(&out); err != nil {
		return nil, adguardhome.WrapError("decode clients", err)
	}
	return &out, nil
}

// All returns the persistent clients.
func (c *Client) All(ctx context.Context) ([]Settings, error) {
	out, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return out.Clients, nil
}

// AutoClients returns the runtime clients AdGuard Home discovered itself.
func (c *Client) AutoClients(ctx context.Context) ([]AutoClient, error) {
	out, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return out.AutoClients, nil
}

// SupportedTags returns the tags that can be assigned to clients.
func (c *Client) SupportedTags(ctx context.Context) ([]string, error) {
	out, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return out.SupportedTags, nil
}

// Get returns the persistent client with the given name. An unknown name
// is reported as an error matching adguardhome.ErrNotFound.
func (c *Client) Get(ctx context.Context, name string) (*Settings, error) {
	all, err := c.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Name == name {
			return &all[i], nil
		}
	}
	return nil, notFound(fmt.Sprintf("client %q not found", name))
}

// Update applies mutate to the current settings of the named client and
// writes them back. The read and the write are separate requests; see the
// package documentation for the resulting race.
//
// Example:
//
//	err := cl.Update(ctx, "kids-tablet", func(s *clients.Settings) {
//	    s.UseGlobalBlockedServices = false
//	    s.BlockedServices = []string{"tiktok", "youtube"}
//	})
func (c *Client) Update(ctx context.Context, name string, mutate func(*Settings)) error {
	msg := fmt.Sprintf("updating AdGuard Home client %q failed", name)

	current, err := c.Get(ctx, name)
	if err != nil {
		return adguardhome.WrapError(msg, err)
	}
	mutate(current)

	_, err = c.client.Request(ctx, "clients/update",
		adguardhome.WithMethod(http.MethodPost),
		adguardhome.WithJSON(map[string]any{"name": name, "data": current}),
	)
	return adguardhome.WrapError(msg, err)
}

// SetFiltering enables or disables filtering for the named client.
func (c *Client) SetFiltering(ctx context.Context, name string, enabled bool) error {
	return c.Update(ctx, name, func(s *Settings) { s.FilteringEnabled = enabled })
}

// SetParental enables or disables parental control for the named client.
func (c *Client) SetParental(ctx context.Context, name string, enabled bool) error {
	return c.Update(ctx, name, func(s *Settings) { s.ParentalEnabled = enabled })
}

// SetSafeBrowsing enables or disables safe browsing for the named client.
func (c *Client) SetSafeBrowsing(ctx context.Context, name string, enabled bool) error {
	return c.Update(ctx, name, func(s *Settings) { s.SafeBrowsingEnabled = enabled })
}

// SetSafeSearch enables or disables safe search for the named client.
func (c *Client) SetSafeSearch(ctx context.Context, name string, enabled bool) error {
	return c.Update(ctx, name, func(s *Settings) { s.SafeSearchEnabled = enabled })
}

// FindByAddress returns the persistent client whose IP or CIDR ids contain
// ip. When several match, the client with the most specific network wins.
func (c *Client) FindByAddress(ctx context.Context, ip net.IP) (*Settings, error) {
	if ip == nil {
		return nil, &adguardhome.ApplicationError{Message: "invalid IP address"}
	}

	all, err := c.All(ctx)
	if err != nil {
		return nil, err
	}

	ranger := cidranger.NewPCTrieRanger()
	for i, s := range all {
		for _, id := range s.IDs {
			ipNet, ok := parseNetwork(id)
			if !ok {
				continue
			}
			if err := ranger.Insert(clientEntry{network: *ipNet, index: i}); err != nil {
				return nil, adguardhome.WrapError("index client addresses", err)
			}
		}
	}

	entries, err := ranger.ContainingNetworks(ip)
	if err != nil {
		return nil, adguardhome.WrapError("match client address", err)
	}

	best, bestOnes := -1, -1
	for _, e := range entries {
		ce, ok := e.(clientEntry)
		if !ok {
			continue
		}
		ones, _ := ce.network.Mask.Size()
		if ones > bestOnes {
			best, bestOnes = ce.index, ones
		}
	}
	if best < 0 {
		return nil, notFound(fmt.Sprintf("no client for address %s", ip))
	}
	return &all[best], nil
}

// clientEntry is a network in the address index pointing at a client.
type clientEntry struct {
	network net.IPNet
	index   int
}

func (e clientEntry) Network() net.IPNet { return e.network }

// parseNetwork turns an IP or CIDR client id into a network. MAC addresses
// and ClientIDs are not addresses and report false.
func parseNetwork(id string) (*net.IPNet, bool) {
	if strings.Contains(id, "/") {
		_, ipNet, err := net.ParseCIDR(id)
		return ipNet, err == nil
	}
	ip := net.ParseIP(id)
	if ip == nil {
		return nil, false
	}
	if v4 := ip.To4(); v4 != nil {
		return &net.IPNet{IP: v4, Mask: net.CIDRMask(32, 32)}, true
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(128, 128)}, true
}

func notFound(msg string) error {
	return &adguardhome.ApplicationError{
		StatusCode: http.StatusNotFound,
		Message:    msg,
	}
}
