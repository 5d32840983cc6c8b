// Package rewrite provides a client for AdGuard Home DNS rewrites.
package rewrite

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/miekg/dns"

	"github.com/adguardctl/adguardhome-go"
)

// RewriteClient defines the interface for DNS rewrite operations.
// Implement this interface for testing with mocks.
type RewriteClient interface {
	List(ctx context.Context) ([]Entry, error)
	Add(ctx context.Context, domain, answer string) error
	Delete(ctx context.Context, domain, answer string) error
}

// Client is a DNS rewrite service client.
type Client struct {
	client adguardhome.Requester
}

// NewClient creates a new DNS rewrite client.
func NewClient(r adguardhome.Requester) *Client {
	return &Client{client: r}
}

// Ensure Client implements RewriteClient.
var _ RewriteClient = (*Client)(nil)

// Entry is a DNS rewrite rule. Domain may be a wildcard such as
// "*.example.com"; Answer is an IP address or a domain name.
type Entry struct {
	Domain string `json:"domain"`
	Answer string `json:"answer"`
}

// Type returns the record type the rewrite answers with: dns.TypeA or
// dns.TypeAAAA for IP answers, dns.TypeCNAME otherwise.
func (e Entry) Type() uint16 {
	ip := net.ParseIP(e.Answer)
	switch {
	case ip == nil:
		return dns.TypeCNAME
	case ip.To4() != nil:
		return dns.TypeA
	default:
		return dns.TypeAAAA
	}
}

// String formats the entry as "domain TYPE answer".
func (e Entry) String() string {
	return fmt.Sprintf("%s %s %s", e.Domain, dns.TypeToString[e.Type()], e.Answer)
}

// List returns all DNS rewrites.
func (c *Client) List(ctx context.Context) ([]Entry, error) {
	resp, err := c.client.Request(ctx, "rewrite/list")
	if err != nil {
		return nil, err
	}
	entries := []Entry{}
	if err := resp.Unmarshal(&entries); err != nil {
		return nil, adguardhome.WrapError("decode rewrite list", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// Add adds a DNS rewrite.
//
// Example:
//
//	err := rw.Add(ctx, "nas.home.arpa", "192.168.1.20")
func (c *Client) Add(ctx context.Context, domain, answer string) error {
	return c.post(ctx, "rewrite/add", domain, answer, "failed to add DNS rewrite rule to AdGuard Home")
}

// Delete removes a DNS rewrite. Both domain and answer must match.
func (c *Client) Delete(ctx context.Context, domain, answer string) error {
	return c.post(ctx, "rewrite/delete", domain, answer, "failed to delete DNS rewrite rule from AdGuard Home")
}

// post sends the entry to uri. The instance answers an accepted change with
// an empty body or "OK"; anything else is a failure.
func (c *Client) post(ctx context.Context, uri, domain, answer, msg string) error {
	if err := validate(domain, answer); err != nil {
		return adguardhome.WrapError(msg, err)
	}

	resp, err := c.client.Request(ctx, uri,
		adguardhome.WithMethod(http.MethodPost),
		adguardhome.WithJSON(Entry{Domain: domain, Answer: answer}),
	)
	if err != nil {
		return adguardhome.WrapError(msg, err)
	}
	if !resp.IsEmpty() && !resp.IsOK() {
		return adguardhome.NewApplicationError(msg, resp)
	}
	return nil
}

func validate(domain, answer string) error {
	if _, ok := dns.IsDomainName(domain); !ok {
		return fmt.Errorf("invalid domain %q", domain)
	}
	if net.ParseIP(answer) != nil {
		return nil
	}
	if _, ok := dns.IsDomainName(answer); !ok {
		return fmt.Errorf("invalid answer %q", answer)
	}
	return nil
}
