// Package stats provides a client for AdGuard Home statistics.
//
// Each accessor fetches a fresh snapshot; use All to read several values
// from the same snapshot.
package stats

import (
	"context"
	"math"
	"net/http"

	"github.com/adguardctl/adguardhome-go"
)

// StatsClient defines the interface for statistics operations.
// Implement this interface for testing with mocks.
type StatsClient interface {
	All(ctx context.Context) (*Snapshot, error)
	DNSQueries(ctx context.Context) (int64, error)
	BlockedFiltering(ctx context.Context) (int64, error)
	BlockedPercentage(ctx context.Context) (float64, error)
	ReplacedSafeBrowsing(ctx context.Context) (int64, error)
	ReplacedParental(ctx context.Context) (int64, error)
	ReplacedSafeSearch(ctx context.Context) (int64, error)
	AvgProcessingTime(ctx context.Context) (float64, error)
	Period(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
}

// Client is a statistics service client.
type Client struct {
	client adguardhome.Requester
}

// NewClient creates a new statistics client.
func NewClient(r adguardhome.Requester) *Client {
	return &Client{client: r}
}

// Ensure Client implements StatsClient.
var _ StatsClient = (*Client)(nil)

// Snapshot is the statistics document returned by the "stats" endpoint.
// Top lists map a domain or client to its query count.
type Snapshot struct {
	TimeUnits               string             `json:"time_units"`
	NumDNSQueries           int64              `json:"num_dns_queries"`
	NumBlockedFiltering     int64              `json:"num_blocked_filtering"`
	NumReplacedSafeBrowsing int64              `json:"num_replaced_safebrowsing"`
	NumReplacedSafeSearch   int64              `json:"num_replaced_safesearch"`
	NumReplacedParental     int64              `json:"num_replaced_parental"`
	AvgProcessingTime       float64            `json:"avg_processing_time"`
	DNSQueries              []int64            `json:"dns_queries"`
	BlockedFiltering        []int64            `json:"blocked_filtering"`
	ReplacedSafeBrowsing    []int64            `json:"replaced_safebrowsing"`
	ReplacedParental        []int64            `json:"replaced_parental"`
	TopQueriedDomains       []map[string]int64 `json:"top_queried_domains"`
	TopBlockedDomains       []map[string]int64 `json:"top_blocked_domains"`
	TopClients              []map[string]int64 `json:"top_clients"`
}

// BlockedPercentage returns the share of blocked queries in percent, or 0
// when no queries were made.
func (s *Snapshot) BlockedPercentage() float64 {
	if s.NumDNSQueries == 0 {
		return 0.0
	}
	return float64(s.NumBlockedFiltering) / float64(s.NumDNSQueries) * 100.0
}

// AvgProcessingTimeMillis returns the average processing time in
// milliseconds, rounded to two decimals.
func (s *Snapshot) AvgProcessingTimeMillis() float64 {
	return math.Round(s.AvgProcessingTime*1000*100) / 100
}

// All returns the full statistics snapshot.
func (c *Client) All(ctx context.Context) (*Snapshot, error) {
	resp, err := c.client.Request(ctx, "stats")
	if err != nil {
		return nil, err
	}
	var s Snapshot
	if err := resp.Unmarshal(&s); err != nil {
		return nil, adguardhome.WrapError("decode stats", err)
	}
	return &s, nil
}

func (c *Client) counter(ctx context.Context, field string) (int64, error) {
	resp, err := c.client.Request(ctx, "stats")
	if err != nil {
		return 0, err
	}
	return adguardhome.Field[int64](resp, field)
}

// DNSQueries returns the number of DNS queries processed.
func (c *Client) DNSQueries(ctx context.Context) (int64, error) {
	return c.counter(ctx, "num_dns_queries")
}

// BlockedFiltering returns the number of queries blocked by filter lists.
func (c *Client) BlockedFiltering(ctx context.Context) (int64, error) {
	return c.counter(ctx, "num_blocked_filtering")
}

// ReplacedSafeBrowsing returns the number of pages blocked by safe browsing.
func (c *Client) ReplacedSafeBrowsing(ctx context.Context) (int64, error) {
	return c.counter(ctx, "num_replaced_safebrowsing")
}

// ReplacedParental returns the number of pages blocked by parental control.
func (c *Client) ReplacedParental(ctx context.Context) (int64, error) {
	return c.counter(ctx, "num_replaced_parental")
}

// ReplacedSafeSearch returns the number of enforced safe searches.
func (c *Client) ReplacedSafeSearch(ctx context.Context) (int64, error) {
	return c.counter(ctx, "num_replaced_safesearch")
}

// BlockedPercentage returns the share of blocked queries in percent.
// It returns 0 when no queries were made.
func (c *Client) BlockedPercentage(ctx context.Context) (float64, error) {
	resp, err := c.client.Request(ctx, "stats")
	if err != nil {
		return 0, err
	}
	total, err := adguardhome.Field[int64](resp, "num_dns_queries")
	if err != nil {
		return 0, err
	}
	blocked, err := adguardhome.Field[int64](resp, "num_blocked_filtering")
	if err != nil {
		return 0, err
	}
	s := Snapshot{NumDNSQueries: total, NumBlockedFiltering: blocked}
	return s.BlockedPercentage(), nil
}

// AvgProcessingTime returns the average query processing time in
// milliseconds, rounded to two decimals.
func (c *Client) AvgProcessingTime(ctx context.Context) (float64, error) {
	resp, err := c.client.Request(ctx, "stats")
	if err != nil {
		return 0, err
	}
	secs, err := adguardhome.Field[float64](resp, "avg_processing_time")
	if err != nil {
		return 0, err
	}
	s := Snapshot{AvgProcessingTime: secs}
	return s.AvgProcessingTimeMillis(), nil
}

// Period returns the statistics retention period reported by
// "stats_info".
func (c *Client) Period(ctx context.Context) (int, error) {
	resp, err := c.client.Request(ctx, "stats_info")
	if err != nil {
		return 0, err
	}
	return adguardhome.Field[int](resp, "interval")
}

// Reset clears all statistics. The instance must answer with "OK".
func (c *Client) Reset(ctx context.Context) error {
	const msg = "resetting AdGuard Home stats failed"

	resp, err := c.client.Request(ctx, "stats_reset", adguardhome.WithMethod(http.MethodPost))
	if err != nil {
		return adguardhome.WrapError(msg, err)
	}
	if !resp.IsOK() {
		return adguardhome.NewApplicationError(msg, resp)
	}
	return nil
}
