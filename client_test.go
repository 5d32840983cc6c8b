package adguardhome

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fake "github.com/adguardctl/adguardhome-go/internal/testutil"
)

func newTestClient(t *testing.T, srv *fake.Server, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithPort(srv.Port())}, opts...)
	c, err := New(srv.Host(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// redirectTransport sends every request to target while keeping the
// original Host header.
type redirectTransport struct {
	target *url.URL
	closed atomic.Int32
}

func (rt *redirectTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r2 := r.Clone(r.Context())
	r2.URL.Scheme = rt.target.Scheme
	r2.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(r2)
}

func (rt *redirectTransport) CloseIdleConnections() {
	rt.closed.Add(1)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		opts    []Option
		wantErr bool
	}{
		{name: "defaults", host: "example.com"},
		{name: "empty host", host: "", wantErr: true},
		{name: "port zero", host: "example.com", opts: []Option{WithPort(0)}, wantErr: true},
		{name: "port too large", host: "example.com", opts: []Option{WithPort(70000)}, wantErr: true},
		{name: "negative timeout", host: "example.com", opts: []Option{WithTimeout(-time.Second)}, wantErr: true},
		{name: "tls", host: "example.com", opts: []Option{WithTLS(true), WithPort(443)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.host, tt.opts...)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, client)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestMustNewPanics(t *testing.T) {
	assert.Panics(t, func() { MustNew("") })
	assert.NotPanics(t, func() { MustNew("example.com") })
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		name string
		host string
		opts []Option
		want string
	}{
		{name: "defaults", host: "example.com", want: "http://example.com:3000/control/"},
		{name: "trailing slash kept single", host: "example.com", opts: []Option{WithBasePath("/control/")}, want: "http://example.com:3000/control/"},
		{name: "missing leading slash", host: "example.com", opts: []Option{WithBasePath("admin")}, want: "http://example.com:3000/admin/"},
		{name: "root", host: "example.com", opts: []Option{WithBasePath("/")}, want: "http://example.com:3000/"},
		{name: "tls and port", host: "example.com", opts: []Option{WithTLS(true), WithPort(443)}, want: "https://example.com:443/control/"},
		{name: "ipv6", host: "::1", want: "http://[::1]:3000/control/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := MustNew(tt.host, tt.opts...)
			assert.Equal(t, tt.want, c.BaseURL())
		})
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		basePath string
		uri      string
		want     string
	}{
		{basePath: "/control", uri: "status", want: "/control/status"},
		{basePath: "/control/", uri: "status", want: "/control/status"},
		{basePath: "/control", uri: "filtering/status", want: "/control/filtering/status"},
		{basePath: "/admin", uri: "status", want: "/admin/status"},
		{basePath: "/control", uri: "/", want: "/"},
		{basePath: "/control", uri: "/other/status", want: "/other/status"},
		{basePath: "/", uri: "status", want: "/status"},
	}

	for _, tt := range tests {
		t.Run(tt.basePath+"+"+tt.uri, func(t *testing.T) {
			c := MustNew("example.com", WithBasePath(tt.basePath))
			u, err := resolveURL(c.baseURL, tt.uri, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.Path)
		})
	}
}

func TestRequestJSONRoundTrip(t *testing.T) {
	inputs := []any{
		map[string]any{"status": "ok"},
		map[string]any{"nested": map[string]any{"list": []any{1.0, "two", true, nil}}},
		[]any{},
		[]any{map[string]any{"domain": "example.org", "answer": "1.2.3.4"}},
	}

	for _, in := range inputs {
		body, err := json.Marshal(in)
		require.NoError(t, err)

		srv := fake.NewServer(t)
		srv.Handle(http.MethodGet, "/control/data", fake.JSON(string(body)))
		c := newTestClient(t, srv)

		resp, err := c.Request(context.Background(), "data")
		require.NoError(t, err)
		assert.False(t, resp.Text)
		if diff := cmp.Diff(in, resp.Value()); diff != "" {
			t.Errorf("decoded JSON mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestRequestJSONContentTypeSubstring(t *testing.T) {
	srv := fake.NewServer(t)
	srv.Handle(http.MethodGet, "/control/status", fake.Reply{
		Status:      http.StatusOK,
		ContentType: "application/json; charset=utf-8",
		Body:        `{"status": "ok"}`,
	})
	c := newTestClient(t, srv)

	resp, err := c.Request(context.Background(), "status")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "ok"}, resp.Object())
}

func TestRequestText(t *testing.T) {
	tests := []string{"OK", "OMG PUPPIES!", "", "  spaced  \n"}

	for _, body := range tests {
		srv := fake.NewServer(t)
		srv.Handle(http.MethodGet, "/control/text", fake.Text(body))
		c := newTestClient(t, srv)

		resp, err := c.Request(context.Background(), "text")
		require.NoError(t, err)
		assert.True(t, resp.Text)
		assert.Equal(t, body, resp.Message)
		assert.Equal(t, map[string]any{"message": body}, resp.Value())
	}
}

func TestRequestInvalidJSON(t *testing.T) {
	srv := fake.NewServer(t)
	srv.Handle(http.MethodGet, "/control/status", fake.JSON("{not json"))
	c := newTestClient(t, srv)

	_, err := c.Request(context.Background(), "status")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidResponse))
	assert.True(t, IsApplicationError(err))
}

func TestRequestStatusClassification(t *testing.T) {
	tests := []struct {
		status  int
		wantErr bool
	}{
		{status: http.StatusOK},
		{status: http.StatusCreated},
		{status: http.StatusAccepted},
		{status: http.StatusBadRequest, wantErr: true},
		{status: http.StatusUnauthorized, wantErr: true},
		{status: http.StatusNotFound, wantErr: true},
		{status: http.StatusInternalServerError, wantErr: true},
		{status: http.StatusServiceUnavailable, wantErr: true},
		{status: 599, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := fake.NewServer(t)
			srv.Handle(http.MethodGet, "/control/x", fake.Status(tt.status, "body text"))
			c := newTestClient(t, srv)

			resp, err := c.Request(context.Background(), "x")
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.status, resp.StatusCode)
				return
			}

			var appErr *ApplicationError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.status, appErr.StatusCode)
			assert.Equal(t, map[string]any{"message": "body text"}, appErr.Body)
			assert.False(t, IsConnectionError(err))
			assert.ErrorIs(t, err, ErrAdGuardHome)
		})
	}
}

func TestRequestErrorJSONBody(t *testing.T) {
	srv := fake.NewServer(t)
	srv.Handle(http.MethodPost, "/control/dns_config", fake.Reply{
		Status:      http.StatusBadRequest,
		ContentType: "application/json",
		Body:        `{"message": "bad input", "code": 7}`,
	})
	c := newTestClient(t, srv)

	_, err := c.Request(context.Background(), "dns_config", WithMethod(http.MethodPost))

	var appErr *ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
	assert.Equal(t, map[string]any{"message": "bad input", "code": 7.0}, appErr.Body)
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.Contains(t, err.Error(), "bad input")
}

func TestRequestRedirectIsTransparent(t *testing.T) {
	srv := fake.NewServer(t)
	srv.Handle(http.MethodGet, "/control/old", fake.Reply{
		Status: http.StatusFound,
		Header: map[string]string{"Location": "/control/new"},
	})
	srv.Handle(http.MethodGet, "/control/new", fake.JSON(`{"moved": true}`))
	c := newTestClient(t, srv)

	resp, err := c.Request(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"moved": true}, resp.Object())
}

func TestRequestTimeout(t *testing.T) {
	srv := fake.NewServer(t)
	srv.Handle(http.MethodGet, "/control/slow", fake.Reply{
		Status: http.StatusOK,
		Body:   "late",
		Delay:  2 * time.Second,
	})
	c := newTestClient(t, srv, WithTimeout(50*time.Millisecond))

	_, err := c.Request(context.Background(), "slow")

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.True(t, connErr.Timeout())
	assert.False(t, IsApplicationError(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrAdGuardHome)
}

func TestRequestConnectionRefused(t *testing.T) {
	srv := fake.NewServer(t)
	host, port := srv.Host(), srv.Port()
	srv.Close()

	c, err := New(host, WithPort(port), WithTimeout(time.Second))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Request(context.Background(), "status")

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.False(t, connErr.Timeout())
	assert.Equal(t, msgCommunication, connErr.Message)
}

func TestRequestCallerCancellation(t *testing.T) {
	srv := fake.NewServer(t)
	srv.Handle(http.MethodGet, "/control/slow", fake.Reply{Status: http.StatusOK, Delay: 2 * time.Second})
	c := newTestClient(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Request(ctx, "slow")
	assert.True(t, IsConnectionError(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRequestBasicAuth(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		wantAuth bool
	}{
		{name: "both set", opts: []Option{WithBasicAuth("frenck", "zerocool")}, wantAuth: true},
		{name: "username only", opts: []Option{WithBasicAuth("frenck", "")}},
		{name: "password only", opts: []Option{WithBasicAuth("", "zerocool")}},
		{name: "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fake.NewServer(t)
			srv.Handle(http.MethodGet, "/control/status", fake.JSON(`{}`))
			c := newTestClient(t, srv, tt.opts...)

			_, err := c.Request(context.Background(), "status")
			require.NoError(t, err)

			auth := srv.Last().Header.Get("Authorization")
			if tt.wantAuth {
				assert.Equal(t, "Basic ZnJlbmNrOnplcm9jb29s", auth)
			} else {
				assert.Empty(t, auth)
			}
		})
	}
}

func TestRequestHeadersAndBody(t *testing.T) {
	srv := fake.NewServer(t)
	srv.Handle(http.MethodGet, "/control/status", fake.Text("OK"))
	srv.Handle(http.MethodPost, "/control/json", fake.Text("OK"))
	srv.Handle(http.MethodPost, "/control/raw", fake.Text("OK"))
	c := newTestClient(t, srv, WithUserAgent("LoremIpsum/1.0"))
	ctx := context.Background()

	_, err := c.Request(ctx, "status")
	require.NoError(t, err)
	last := srv.Last()
	assert.Equal(t, acceptHeader, last.Header.Get("Accept"))
	assert.Equal(t, "LoremIpsum/1.0", last.Header.Get("User-Agent"))
	assert.Empty(t, last.Header.Get("Content-Type"))
	assert.Empty(t, last.Body)

	_, err = c.Request(ctx, "json", WithMethod(http.MethodPost), WithJSON(map[string]bool{"enabled": true}))
	require.NoError(t, err)
	last = srv.Last()
	assert.Equal(t, contentTypeJSON, last.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"enabled": true}`, last.Body)

	_, err = c.Request(ctx, "raw", WithMethod(http.MethodPost), WithData("sensitivity=TEEN"))
	require.NoError(t, err)
	last = srv.Last()
	assert.Equal(t, contentTypeText, last.Header.Get("Content-Type"))
	assert.Equal(t, "sensitivity=TEEN", last.Body)
}

func TestRequestDefaultUserAgent(t *testing.T) {
	srv := fake.NewServer(t)
	srv.Handle(http.MethodGet, "/control/status", fake.Text("OK"))
	c := newTestClient(t, srv)

	_, err := c.Request(context.Background(), "status")
	require.NoError(t, err)
	assert.Equal(t, "GoAdGuardHome/"+LibraryVersion, srv.Last().Header.Get("User-Agent"))
}

func TestRequestQuery(t *testing.T) {
	srv := fake.NewServer(t)
	srv.Handle(http.MethodPost, "/control/filtering/refresh", fake.Text("OK"))
	c := newTestClient(t, srv)

	_, err := c.Request(context.Background(), "filtering/refresh",
		WithMethod(http.MethodPost),
		WithQuery(url.Values{"force": {"true"}}),
	)
	require.NoError(t, err)
	assert.Equal(t, "force=true", srv.Last().RawQuery)
}

func TestOwnedSessionLifecycle(t *testing.T) {
	srv := fake.NewServer(t)
	srv.Handle(http.MethodGet, "/control/status", fake.JSON(`{"protection_enabled": true}`))
	c := newTestClient(t, srv)
	ctx := context.Background()

	assert.True(t, c.session.IsOwned())
	assert.False(t, c.session.Active())

	_, err := c.Request(ctx, "status")
	require.NoError(t, err)
	assert.True(t, c.session.Active())

	first, _ := c.session.Client()
	_, err = c.Request(ctx, "status")
	require.NoError(t, err)
	second, _ := c.session.Client()
	assert.Same(t, first, second)

	require.NoError(t, c.Close())
	assert.False(t, c.session.Active())

	// A closed owned session is created again on the next request.
	_, err = c.Request(ctx, "status")
	require.NoError(t, err)
	assert.True(t, c.session.Active())
}

func TestBorrowedSessionNotClosed(t *testing.T) {
	srv := fake.NewServer(t)
	srv.Handle(http.MethodGet, "/control/status", fake.JSON(`{"protection_enabled": true}`))

	target, err := url.Parse(srv.URL)
	require.NoError(t, err)
	rt := &redirectTransport{target: target}
	httpClient := &http.Client{Transport: rt}

	c, err := New("example.com", WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = c.Request(context.Background(), "status")
	require.NoError(t, err)
	require.NoError(t, c.Close())

	assert.False(t, c.session.IsOwned())
	assert.Zero(t, rt.closed.Load())
	got, _ := c.session.Client()
	assert.Same(t, httpClient, got)
}

func TestUseClosesClient(t *testing.T) {
	srv := fake.NewServer(t)
	srv.Handle(http.MethodGet, "/control/status", fake.JSON(`{"version": "v0.107.0"}`))

	var captured *Client
	boom := errors.New("boom")
	err := Use(srv.Host(), func(c *Client) error {
		captured = c
		v, err := c.Version(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "v0.107.0", v)
		return boom
	}, WithPort(srv.Port()))

	assert.ErrorIs(t, err, boom)
	require.NotNil(t, captured)
	assert.False(t, captured.session.Active())
}

func TestProtectionEnabled(t *testing.T) {
	srv := fake.NewServer(t)
	srv.Handle(http.MethodGet, "/control/status", fake.JSON(`{"protection_enabled": true}`))

	target, err := url.Parse(srv.URL)
	require.NoError(t, err)
	c, err := New("example.com", WithHTTPClient(&http.Client{Transport: &redirectTransport{target: target}}))
	require.NoError(t, err)

	enabled, err := c.ProtectionEnabled(context.Background())
	require.NoError(t, err)
	assert.True(t, enabled)

	last := srv.Last()
	assert.Equal(t, "example.com:3000", last.Host)
	assert.Equal(t, "/control/status", last.Path)
	assert.Equal(t, http.MethodGet, last.Method)
}

func TestProtectionToggle(t *testing.T) {
	srv := fake.NewServer(t)
	srv.Handle(http.MethodPost, "/control/dns_config",
		fake.Text(""),
		fake.Text(""),
		fake.Status(http.StatusBadRequest, "NOT OK"),
	)
	c := newTestClient(t, srv)
	ctx := context.Background()

	require.NoError(t, c.EnableProtection(ctx))
	assert.JSONEq(t, `{"protection_enabled": true}`, srv.Last().Body)

	require.NoError(t, c.DisableProtection(ctx))
	assert.JSONEq(t, `{"protection_enabled": false}`, srv.Last().Body)

	err := c.EnableProtection(ctx)
	var appErr *ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "failed enabling AdGuard Home protection", appErr.Message)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
}

func TestProtectionEnabledMissingField(t *testing.T) {
	srv := fake.NewServer(t)
	srv.Handle(http.MethodGet, "/control/status", fake.JSON(`{"version": "v0.107.0"}`))
	c := newTestClient(t, srv)

	_, err := c.ProtectionEnabled(context.Background())
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestStatus(t *testing.T) {
	srv := fake.NewServer(t)
	srv.Handle(http.MethodGet, "/control/status", fake.JSON(`{
		"version": "v0.107.43",
		"language": "en",
		"dns_addresses": ["192.168.1.2"],
		"dns_port": 53,
		"http_port": 3000,
		"protection_enabled": false,
		"dhcp_available": true,
		"running": true
	}`))
	c := newTestClient(t, srv)

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Status{
		Version:       "v0.107.43",
		Language:      "en",
		DNSAddresses:  []string{"192.168.1.2"},
		DNSPort:       53,
		HTTPPort:      3000,
		DHCPAvailable: true,
		Running:       true,
	}, st)
}

func TestRequestMetrics(t *testing.T) {
	srv := fake.NewServer(t)
	srv.Handle(http.MethodGet, "/control/status", fake.JSON(`{}`))
	srv.Handle(http.MethodPost, "/control/dns_config", fake.Status(http.StatusBadRequest, "no"))

	reg := prometheus.NewRegistry()
	c := newTestClient(t, srv, WithMetrics(reg))
	ctx := context.Background()

	_, err := c.Request(ctx, "status")
	require.NoError(t, err)
	_, err = c.Request(ctx, "dns_config", WithMethod(http.MethodPost))
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.RequestsTotal.WithLabelValues("GET", "status", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.RequestsTotal.WithLabelValues("POST", "dns_config", "application_error")))

	_, err = New(srv.Host(), WithMetrics(reg))
	assert.Error(t, err, "registering twice on one registry must fail")
}
