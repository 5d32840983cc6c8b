// Package transport manages the HTTP session used to talk to AdGuard Home.
//
// A session is either borrowed from the caller, in which case it is never
// closed here, or owned: created lazily on first use and released by Close.
package transport

import (
	"crypto/tls"
	"net/http"
	"sync"
)

// Session holds the HTTP client shared by every request of one API client.
// It is safe for concurrent use.
type Session struct {
	mu        sync.Mutex
	client    *http.Client
	owned     bool
	verifyTLS bool
	newClient func(verifyTLS bool) *http.Client
}

// SessionOption configures an owned Session.
type SessionOption func(*Session)

// WithVerifyTLS controls certificate verification of the owned client.
// Set to false for instances using self-signed certificates.
func WithVerifyTLS(verify bool) SessionOption {
	return func(s *Session) {
		s.verifyTLS = verify
	}
}

// WithClientFactory overrides how the owned client is built.
func WithClientFactory(fn func(verifyTLS bool) *http.Client) SessionOption {
	return func(s *Session) {
		s.newClient = fn
	}
}

// Borrowed wraps a caller-supplied HTTP client. Close never touches it.
func Borrowed(client *http.Client) *Session {
	return &Session{client: client}
}

// Owned returns a session whose HTTP client is created on first use.
func Owned(opts ...SessionOption) *Session {
	s := &Session{
		owned:     true,
		verifyTLS: true,
		newClient: NewHTTPClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client returns the HTTP client, creating it for an owned session that has
// none yet. created reports whether this call created it.
func (s *Session) Client() (client *http.Client, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil && s.owned {
		s.client = s.newClient(s.verifyTLS)
		created = true
	}
	return s.client, created
}

// IsOwned reports whether the session created its own client.
func (s *Session) IsOwned() bool {
	return s.owned
}

// Active reports whether the session currently holds a client.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil
}

// Close releases an owned client. A later call to Client creates a fresh
// one. Borrowed clients are left untouched.
func (s *Session) Close() error {
	if !s.owned {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		s.client.CloseIdleConnections()
		s.client = nil
	}
	return nil
}

// NewHTTPClient builds the HTTP client used for owned sessions. No client
// level timeout is set; callers bound each request with a context deadline.
func NewHTTPClient(verifyTLS bool) *http.Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if !verifyTLS {
		if t.TLSClientConfig == nil {
			t.TLSClientConfig = &tls.Config{}
		}
		t.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec // opt-in for self-signed instances
	}
	return &http.Client{Transport: t}
}
