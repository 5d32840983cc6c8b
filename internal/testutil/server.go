// Package testutil provides a fake AdGuard Home control API for tests.
package testutil

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

// Reply is a canned HTTP response.
type Reply struct {
	Status      int
	ContentType string
	Body        string
	Header      map[string]string
	Delay       time.Duration
}

// JSON returns a 200 reply with a JSON body.
func JSON(body string) Reply {
	return Reply{Status: http.StatusOK, ContentType: "application/json", Body: body}
}

// Text returns a 200 reply with a plain-text body.
func Text(body string) Reply {
	return Reply{Status: http.StatusOK, ContentType: "text/plain; charset=utf-8", Body: body}
}

// Status returns a plain-text reply with the given status code.
func Status(code int, body string) Reply {
	return Reply{Status: code, ContentType: "text/plain; charset=utf-8", Body: body}
}

// Recorded is a request received by the server.
type Recorded struct {
	Host     string
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     string
}

// Server serves canned replies keyed by method and path. Replies registered
// for the same route are served in order; the last one repeats.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string][]Reply
	requests []Recorded
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{routes: make(map[string][]Reply)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Handle registers replies for method and path.
func (s *Server) Handle(method, path string, replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.routes[key] = append(s.routes[key], replies...)
}

// Requests returns every request received so far.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Recorded, len(s.requests))
	copy(out, s.requests)
	return out
}

// Last returns the most recent request. It panics if there is none.
func (s *Server) Last() Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

// Host returns the host the server listens on.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.Listener.Addr().String())
	return host
}

// Port returns the port the server listens on.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.Listener.Addr().String())
	p, _ := strconv.Atoi(port)
	return p
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, Recorded{
		Host:     r.Host,
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header.Clone(),
		Body:     string(body),
	})
	key := r.Method + " " + r.URL.Path
	queue := s.routes[key]
	var reply Reply
	found := len(queue) > 0
	if found {
		reply = queue[0]
		if len(queue) > 1 {
			s.routes[key] = queue[1:]
		}
	}
	s.mu.Unlock()

	if !found {
		http.Error(w, "no route for "+key, http.StatusNotFound)
		return
	}

	if reply.Delay > 0 {
		select {
		case <-time.After(reply.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for k, v := range reply.Header {
		w.Header().Set(k, v)
	}
	if reply.ContentType != "" {
		w.Header().Set("Content-Type", reply.ContentType)
	}
	w.WriteHeader(reply.Status)
	_, _ = io.WriteString(w, reply.Body)
}
