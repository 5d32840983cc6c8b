package adguardhome

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
)

// Request content types.
const (
	acceptHeader    = "application/json, text/plain, */*"
	contentTypeText = "text/plain; charset=utf-8"
)

// joinHostPort combines host and port, bracketing IPv6 literals.
func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// resolveURL resolves uri against base using RFC 3986 reference resolution:
// a relative uri is appended to the base path, an absolute path replaces it.
func resolveURL(base *url.URL, uri string, query url.Values) (*url.URL, error) {
	ref, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse uri %q: %w", uri, err)
	}
	u := base.ResolveReference(ref)

	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

// encodeBody returns the request body and its content type. A nil reader
// means no body is sent.
func encodeBody(rc *requestConfig) (io.Reader, string, error) {
	switch {
	case rc.data != nil:
		return bytes.NewBufferString(*rc.data), contentTypeText, nil
	case rc.hasJSON:
		data, err := json.Marshal(rc.jsonBody)
		if err != nil {
			return nil, "", fmt.Errorf("json marshal: %w", err)
		}
		return bytes.NewReader(data), contentTypeJSON, nil
	default:
		return nil, "", nil
	}
}
