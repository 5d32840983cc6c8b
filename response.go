package adguardhome

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const contentTypeJSON = "application/json"

// Response is the decoded result of one call to the AdGuard Home API.
//
// A JSON response keeps its body as-is. Any other response is wrapped as
// {"message": <text>} so callers always receive a JSON document.
type Response struct {
	StatusCode  int             // HTTP status code
	ContentType string          // Content-Type header as sent by the server
	Data        json.RawMessage // JSON body, or {"message": text} for text responses
	Text        bool            // True if the body was plain text and has been wrapped
	Message     string          // Raw body text when Text is true
}

// isJSONContentType reports whether a Content-Type header denotes JSON.
// The same rule is applied to successful and failed responses.
func isJSONContentType(ct string) bool {
	return strings.Contains(ct, contentTypeJSON)
}

// newTextResponse wraps a plain-text body.
func newTextResponse(status int, ct string, body []byte) (*Response, error) {
	text := string(body)
	data, err := json.Marshal(map[string]string{"message": text})
	if err != nil {
		return nil, fmt.Errorf("wrap text response: %w", err)
	}
	return &Response{
		StatusCode:  status,
		ContentType: ct,
		Data:        data,
		Text:        true,
		Message:     text,
	}, nil
}

// newJSONResponse validates and keeps a JSON body.
func newJSONResponse(status int, ct string, body []byte) (*Response, error) {
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: invalid JSON body", ErrInvalidResponse)
	}
	return &Response{
		StatusCode:  status,
		ContentType: ct,
		Data:        json.RawMessage(trimmed),
	}, nil
}

// Unmarshal decodes the response data into v.
func (r *Response) Unmarshal(v any) error {
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("json unmarshal: %w", err)
	}
	return nil
}

// Value returns the response as generic JSON values: map[string]any,
// []any, string, float64, bool or nil.
func (r *Response) Value() any {
	var v any
	if err := json.Unmarshal(r.Data, &v); err != nil {
		return nil
	}
	return v
}

// Object returns the response as a JSON object, or nil if the body is not
// an object.
func (r *Response) Object() map[string]any {
	m, _ := r.Value().(map[string]any)
	return m
}

// IsOK reports whether the response is the plain-text "OK" success marker.
func (r *Response) IsOK() bool {
	return r.Text && strings.TrimSpace(r.Message) == "OK"
}

// IsEmpty reports whether the response is a plain-text response with no
// content.
func (r *Response) IsEmpty() bool {
	return r.Text && strings.TrimSpace(r.Message) == ""
}

// String returns the raw text for text responses and the JSON document
// otherwise.
func (r *Response) String() string {
	if r.Text {
		return r.Message
	}
	return string(r.Data)
}

// errorBody builds the detail payload of an ApplicationError.
func errorBody(ct string, body []byte) map[string]any {
	if isJSONContentType(ct) {
		var m map[string]any
		if err := json.Unmarshal(body, &m); err == nil && m != nil {
			return m
		}
	}
	return map[string]any{"message": string(body)}
}

// Field decodes one top-level field of a JSON object response into a value
// of type T. A missing field or a non-object response is reported as an
// ApplicationError wrapping ErrInvalidResponse.
func Field[T any](r *Response, name string) (T, error) {
	var zero T

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(r.Data, &obj); err != nil || obj == nil {
		return zero, &ApplicationError{
			StatusCode: r.StatusCode,
			Message:    "response is not a JSON object",
			Err:        ErrInvalidResponse,
		}
	}

	raw, ok := obj[name]
	if !ok {
		return zero, &ApplicationError{
			StatusCode: r.StatusCode,
			Message:    fmt.Sprintf("response has no field %q", name),
			Err:        ErrInvalidResponse,
		}
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, &ApplicationError{
			StatusCode: r.StatusCode,
			Message:    fmt.Sprintf("decode field %q", name),
			Err:        fmt.Errorf("%w: %v", ErrInvalidResponse, err),
		}
	}
	return v, nil
}
