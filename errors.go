package adguardhome

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrAdGuardHome is the base error matched by every error this package
// reports from a request. Use errors.Is(err, ErrAdGuardHome) to catch both
// connection and application failures.
var ErrAdGuardHome = errors.New("adguardhome")

// ErrInvalidResponse is wrapped when a response announced as JSON cannot be
// decoded.
var ErrInvalidResponse = errors.New("adguardhome: invalid response format")

// Sentinel errors for use with errors.Is. They match any ApplicationError
// carrying the same HTTP status code.
var (
	ErrBadRequest   = &ApplicationError{StatusCode: http.StatusBadRequest, Message: "bad request"}
	ErrUnauthorized = &ApplicationError{StatusCode: http.StatusUnauthorized, Message: "authentication required"}
	ErrForbidden    = &ApplicationError{StatusCode: http.StatusForbidden, Message: "insufficient permissions"}
	ErrNotFound     = &ApplicationError{StatusCode: http.StatusNotFound, Message: "resource not found"}
	ErrServerError  = &ApplicationError{StatusCode: http.StatusInternalServerError, Message: "internal server error"}
)

// Messages used for connection-class failures.
const (
	msgTimeout       = "timeout occurred while connecting to AdGuard Home instance"
	msgCommunication = "error occurred while communicating with AdGuard Home"
)

// ConnectionError reports a failure to reach the AdGuard Home instance or to
// complete the HTTP exchange: timeouts, DNS resolution and socket errors.
type ConnectionError struct {
	Message string // Human-readable message
	Err     error  // Underlying transport error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("adguardhome: %s: %v", e.Message, e.Err)
	}
	return "adguardhome: " + e.Message
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Is implements errors.Is so that ConnectionError matches ErrAdGuardHome.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrAdGuardHome
}

// Timeout reports whether the failure was caused by the request timeout.
func (e *ConnectionError) Timeout() bool {
	return e.Message == msgTimeout
}

// ApplicationError reports a failure signalled by the AdGuard Home instance
// itself (an HTTP status in [400,600)), or a domain check performed on a
// response, such as a missing "OK" marker.
type ApplicationError struct {
	StatusCode int            // HTTP status, 0 when not tied to a response status
	Body       map[string]any // Decoded JSON error body or {"message": text}
	Message    string         // Domain context, e.g. "enabling filtering failed"
	Err        error          // Underlying cause, if any
}

func (e *ApplicationError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = bodyMessage(e.Body)
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}

	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("adguardhome [%d]: %s: %v", e.StatusCode, msg, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("adguardhome [%d]: %s", e.StatusCode, msg)
	case e.Err != nil:
		return fmt.Sprintf("adguardhome: %s: %v", msg, e.Err)
	default:
		return "adguardhome: " + msg
	}
}

func (e *ApplicationError) Unwrap() error { return e.Err }

// Is implements errors.Is. An ApplicationError matches ErrAdGuardHome and any
// ApplicationError sentinel with the same status code.
func (e *ApplicationError) Is(target error) bool {
	if target == ErrAdGuardHome {
		return true
	}
	t, ok := target.(*ApplicationError)
	if !ok {
		return false
	}
	return t.StatusCode != 0 && e.StatusCode == t.StatusCode
}

// IsConnectionError checks if an error is a connection-class failure.
func IsConnectionError(err error) bool {
	var e *ConnectionError
	return errors.As(err, &e)
}

// IsApplicationError checks if an error is an application-class failure.
func IsApplicationError(err error) bool {
	var e *ApplicationError
	return errors.As(err, &e)
}

// IsNotFound checks if an error indicates a resource was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized checks if an error indicates authentication is required.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// StatusCode returns the HTTP status carried by the outermost
// ApplicationError in err's chain, or 0.
func StatusCode(err error) int {
	var e *ApplicationError
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// WrapError adds domain context to a failed operation and returns it as an
// ApplicationError chained to err. The status code of an application cause
// is carried over. Returns nil if err is nil.
func WrapError(message string, err error) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		StatusCode: StatusCode(err),
		Message:    message,
		Err:        err,
	}
}

// NewApplicationError creates an ApplicationError for a failed domain check
// on an otherwise successful response.
func NewApplicationError(message string, resp *Response) error {
	e := &ApplicationError{Message: message}
	if resp != nil {
		e.Body = map[string]any{"response": resp.Value()}
	}
	return e
}

func bodyMessage(body map[string]any) string {
	if body == nil {
		return ""
	}
	if m, ok := body["message"].(string); ok {
		return m
	}
	return ""
}
