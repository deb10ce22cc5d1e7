package degiro

import (
	"fmt"
	"strings"
)

// AuthenticationError is returned when login is rejected or no usable
// session exists.
type AuthenticationError struct {
	Status     int
	StatusText string
	Message    string
}

func (e *AuthenticationError) Error() string {
	var b strings.Builder
	b.WriteString("degiro: authentication failed")
	if e.StatusText != "" {
		fmt.Fprintf(&b, ": %s (status %d)", e.StatusText, e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// HTTPError reports a non-success answer from the vendor. VendorStatus is the
// "status" field of the body when there is one.
type HTTPError struct {
	Op           string
	StatusCode   int
	VendorStatus int
	Message      string
	Body         []byte
}

func (e *HTTPError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unexpected response"
	}
	return fmt.Sprintf("degiro %s: http %d: %s", e.Op, e.StatusCode, msg)
}

// DataShapeError means the response decoded but lacked an expected field or
// carried it with the wrong JSON type.
type DataShapeError struct {
	Op      string
	What    string
	Payload []byte
}

func (e *DataShapeError) Error() string {
	return fmt.Sprintf("degiro %s: unexpected payload: %s", e.Op, e.What)
}

// ParseError is returned for order dates in neither "HH:MM" nor "DD/MM" form.
type ParseError struct {
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("degiro: cannot parse date %q: %s", e.Value, e.Reason)
	}
	return fmt.Sprintf("degiro: cannot parse date %q", e.Value)
}

// TimeoutError is returned by the quote poller once every attempt answered
// with a heartbeat only. Payload is the last raw poll body.
type TimeoutError struct {
	Attempts int
	Payload  []byte
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("degiro: no quote data after %d attempts", e.Attempts)
}
