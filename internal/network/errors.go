package network

import (
	"errors"
	"fmt"
)

// Kind classifies a failed request.
type Kind string

const (
	// KindConfig is a client misconfiguration, such as a non-HTTPS URL.
	KindConfig Kind = "config"
	// KindTransport covers DNS, dial, reset and timeout failures.
	KindTransport Kind = "transport"
	// KindProtocol is a completed exchange with a non-2xx status.
	KindProtocol Kind = "protocol"
	// KindParse is a response body that could not be decoded.
	KindParse Kind = "parse"
)

// ErrInsecureURL is returned for any URL whose scheme is not https.
var ErrInsecureURL = errors.New("only https requests are permitted")

// Error is the failure returned by every Client call.
type Error struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Kind == KindProtocol {
		return fmt.Sprintf("%s error: HTTP %d", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ParseError wraps a decoding failure so callers can classify it like any other request error.
func ParseError(err error) error {
	return &Error{Kind: KindParse, Err: err}
}

// IsKind reports whether err is a network Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var nerr *Error
	return errors.As(err, &nerr) && nerr.Kind == kind
}

// StatusCode returns the HTTP status carried by a protocol error, or 0.
func StatusCode(err error) int {
	var nerr *Error
	if errors.As(err, &nerr) {
		return nerr.StatusCode
	}
	return 0
}
