// Package apierr defines the error taxonomy shared by the auth, client and
// admin layers. Every failure the core surfaces is one of these types so
// callers can branch with errors.As instead of string matching.
package apierr

import (
	"errors"
	"fmt"
)

// AuthError indicates a failed credential exchange or a 401 that survived a
// forced token refresh. Fatal to the current call, not to the process.
type AuthError struct {
	StatusCode int
	Detail     string
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("authentication failed (status %d): %s", e.StatusCode, e.Detail)
	}
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %v", e.Err)
	}
	return "authentication failed: " + e.Detail
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransportError indicates a network-level failure (timeout, DNS, refused
// connection, cancelled context) before any HTTP status was received.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError is a non-2xx HTTP response from the Admin API. Payload carries
// the remote body verbatim when one was present.
type RemoteError struct {
	StatusCode int
	Status     string
	Payload    []byte
}

func (e *RemoteError) Error() string {
	if len(e.Payload) > 0 {
		return fmt.Sprintf("remote error %d: %s", e.StatusCode, e.Payload)
	}
	return fmt.Sprintf("remote error: %s", e.Status)
}

// NotFoundError is a 404 on a by-ID fetch, kept distinct from RemoteError so
// callers can branch on "does not exist" vs "request malformed".
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	switch {
	case e.Entity == "":
		return "resource not found"
	case e.ID == "":
		return fmt.Sprintf("%s not found", e.Entity)
	default:
		return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
	}
}

// ValidationError reports malformed caller input detected before any network
// call is made.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string { return "invalid request: " + e.Detail }

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAuth reports whether err is (or wraps) an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
