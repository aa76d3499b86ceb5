package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies integration failures so callers can render different guidance per kind
type ErrorKind string

const (
	KindUnauthenticated   ErrorKind = "unauthenticated"
	KindForbidden         ErrorKind = "forbidden"
	KindNotFound          ErrorKind = "not_found"
	KindValidationFailed  ErrorKind = "validation_failed"
	KindRemoteUnavailable ErrorKind = "remote_unavailable"
	KindTimeout           ErrorKind = "timeout"
	KindNotConfigured     ErrorKind = "not_configured"
	KindUnsupported       ErrorKind = "unsupported"
	KindUnknown           ErrorKind = "unknown"
)

// Sentinels matched by errors.Is against any *IntegrationError of the same kind
var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrValidationFailed  = errors.New("validation failed")
	ErrRemoteUnavailable = errors.New("remote unavailable")
	ErrTimeout           = errors.New("timeout")
	ErrNotConfigured     = errors.New("not configured")
	ErrUnsupported       = errors.New("unsupported operation")
)

var sentinelByKind = map[ErrorKind]error{
	KindUnauthenticated:   ErrUnauthenticated,
	KindForbidden:         ErrForbidden,
	KindNotFound:          ErrNotFound,
	KindValidationFailed:  ErrValidationFailed,
	KindRemoteUnavailable: ErrRemoteUnavailable,
	KindTimeout:           ErrTimeout,
	KindNotConfigured:     ErrNotConfigured,
	KindUnsupported:       ErrUnsupported,
}

// IntegrationError is a typed failure raised by adapters and services
type IntegrationError struct {
	Kind    ErrorKind
	Op      string // e.g. "hubspot.fetchProperties"
	Message string
	Err     error
}

// NewError creates a typed error without an underlying cause
func NewError(kind ErrorKind, op, message string) *IntegrationError {
	return &IntegrationError{Kind: kind, Op: op, Message: message}
}

// WrapError creates a typed error around an underlying cause
func WrapError(kind ErrorKind, op string, err error) *IntegrationError {
	return &IntegrationError{Kind: kind, Op: op, Err: err}
}

func (e *IntegrationError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *IntegrationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind
func (e *IntegrationError) Is(target error) bool {
	sentinel, ok := sentinelByKind[e.Kind]
	return ok && sentinel == target
}

// KindOf extracts the kind of an error, falling back to KindUnknown
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ie *IntegrationError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	for kind, sentinel := range sentinelByKind {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindUnknown
}

// KindFromStatus maps a remote HTTP status to an error kind
func KindFromStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthenticated
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity, status == http.StatusConflict:
		return KindValidationFailed
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return KindTimeout
	case status == http.StatusTooManyRequests, status >= 500:
		return KindRemoteUnavailable
	default:
		return KindUnknown
	}
}

// Violation is a single rejected mapping entry
type Violation struct {
	FieldID  string `json:"field_id"`
	Property string `json:"property"`
	Reason   string `json:"reason"`
}

// ValidationError lists every entry rejected by a save; the save is never partially applied
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 1 {
		v := e.Violations[0]
		return fmt.Sprintf("invalid mapping for field %q -> %q: %s", v.FieldID, v.Property, v.Reason)
	}
	return fmt.Sprintf("%d invalid mapping entries (first: field %q -> %q: %s)",
		len(e.Violations), e.Violations[0].FieldID, e.Violations[0].Property, e.Violations[0].Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}
