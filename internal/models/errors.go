package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common application errors
var (
	ErrProductNotFound     = errors.New("product not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrEmptyQuery          = errors.New("empty query")
	ErrUpstreamUnavailable = errors.New("upstream catalog unavailable")
	ErrTokenUnavailable    = errors.New("catalog token unavailable")
	ErrCacheMiss           = errors.New("cache miss")
	ErrResourceNotFound    = errors.New("resource not found")
	ErrInternalServerError = errors.New("internal server error")
	ErrServiceUnavailable  = errors.New("service unavailable")
	ErrRateLimitExceeded   = errors.New("rate limit exceeded")
)

// UpstreamErrorKind classifies a failed call to the external catalog
type UpstreamErrorKind string

const (
	UpstreamTimeout      UpstreamErrorKind = "timeout"
	UpstreamHTTPError    UpstreamErrorKind = "http_error"
	UpstreamMalformed    UpstreamErrorKind = "malformed"
	UpstreamTransport    UpstreamErrorKind = "transport"
	UpstreamUnauthorized UpstreamErrorKind = "unauthorized"
)

// UpstreamError describes a failed catalog call. It matches ErrUpstreamUnavailable.
type UpstreamError struct {
	Kind   UpstreamErrorKind
	Status int
	Path   string
	Err    error
}

// Error implements the error interface
func (e *UpstreamError) Error() string {
	var b strings.Builder
	b.WriteString("catalog ")
	b.WriteString(string(e.Kind))
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if e.Path != "" {
		b.WriteString(" on ")
		b.WriteString(e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrUpstreamUnavailable
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

// NewUpstreamError creates a new UpstreamError
func NewUpstreamError(kind UpstreamErrorKind, status int, path string, err error) *UpstreamError {
	return &UpstreamError{Kind: kind, Status: status, Path: path, Err: err}
}

// UpstreamKind extracts the error kind from err, or "" when err is not an upstream failure.
func UpstreamKind(err error) UpstreamErrorKind {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.Kind
	}
	return ""
}

// APIError represents a structured API error response
type APIError struct {
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Status    int               `json:"status"`
	Detail    string            `json:"detail,omitempty"`
	Instance  string            `json:"instance,omitempty"`
	Errors    []ValidationError `json:"errors"`
	Timestamp string            `json:"timestamp"`
	RequestID string            `json:"request_id,omitempty"`
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Title, e.Detail)
}

// NewAPIError creates a new APIError
func NewAPIError(status int, title, detail, instance string) *APIError {
	return &APIError{
		Type:      fmt.Sprintf("https://api.partfox.local/problems/%s", kebabCase(title)),
		Title:     title,
		Status:    status,
		Detail:    detail,
		Instance:  instance,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// AddValidationError adds a validation error to the API error
func (e *APIError) AddValidationError(field, code, message string) {
	if e.Errors == nil {
		e.Errors = make([]ValidationError, 0)
	}
	e.Errors = append(e.Errors, ValidationError{
		Field:   field,
		Code:    code,
		Message: message,
	})
}

// kebabCase converts a title such as "Bad Gateway" or "NotFound" to "bad-gateway" / "not-found"
func kebabCase(s string) string {
	var b strings.Builder
	var prev rune
	for _, r := range s {
		switch {
		case r == ' ' || r == '_':
			if prev != '-' && prev != 0 {
				b.WriteByte('-')
			}
			r = '-'
		case r >= 'A' && r <= 'Z':
			if prev >= 'a' && prev <= 'z' {
				b.WriteByte('-')
			}
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune(r)
		}
		prev = r
	}
	return b.String()
}
