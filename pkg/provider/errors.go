package provider

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorizes failures raised while talking to the provider or
// while checking where a short link lands.
type ErrorKind string

const (
	KindCreation            ErrorKind = "creation"
	KindUpdate              ErrorKind = "update"
	KindNetwork             ErrorKind = "network"
	KindRequest             ErrorKind = "request"
	KindMalformedResponse   ErrorKind = "malformed_response"
	KindPreviewInterception ErrorKind = "preview_interception"
	KindUnwantedDomain      ErrorKind = "unwanted_domain"
)

// AliasUnavailable is the provider's error text for an alias collision.
const AliasUnavailable = "Alias is not available."

// Error is a structured provider error. Fields holds the provider-reported
// validation messages and Status the HTTP status when there was a response.
type Error struct {
	Kind    ErrorKind
	Message string
	Status  int
	Fields  []string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if len(e.Fields) > 0 {
		msg += ": " + strings.Join(e.Fields, "; ")
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(" (%v)", e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable returns true if the error is likely to succeed on retry
func (e *Error) IsRetryable() bool {
	switch e.Kind {
	case KindUpdate, KindNetwork:
		return true
	default:
		return false
	}
}

// UserMessage returns a user-friendly error message
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindCreation:
		return fmt.Sprintf("Short link creation rejected (%d): %s", e.Status, strings.Join(e.Fields, ", "))
	case KindUpdate:
		return fmt.Sprintf("Short link update rejected (%d): %s", e.Status, strings.Join(e.Fields, ", "))
	case KindNetwork:
		return "Connection error. Request timed out!"
	case KindRequest:
		return fmt.Sprintf("Request failed: %s", e.Message)
	case KindMalformedResponse:
		return "Provider response is missing data. Check the provider API docs."
	case KindPreviewInterception, KindUnwantedDomain:
		return e.Message
	default:
		return e.Message
	}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// PreviewInterception reports that the provider served its own interstitial
// page for shortURL instead of forwarding to expectedDomain.
func PreviewInterception(shortURL, expectedDomain string) *Error {
	return &Error{
		Kind:    KindPreviewInterception,
		Message: fmt.Sprintf("Preview page intercepted %s, expected domain: %s", shortURL, expectedDomain),
	}
}

// UnwantedDomain reports a redirect that landed on the wrong domain.
func UnwantedDomain(expected, got string) *Error {
	return &Error{
		Kind:    KindUnwantedDomain,
		Message: fmt.Sprintf("Redirect mismatch: Expected domain: %s, got %s", expected, got),
	}
}

func newCreationError(fields []string, status int) *Error {
	return &Error{
		Kind:    KindCreation,
		Message: "provider rejected link creation",
		Status:  status,
		Fields:  fields,
	}
}

func newUpdateError(fields []string, status int) *Error {
	return &Error{
		Kind:    KindUpdate,
		Message: "provider rejected link update",
		Status:  status,
		Fields:  fields,
	}
}

func newNetworkError(cause error) *Error {
	return &Error{
		Kind:    KindNetwork,
		Message: "request timed out",
		Cause:   cause,
	}
}

func newRequestError(target string, cause error) *Error {
	return &Error{
		Kind:    KindRequest,
		Message: fmt.Sprintf("invalid or inaccessible resource %s", target),
		Cause:   cause,
	}
}

func newMalformedError(message string, cause error) *Error {
	return &Error{
		Kind:    KindMalformedResponse,
		Message: message,
		Cause:   cause,
	}
}
