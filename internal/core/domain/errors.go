package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingCredential    = errors.New("no token provided")
	ErrMalformedCredential  = errors.New("invalid token")
	ErrExpiredCredential    = errors.New("token expired")
	ErrIncompleteCredential = errors.New("invalid token structure")
	ErrRevokedCredential    = errors.New("token revoked")

	ErrUnknownRole       = errors.New("invalid role")
	ErrUnknownManager    = errors.New("invalid manager account")
	ErrUnknownBabysitter = errors.New("invalid babysitter account")

	ErrAuthenticationRequired = errors.New("authentication required")

	ErrChildNotFound        = errors.New("child not found")
	ErrReportNotFound       = errors.New("incident report not found")
	ErrNotificationNotFound = errors.New("notification not found")

	ErrDatastoreUnavailable       = errors.New("datastore unavailable")
	ErrNotificationDeliveryFailed = errors.New("notification delivery failed")
)

// AccessDeniedError is returned by the authorization gate when the principal's role is not allowed.
type AccessDeniedError struct {
	Required []Role
	Actual   Role
}

func (e *AccessDeniedError) Error() string {
	required := make([]string, len(e.Required))
	for i, r := range e.Required {
		required[i] = string(r)
	}
	return fmt.Sprintf("access denied: required one of [%s], got %q", strings.Join(required, ", "), e.Actual)
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError holds every failing field of a request, not just the first.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// OrNil returns nil when no field failed, so callers can return it directly.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// IsAuthenticationError reports whether err should end the request with 401.
func IsAuthenticationError(err error) bool {
	for _, target := range []error{
		ErrMissingCredential,
		ErrMalformedCredential,
		ErrExpiredCredential,
		ErrIncompleteCredential,
		ErrRevokedCredential,
		ErrUnknownRole,
		ErrUnknownManager,
		ErrUnknownBabysitter,
		ErrAuthenticationRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrChildNotFound) ||
		errors.Is(err, ErrReportNotFound) ||
		errors.Is(err, ErrNotificationNotFound)
}
