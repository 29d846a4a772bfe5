package config

import (
	"errors"
	"fmt"
)

// ParseError reports a malformed value for one flag or config key.
type ParseError struct {
	Field string // Flag or config key, e.g. "--server-addr"
	Value string
	Cause error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

func newParseError(field, value string, cause error) error {
	return &ParseError{Field: field, Value: value, Cause: cause}
}

var (
	ErrMissingLocal    = errors.New("missing local address")
	ErrNoServers       = errors.New("missing proxy servers")
	ErrMissingForward  = errors.New("missing forward address")
	ErrIncompleteCreds = errors.New("server needs both password and method")
	ErrOrphanPlugin    = errors.New("plugin without server address")
)

// ValidationError is a launch-readiness violation. Kind is one of the Err*
// sentinels above; Hint names the flags or keys that would fix it.
type ValidationError struct {
	Kind  error
	Field string
	Hint  string
}

func (e *ValidationError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("%v (%s)", e.Kind, e.Field)
	}
	return fmt.Sprintf("%v, %s", e.Kind, e.Hint)
}

func (e *ValidationError) Unwrap() error { return e.Kind }
