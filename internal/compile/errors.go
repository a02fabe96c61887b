package compile

import (
	"errors"
	"fmt"

	"github.com/lex00/wetwire-serverless-go/internal/service"
)

// ConfigError reports a declaration the user must fix. It aborts only the
// event it names; the rest of the pass continues.
type ConfigError struct {
	Function   string
	EventIndex int
	Kind       service.Kind
	// Field is the offending field, e.g. "basicAuthArn".
	Field string
	// Reason is set when the field is present but unusable. An empty
	// Reason means the field is missing.
	Reason string
}

func (e *ConfigError) Error() string {
	loc := fmt.Sprintf("functions.%s.events[%d].%s", e.Function, e.EventIndex, e.Kind)
	if e.Reason == "" {
		return fmt.Sprintf("%s: missing required field %q", loc, e.Field)
	}
	return fmt.Sprintf("%s.%s: %s", loc, e.Field, e.Reason)
}

func missing(fn string, index int, kind service.Kind, field string) *ConfigError {
	return &ConfigError{Function: fn, EventIndex: index, Kind: kind, Field: field}
}

func invalid(fn string, index int, kind service.Kind, field, format string, a ...any) *ConfigError {
	return &ConfigError{Function: fn, EventIndex: index, Kind: kind, Field: field, Reason: fmt.Sprintf(format, a...)}
}

// InvariantError indicates a caller bug, such as registering a logical ID
// twice. It stops the compilation pass.
type InvariantError struct {
	LogicalID string
	Err       error
}

func (e *InvariantError) Error() string {
	if e.LogicalID == "" {
		return fmt.Sprintf("invariant violation: %v", e.Err)
	}
	return fmt.Sprintf("invariant violation on %s: %v", e.LogicalID, e.Err)
}

func (e *InvariantError) Unwrap() error { return e.Err }

// ErrDuplicateLogicalID is wrapped by the InvariantError returned when a
// logical ID is registered twice.
var ErrDuplicateLogicalID = errors.New("logical ID already exists")

// IsInvariant reports whether err (or any error in its chain) is an
// invariant violation.
func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

func invariantf(id, format string, a ...any) error {
	return &InvariantError{LogicalID: id, Err: fmt.Errorf(format, a...)}
}
