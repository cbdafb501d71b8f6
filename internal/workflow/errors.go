package workflow

import (
	"errors"
	"fmt"
)

// ErrorType represents the kind of workflow error
type ErrorType string

const (
	ErrorTypeInvalidInput       ErrorType = "invalid_input"
	ErrorTypeMissingKey         ErrorType = "missing_key"
	ErrorTypeUpstreamTimeout    ErrorType = "upstream_timeout"
	ErrorTypeUpstreamConnection ErrorType = "upstream_connection"
	ErrorTypeUpstreamNotFound   ErrorType = "upstream_not_found"
	ErrorTypeDependency         ErrorType = "dependency"
	ErrorTypeCycle              ErrorType = "cycle"
	ErrorTypeExecution          ErrorType = "execution"
	ErrorTypeCancellation       ErrorType = "cancellation"
	ErrorTypeInvalidState       ErrorType = "invalid_state"
)

// ErrSkip is returned by a task or operation to mark its optional output as
// absent. It is not a failure: the step is recorded as skipped.
var ErrSkip = errors.New("workflow: optional data absent")

// Error represents a workflow-specific error
type Error struct {
	Type    ErrorType      `json:"type"`
	Step    string         `json:"step,omitempty"`
	Field   string         `json:"field,omitempty"`
	Message string         `json:"message"`
	Cause   error          `json:"-"`
	Context map[string]any `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "unknown workflow error"
	}
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field %s)", msg, e.Field)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Step != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Step, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Type, msg)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsUpstream reports whether the error came from an external collaborator.
func (e *Error) IsUpstream() bool {
	switch e.Type {
	case ErrorTypeUpstreamTimeout, ErrorTypeUpstreamConnection, ErrorTypeUpstreamNotFound:
		return true
	}
	return false
}

// NewInvalidInputError creates an error for a form field that failed validation
func NewInvalidInputError(step, field, message string) *Error {
	return &Error{
		Type:    ErrorTypeInvalidInput,
		Step:    step,
		Field:   field,
		Message: message,
	}
}

// NewMissingKeyError creates an error for a mandatory key absent from a mapping
func NewMissingKeyError(step, key string) *Error {
	return &Error{
		Type:    ErrorTypeMissingKey,
		Step:    step,
		Field:   key,
		Message: fmt.Sprintf("key %q not found", key),
		Context: map[string]any{"key": key},
	}
}

// NewUpstreamTimeoutError creates an error for a connector that timed out
func NewUpstreamTimeoutError(source string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeUpstreamTimeout,
		Step:    source,
		Message: "upstream request timed out",
		Cause:   cause,
	}
}

// NewUpstreamConnectionError creates an error for a connector that could not connect
func NewUpstreamConnectionError(source string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeUpstreamConnection,
		Step:    source,
		Message: "upstream connection failed",
		Cause:   cause,
	}
}

// NewUpstreamNotFoundError creates an error for a resource the upstream does not know
func NewUpstreamNotFoundError(source, resource string) *Error {
	return &Error{
		Type:    ErrorTypeUpstreamNotFound,
		Step:    source,
		Message: fmt.Sprintf("%s not found", resource),
		Context: map[string]any{"resource": resource},
	}
}

// NewDependencyError creates an error for a task whose input has no producer
func NewDependencyError(step, dependsOn, message string) *Error {
	return &Error{
		Type:    ErrorTypeDependency,
		Step:    step,
		Message: message,
		Context: map[string]any{"depends_on": dependsOn},
	}
}

// NewCycleError creates an error listing the tasks caught in a dependency cycle
func NewCycleError(keys []string) *Error {
	return &Error{
		Type:    ErrorTypeCycle,
		Message: fmt.Sprintf("dependency cycle between %v", keys),
		Context: map[string]any{"tasks": keys},
	}
}

// NewExecutionError creates an error for an operation that failed while running
func NewExecutionError(step string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeExecution,
		Step:    step,
		Message: "operation failed",
		Cause:   cause,
	}
}

// NewCancellationError creates an error for a step abandoned because the context ended
func NewCancellationError(step string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeCancellation,
		Step:    step,
		Message: "workflow was cancelled",
		Cause:   cause,
	}
}

// NewInvalidStateError creates an error for a process used outside its lifecycle
func NewInvalidStateError(message string) *Error {
	return &Error{
		Type:    ErrorTypeInvalidState,
		Message: message,
	}
}

// IsType reports whether err is a workflow error of the given type
func IsType(err error, t ErrorType) bool {
	return GetErrorType(err) == t
}

// GetErrorType returns the type of the error. Errors that are not workflow
// errors are reported as execution errors.
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ""
	}
	var wErr *Error
	if errors.As(err, &wErr) {
		return wErr.Type
	}
	return ErrorTypeExecution
}

// WrapError attaches a step name to err. Workflow errors keep their type;
// anything else becomes an execution error. Skip and nil pass through.
func WrapError(err error, step string) error {
	if err == nil || errors.Is(err, ErrSkip) {
		return err
	}

	var wErr *Error
	if errors.As(err, &wErr) {
		if wErr.Step == "" {
			wErr.Step = step
		}
		return err
	}
	return NewExecutionError(step, err)
}
