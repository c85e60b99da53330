package api

import (
	"errors"
	"fmt"
)

// NotFoundError represents a resource not found error with contextual information.
// It is returned when an import task id or remote project is unknown.
type NotFoundError struct {
	// ResourceType categorizes the type of resource that was not found
	// (e.g., "import task", "test plan")
	ResourceType string

	// ResourceName is the specific identifier of the resource that was not found
	ResourceName string

	// Message provides a custom error message if the default format is insufficient
	Message string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s not found", e.ResourceType, e.ResourceName)
}

// IsNotFound checks if an error is a NotFoundError using error unwrapping.
//
// Example:
//
//	status, err := orchestrator.Status(id)
//	if api.IsNotFound(err) {
//	    // unknown task id
//	}
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// NewNotFoundError creates a new NotFoundError with the specified resource type and name.
func NewNotFoundError(resourceType, resourceName string) *NotFoundError {
	return &NotFoundError{
		ResourceType: resourceType,
		ResourceName: resourceName,
	}
}

// NewNotFoundErrorWithMessage creates a new NotFoundError with a custom message.
func NewNotFoundErrorWithMessage(resourceType, resourceName, message string) *NotFoundError {
	return &NotFoundError{
		ResourceType: resourceType,
		ResourceName: resourceName,
		Message:      message,
	}
}

// NewTaskNotFoundError creates an import task not found error.
func NewTaskNotFoundError(id string) *NotFoundError {
	return NewNotFoundError("import task", id)
}

var (
	// ErrInvalidRequest indicates a malformed project, token or content tree.
	// Use InvalidRequestf to attach the offending field.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrRemoteUnavailable indicates the test-management service could not be
	// reached or refused the credentials.
	ErrRemoteUnavailable = errors.New("remote service unavailable")
)

// InvalidRequestf returns an error wrapping ErrInvalidRequest with a formatted detail.
func InvalidRequestf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// ScenarioFailure records a single test case that could not be written.
// Failures are counted in ImportResult.Errors and never abort an import.
type ScenarioFailure struct {
	Feature  string `json:"feature"`
	Scenario string `json:"scenario,omitempty"`
	Reason   string `json:"reason"`
}

// String renders the failure for task logs.
func (f ScenarioFailure) String() string {
	if f.Scenario == "" {
		return fmt.Sprintf("feature %q: %s", f.Feature, f.Reason)
	}
	return fmt.Sprintf("feature %q, scenario %q: %s", f.Feature, f.Scenario, f.Reason)
}
