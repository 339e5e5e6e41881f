package confluence

import (
	"fmt"
	"net/http"
)

const (
	authenticationErrorTemplateConstant = "confluence rejected the provided credentials (status %d)"
	spaceNotFoundErrorTemplateConstant  = "space %q was not found at %s"
	transientErrorTemplateConstant      = "%s failed after %d attempts: %v"
	titleConflictErrorTemplateConstant  = "page %q already exists under the requested parent (status %d)"
	statusErrorTemplateConstant         = "%s returned unexpected status %d"
)

// AuthenticationError reports rejected credentials; it aborts the whole run.
type AuthenticationError struct {
	StatusCode int
}

// Error describes the authentication failure.
func (authenticationError AuthenticationError) Error() string {
	return fmt.Sprintf(authenticationErrorTemplateConstant, authenticationError.StatusCode)
}

// SpaceNotFoundError reports a space key unknown to the instance; it aborts the whole run.
type SpaceNotFoundError struct {
	SpaceKey string
	BaseURL  string
}

// Error describes the missing space.
func (spaceNotFoundError SpaceNotFoundError) Error() string {
	return fmt.Sprintf(spaceNotFoundErrorTemplateConstant, spaceNotFoundError.SpaceKey, spaceNotFoundError.BaseURL)
}

// TransientError reports a request that kept failing with retryable conditions until the retry budget ran out.
type TransientError struct {
	Operation  string
	Attempts   int
	StatusCode int
	Cause      error
}

// Error describes the exhausted retry budget.
func (transientError TransientError) Error() string {
	return fmt.Sprintf(transientErrorTemplateConstant, transientError.Operation, transientError.Attempts, transientError.describeCondition())
}

// Unwrap exposes the underlying transport error when one exists.
func (transientError TransientError) Unwrap() error {
	return transientError.Cause
}

func (transientError TransientError) describeCondition() any {
	if transientError.Cause != nil {
		return transientError.Cause
	}
	return fmt.Sprintf("status %d", transientError.StatusCode)
}

// TitleConflictError reports a create call rejected because the title already exists.
type TitleConflictError struct {
	Title      string
	StatusCode int
}

// Error describes the title conflict.
func (titleConflictError TitleConflictError) Error() string {
	return fmt.Sprintf(titleConflictErrorTemplateConstant, titleConflictError.Title, titleConflictError.StatusCode)
}

// StatusError reports any other unexpected HTTP status.
type StatusError struct {
	Operation  string
	StatusCode int
}

// Error describes the unexpected status.
func (statusError StatusError) Error() string {
	return fmt.Sprintf(statusErrorTemplateConstant, statusError.Operation, statusError.StatusCode)
}

func isAuthenticationStatus(statusCode int) bool {
	return statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden
}
