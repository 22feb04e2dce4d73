// Package apperrors provides standardized error handling for the plugin
// host, following the error taxonomy plugins and core components are
// expected to raise during registration, initialization, and capability
// execution.
//
// Error Structure:
//   - Code: machine-readable error identifier (e.g. "DEPENDENCY_ERROR")
//   - Message: human-readable error message
//   - Details: optional additional context (wrapped errors)
//   - StatusCode: HTTP status code, used only when an error crosses the
//     HTTP frontend's boundary
//
// Usage patterns:
//
//	return apperrors.DependencyError(pluginID, missing)
//	return apperrors.Wrap(apperrors.ErrCodeCapability, "tool handler failed", err)
//	c.JSON(err.StatusCode, err.ToResponse())
package apperrors

import (
	"fmt"
	"net/http"
)

// AppError is the standard error envelope for the plugin host.
type AppError struct {
	// Code is a machine-readable error identifier (UPPER_SNAKE_CASE).
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Details carries wrapped-error text or other debugging context.
	Details string `json:"details,omitempty"`

	// StatusCode is the HTTP status code used when this error is returned
	// from a plugin-declared API route. Not set for bus/job/capability
	// errors that never cross the HTTP boundary.
	StatusCode int `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorResponse is the JSON shape returned by the HTTP frontend.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Error codes, matching spec.md §7's taxonomy.
const (
	ErrCodeRegistration    = "REGISTRATION_ERROR"
	ErrCodeDependency      = "DEPENDENCY_ERROR"
	ErrCodeInitialization  = "INITIALIZATION_ERROR"
	ErrCodeCapability      = "CAPABILITY_ERROR"
	ErrCodeContext         = "CONTEXT_ERROR"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusForCode(code)}
}

// NewWithDetails creates a new AppError carrying additional debug context.
func NewWithDetails(code, message, details string) *AppError {
	return &AppError{Code: code, Message: message, Details: details, StatusCode: statusForCode(code)}
}

// Wrap attaches an underlying error's text as Details.
func Wrap(code, message string, err error) *AppError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return NewWithDetails(code, message, details)
}

func statusForCode(code string) int {
	switch code {
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeContext, ErrCodeCapability:
		return http.StatusConflict
	case ErrCodeRegistration, ErrCodeDependency, ErrCodeInitialization, ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ToResponse converts an AppError to its wire representation.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: e.Code, Message: e.Message, Code: e.Code, Details: e.Details}
}

// RegistrationError reports that a plugin's Register() call failed or
// produced an invalid manifest.
func RegistrationError(pluginID string, err error) *AppError {
	return Wrap(ErrCodeRegistration, fmt.Sprintf("plugin %q failed to register", pluginID), err)
}

// DependencyError reports that a plugin declares a dependency the manager
// could not resolve, either because it is missing or because resolving it
// would form a cycle.
func DependencyError(pluginID string, missing []string) *AppError {
	return NewWithDetails(ErrCodeDependency,
		fmt.Sprintf("plugin %q has unresolved dependencies", pluginID),
		fmt.Sprintf("missing: %v", missing))
}

// InitializationError reports that a plugin's Initialize() hook returned an
// error or panicked during the fixed-point initialization pass.
func InitializationError(pluginID string, err error) *AppError {
	return Wrap(ErrCodeInitialization, fmt.Sprintf("plugin %q failed to initialize", pluginID), err)
}

// CapabilityError reports that invoking a tool, command, or route handler
// failed.
func CapabilityError(kind, name string, err error) *AppError {
	return Wrap(ErrCodeCapability, fmt.Sprintf("%s %q handler failed", kind, name), err)
}

// ContextError reports that a plugin called getContext() (or an equivalent
// service/interface-tier accessor) before register() completed, or from a
// tier that does not expose it.
func ContextError(pluginID, accessor string) *AppError {
	return New(ErrCodeContext, fmt.Sprintf("plugin %q called %s before registration completed", pluginID, accessor))
}

// ValidationError reports that caller-supplied input failed schema or
// struct validation.
func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// NotFound reports a missing resource (tool, template, job, plugin).
func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

// BadRequest reports a malformed request at the HTTP frontend.
func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message)
}

// Internal reports an unclassified internal error.
func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}
