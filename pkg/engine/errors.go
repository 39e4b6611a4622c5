package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorClass represents the classification of an error for reporting and exit handling.
type ErrorClass string

const (
	// ErrorClassConfig indicates a defect in a specification fragment.
	// Examples: malformed TOML, unsupported revision, inheritance cycles.
	ErrorClassConfig ErrorClass = "config"

	// ErrorClassResolution indicates that backend or profile selection failed.
	// Examples: unknown backend scheme, undeclared profile.
	ErrorClassResolution ErrorClass = "resolution"

	// ErrorClassValidation indicates that stored values do not satisfy the effective set.
	ErrorClassValidation ErrorClass = "validation"

	// ErrorClassBackend indicates a failure while talking to a value store.
	// These are usually transient and may succeed on retry.
	ErrorClassBackend ErrorClass = "backend"
)

// Error codes for programmatic handling.
const (
	ErrCodeParse                 = "PARSE_ERROR"
	ErrCodeUnsupportedRevision   = "UNSUPPORTED_REVISION"
	ErrCodeCircularInheritance   = "CIRCULAR_INHERITANCE"
	ErrCodeFragmentNotFound      = "FRAGMENT_NOT_FOUND"
	ErrCodeInvalidBackendURI     = "INVALID_BACKEND_URI"
	ErrCodeMissingRequiredSecret = "MISSING_REQUIRED_SECRET"
	ErrCodeWriteNotSupported     = "WRITE_NOT_SUPPORTED"
	ErrCodeProfileNotFound       = "PROFILE_NOT_FOUND"
	ErrCodeSecretNotFound        = "SECRET_NOT_FOUND"
	ErrCodeBackendFailed         = "BACKEND_FAILED"
	ErrCodeIdentifierCollision   = "IDENTIFIER_COLLISION"
)

// Sentinel errors usable with errors.Is. Matching compares the code only.
var (
	ErrParse                 = &EngineError{Code: ErrCodeParse}
	ErrUnsupportedRevision   = &EngineError{Code: ErrCodeUnsupportedRevision}
	ErrCircularInheritance   = &EngineError{Code: ErrCodeCircularInheritance}
	ErrFragmentNotFound      = &EngineError{Code: ErrCodeFragmentNotFound}
	ErrInvalidBackendURI     = &EngineError{Code: ErrCodeInvalidBackendURI}
	ErrMissingRequiredSecret = &EngineError{Code: ErrCodeMissingRequiredSecret}
	ErrWriteNotSupported     = &EngineError{Code: ErrCodeWriteNotSupported}
	ErrProfileNotFound       = &EngineError{Code: ErrCodeProfileNotFound}
	ErrSecretNotFound        = &EngineError{Code: ErrCodeSecretNotFound}
	ErrIdentifierCollision   = &EngineError{Code: ErrCodeIdentifierCollision}
)

// EngineError represents a classified error with context.
// nolint:revive // EngineError is intentionally named to distinguish from standard errors
type EngineError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is the error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Fragment is the identifier of the specification fragment involved, if any.
	Fragment string `json:"fragment,omitempty"`

	// Path is the dotted location inside the fragment (e.g. "profiles.production.API_KEY").
	Path string `json:"path,omitempty"`

	// Line and Column locate the problem in the fragment source when known.
	Line   int `json:"line,omitempty"`
	Column int `json:"column,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	var where []string
	if e.Fragment != "" {
		loc := e.Fragment
		if e.Line > 0 {
			loc = fmt.Sprintf("%s:%d:%d", loc, e.Line, e.Column)
		}
		where = append(where, "fragment="+loc)
	}
	if e.Path != "" {
		where = append(where, "path="+e.Path)
	}
	if len(where) > 0 {
		sb.WriteString(" (" + strings.Join(where, ", ") + ")")
	}
	if e.Err != nil {
		sb.WriteString(": " + e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying error for error chain inspection.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
// A target without a class matches on code alone.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	if t.Class != "" && t.Class != e.Class {
		return false
	}
	return e.Code == t.Code
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string, err error) *EngineError {
	return &EngineError{
		Class:   ErrorClassConfig,
		Message: message,
		Err:     err,
	}
}

// NewResolutionError creates a new resolution error.
func NewResolutionError(message string, err error) *EngineError {
	return &EngineError{
		Class:   ErrorClassResolution,
		Message: message,
		Err:     err,
	}
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, err error) *EngineError {
	return &EngineError{
		Class:   ErrorClassValidation,
		Message: message,
		Err:     err,
	}
}

// NewBackendError creates a new backend error.
func NewBackendError(message string, err error) *EngineError {
	return &EngineError{
		Class:   ErrorClassBackend,
		Message: message,
		Code:    ErrCodeBackendFailed,
		Err:     err,
	}
}

// WithCode adds an error code to an error.
func (e *EngineError) WithCode(code string) *EngineError {
	e.Code = code
	return e
}

// WithFragment adds the fragment identifier to an error.
func (e *EngineError) WithFragment(id string) *EngineError {
	e.Fragment = id
	return e
}

// WithPath adds a dotted location inside the fragment.
func (e *EngineError) WithPath(path string) *EngineError {
	e.Path = path
	return e
}

// WithLocation adds a line and column to an error.
func (e *EngineError) WithLocation(line, column int) *EngineError {
	e.Line = line
	e.Column = column
	return e
}

// WithDetail adds a detail field to the error context.
func (e *EngineError) WithDetail(key string, value interface{}) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// CodeOf returns the code of the first EngineError in the chain, or "".
func CodeOf(err error) string {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ClassOf returns the class of the first EngineError in the chain, or "".
func ClassOf(err error) ErrorClass {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class
	}
	return ""
}

// IsConfig returns true if the error is classified as a configuration error.
func IsConfig(err error) bool {
	return ClassOf(err) == ErrorClassConfig
}

// IsBackend returns true if the error came from a value store.
func IsBackend(err error) bool {
	return ClassOf(err) == ErrorClassBackend
}

// CyclePath returns the reported cycle of a CIRCULAR_INHERITANCE error.
func CyclePath(err error) []string {
	var e *EngineError
	if !errors.As(err, &e) || e.Code != ErrCodeCircularInheritance {
		return nil
	}
	cycle, _ := e.Details["cycle"].([]string)
	return cycle
}
