package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Connection errors (1xxx)
	ErrCodeConnectionFailed     ErrorCode = "SNBK1001"
	ErrCodeConnectionTimeout    ErrorCode = "SNBK1002"
	ErrCodeAuthenticationFailed ErrorCode = "SNBK1003"
	ErrCodeNetworkUnavailable   ErrorCode = "SNBK1004"

	// Configuration errors (2xxx)
	ErrCodeConfigNotFound ErrorCode = "SNBK2001"
	ErrCodeConfigInvalid  ErrorCode = "SNBK2002"
	ErrCodeRequiredField  ErrorCode = "SNBK2003"

	// Notebook errors (3xxx)
	ErrCodeUnresolvedPlaceholder ErrorCode = "SNBK3001"
	ErrCodeDuplicateBinding      ErrorCode = "SNBK3002"
	ErrCodeNotebookInvalid       ErrorCode = "SNBK3003"
	ErrCodeNotebookNotFound      ErrorCode = "SNBK3004"
	ErrCodeValueNotScalar        ErrorCode = "SNBK3005"

	// Engine errors (4xxx)
	ErrCodeEngine           ErrorCode = "SNBK4001"
	ErrCodeEnginePermission ErrorCode = "SNBK4002"
	ErrCodeEngineTimeout    ErrorCode = "SNBK4003"
	ErrCodeEngineSyntax     ErrorCode = "SNBK4004"

	// File system errors (5xxx)
	ErrCodeFileNotFound   ErrorCode = "SNBK5001"
	ErrCodeFilePermission ErrorCode = "SNBK5002"

	// Input errors (6xxx)
	ErrCodeInvalidInput ErrorCode = "SNBK6001"
	ErrCodeUserInput    ErrorCode = "SNBK6002"

	// Security errors (7xxx)
	ErrCodeEncryptionFailed   ErrorCode = "SNBK7001"
	ErrCodeCredentialNotFound ErrorCode = "SNBK7002"

	// Notebook source errors (8xxx)
	ErrCodeSourceSyncFailed ErrorCode = "SNBK8001"
	ErrCodeSourceInvalid    ErrorCode = "SNBK8002"

	// System errors (9xxx)
	ErrCodeInternal           ErrorCode = "SNBK9001"
	ErrCodeTimeout            ErrorCode = "SNBK9002"
	ErrCodeResourceExhausted  ErrorCode = "SNBK9003"
	ErrCodeServiceUnavailable ErrorCode = "SNBK9004"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL" // System failure, requires immediate attention
	SeverityError    ErrorSeverity = "ERROR"    // Operation failed, but system continues
	SeverityWarning  ErrorSeverity = "WARNING"  // Operation succeeded with issues
	SeverityInfo     ErrorSeverity = "INFO"     // Informational, not an error
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
	Recoverable bool
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		Severity:    SeverityError,
		Context:     make(map[string]interface{}),
		Stack:       captureStack(),
		Timestamp:   time.Now(),
		Recoverable: false,
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	// If wrapping another AppError, inherit some properties
	if ae, ok := err.(*AppError); ok {
		for k, v := range ae.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// AsRecoverable marks the error as recoverable
func (e *AppError) AsRecoverable() *AppError {
	e.Recoverable = true
	return e
}

// captureStack captures the current stack trace
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			b.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return b.String()
}

// Common error constructors

// UnresolvedPlaceholderError reports a template placeholder referencing a
// name that is not bound in the environment.
func UnresolvedPlaceholderError(name string) *AppError {
	return New(ErrCodeUnresolvedPlaceholder, fmt.Sprintf("placeholder {{%s}} references an unbound name", name)).
		WithContext("placeholder", name).
		WithSuggestions(
			"Bind the name with an earlier cell or a --var flag",
			"Check the placeholder for typos",
			"Cells may only reference names bound by strictly earlier cells",
		)
}

// DuplicateBindingError reports an attempt to rebind a name when rebinding
// is not allowed.
func DuplicateBindingError(name string) *AppError {
	return New(ErrCodeDuplicateBinding, fmt.Sprintf("name %q is already bound", name)).
		WithContext("name", name).
		WithSuggestions(
			"Rename the cell to a unique name",
			"Run with --allow-rebind to permit last-write-wins rebinding",
		)
}

// EngineError wraps a failure reported by the external query engine. The
// engine's own message travels verbatim in the cause.
func EngineError(message, query string, cause error) *AppError {
	err := Wrap(cause, ErrCodeEngine, message).
		WithContext("query", truncateString(query, 200))

	if cause != nil {
		causeStr := strings.ToLower(cause.Error())
		switch {
		case strings.Contains(causeStr, "permission") ||
			strings.Contains(causeStr, "not authorized") ||
			strings.Contains(causeStr, "access denied"):
			err.Code = ErrCodeEnginePermission
			_ = err.WithSuggestions(
				"Check user permissions in Snowflake",
				"Verify the role has required privileges",
			)
		case strings.Contains(causeStr, "timeout") || strings.Contains(causeStr, "timed out"):
			err.Code = ErrCodeEngineTimeout
			_ = err.WithSuggestions(
				"Increase the statement timeout on the warehouse",
				"Check Snowflake warehouse size",
			)
		case strings.Contains(causeStr, "syntax error"):
			err.Code = ErrCodeEngineSyntax
			_ = err.WithSuggestions(
				"Review the resolved SQL with 'snowbook render'",
				"Check substituted values for stray quotes",
			)
		}
	}

	return err
}

// ConnectionError creates a connection-related error
func ConnectionError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeConnectionFailed, message).
		WithSeverity(SeverityError).
		WithSuggestions(
			"Check your network connection",
			"Verify the Snowflake account endpoint is accessible",
		)
}

// ConfigError creates a configuration-related error
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSuggestions(
			fmt.Sprintf("Check the '%s' configuration value", field),
			"Run 'snowbook setup' to reconfigure",
		)
}

// NotebookError creates a notebook validation error
func NotebookError(message string, notebook string) *AppError {
	return New(ErrCodeNotebookInvalid, message).
		WithContext("notebook", notebook)
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Recoverable
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// truncateString truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
