package errors

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorType classifies an error by the failure surface it belongs to
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeInvalidArgument
	ErrorTypeComponentNotFound
	ErrorTypeDownload
	ErrorTypeUnpack
	ErrorTypeExternalTool
	ErrorTypePermission
	ErrorTypeDependency
	ErrorTypeState
	ErrorTypeNetwork
	ErrorTypeTimeout
)

// String returns the string representation of the error type
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeInvalidArgument:
		return "INVALID_ARGUMENT"
	case ErrorTypeComponentNotFound:
		return "COMPONENT_NOT_FOUND"
	case ErrorTypeDownload:
		return "DOWNLOAD"
	case ErrorTypeUnpack:
		return "UNPACK"
	case ErrorTypeExternalTool:
		return "EXTERNAL_TOOL"
	case ErrorTypePermission:
		return "PERMISSION"
	case ErrorTypeDependency:
		return "DEPENDENCY"
	case ErrorTypeState:
		return "STATE"
	case ErrorTypeNetwork:
		return "NETWORK"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// SdkForgeError carries an error kind, a stable code and a structured
// detail map so the same error can be rendered for a console and logged
// machine-readable without duplicate formatting logic.
type SdkForgeError struct {
	Type        ErrorType         `json:"type"`
	Code        string            `json:"code"`
	Message     string            `json:"message"`
	Cause       error             `json:"cause,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
	Suggestions []string          `json:"suggestions,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Stack       []string          `json:"stack,omitempty"`
	Retryable   bool              `json:"retryable"`
}

// Error implements the error interface
func (e *SdkForgeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *SdkForgeError) Unwrap() error {
	return e.Cause
}

// Is matches on type and code so sentinel comparisons work with errors.Is
func (e *SdkForgeError) Is(target error) bool {
	if t, ok := target.(*SdkForgeError); ok {
		return e.Type == t.Type && (t.Code == "" || e.Code == t.Code)
	}
	return false
}

// WithDetail adds one structured detail entry to the error
func (e *SdkForgeError) WithDetail(key, value string) *SdkForgeError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds a suggestion to the error
func (e *SdkForgeError) WithSuggestion(suggestion string) *SdkForgeError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *SdkForgeError) WithSuggestions(suggestions []string) *SdkForgeError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// SetRetryable marks the error as retryable or not
func (e *SdkForgeError) SetRetryable(retryable bool) *SdkForgeError {
	e.Retryable = retryable
	return e
}

// FormatDetailed returns a detailed error message with details and suggestions
func (e *SdkForgeError) FormatDetailed() string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("❌ %s Error [%s]: %s\n", e.Type.String(), e.Code, e.Message))

	if len(e.Details) > 0 {
		builder.WriteString("\n📋 Details:\n")
		for key, value := range e.Details {
			builder.WriteString(fmt.Sprintf("   %s: %s\n", key, value))
		}
	}

	if e.Cause != nil {
		builder.WriteString(fmt.Sprintf("\n🔍 Underlying cause: %v\n", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		builder.WriteString("\n💡 Suggestions:\n")
		for _, suggestion := range e.Suggestions {
			builder.WriteString(fmt.Sprintf("   • %s\n", suggestion))
		}
	}

	if e.Retryable {
		builder.WriteString("\n🔄 This operation can be retried\n")
	}

	return builder.String()
}

// NewError creates a new SdkForgeError
func NewError(errorType ErrorType, code, message string) *SdkForgeError {
	return &SdkForgeError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Details:   make(map[string]string),
		Stack:     captureStack(),
	}
}

// WrapError wraps an existing error with SdkForgeError
func WrapError(err error, errorType ErrorType, code, message string) *SdkForgeError {
	return &SdkForgeError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Cause:     err,
		Timestamp: time.Now(),
		Details:   make(map[string]string),
		Stack:     captureStack(),
	}
}

// IsType reports whether err (or anything it wraps) is a SdkForgeError of
// the given type. Callers branch on this instead of string matching.
func IsType(err error, errorType ErrorType) bool {
	for err != nil {
		if fe, ok := err.(*SdkForgeError); ok && fe.Type == errorType {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// AsSdkForgeError extracts the first SdkForgeError in the chain, if any
func AsSdkForgeError(err error) (*SdkForgeError, bool) {
	for err != nil {
		if fe, ok := err.(*SdkForgeError); ok {
			return fe, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// captureStack captures the current stack trace
func captureStack() []string {
	var stack []string

	// Skip the first few frames (this function and error creation)
	for i := 2; i < 10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		// Only include frames from our project
		if strings.Contains(file, "sdkforge-cli") {
			stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, fn.Name()))
		}
	}

	return stack
}

// Common error constructors

// NewInvalidArgumentError creates an invalid-argument error. Raised for bad
// request shapes, illegal matrix combinations and cross-field conflicts,
// always before any mutation.
func NewInvalidArgumentError(code, message string) *SdkForgeError {
	return NewError(ErrorTypeInvalidArgument, code, message).
		WithSuggestion("Check the request parameters and try again")
}

// NewComponentNotFoundError creates a component-not-found error, used both
// for lookup misses and for post-install verification failures.
func NewComponentNotFoundError(code, message string) *SdkForgeError {
	return NewError(ErrorTypeComponentNotFound, code, message).
		WithSuggestions([]string{
			"Verify the component identifier",
			"Run 'sdkforge list' to see what is installed",
		})
}

// NewDownloadError creates a download error
func NewDownloadError(code, message string) *SdkForgeError {
	return NewError(ErrorTypeDownload, code, message).
		SetRetryable(true).
		WithSuggestions([]string{
			"Check your internet connection",
			"Verify the download mirror is reachable",
			"Try again in a few moments",
		})
}

// NewUnpackError creates an archive-extraction error
func NewUnpackError(code, message string) *SdkForgeError {
	return NewError(ErrorTypeUnpack, code, message).
		WithSuggestions([]string{
			"The downloaded archive may be corrupted, run 'sdkforge clean' and retry",
			"Verify disk space availability",
		})
}

// NewExternalToolError creates an error for a wrapped tool exiting non-zero
func NewExternalToolError(code, message string) *SdkForgeError {
	return NewError(ErrorTypeExternalTool, code, message).
		WithSuggestions([]string{
			"Re-run with --verbose to see the tool output",
			"Run 'sdkforge doctor' to check the SDK tools",
		})
}

// NewPermissionError creates a permission error
func NewPermissionError(code, message string) *SdkForgeError {
	return NewError(ErrorTypePermission, code, message).
		WithSuggestions([]string{
			"Check directory permissions on the SDK root",
			"Run with appropriate privileges",
			"Choose a writable root with --sdk-root",
		})
}

// NewDependencyError creates a dependency error
func NewDependencyError(code, message string) *SdkForgeError {
	return NewError(ErrorTypeDependency, code, message).
		WithSuggestions([]string{
			"Run 'sdkforge doctor' to check required tools",
			"Install the missing dependency",
		})
}

// NewStateError creates an error for on-disk state that contradicts
// expectations (present but structurally broken, vanished mid-run)
func NewStateError(code, message string) *SdkForgeError {
	return NewError(ErrorTypeState, code, message).
		WithSuggestions([]string{
			"Remove the offending directory and re-run 'sdkforge ensure'",
		})
}

// NewNetworkError creates a network error
func NewNetworkError(code, message string) *SdkForgeError {
	return NewError(ErrorTypeNetwork, code, message).
		SetRetryable(true).
		WithSuggestions([]string{
			"Check your internet connection",
			"Check firewall and proxy configuration",
		})
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(code, message string) *SdkForgeError {
	return NewError(ErrorTypeTimeout, code, message).
		SetRetryable(true).
		WithSuggestions([]string{
			"Increase the operation timeout in the configuration",
			"Try the operation again",
		})
}
