// Package poolerrors provides structured errors for the lifepool engine with
// categorization, key-value context and stack capture.
//
// # Overview
//
// Nothing in the engine panics or aborts on a runtime path. Conditions a caller
// must react to (a resource that could not be loaded, a factory failure, a
// registry that has been closed) surface as *Error values; everything else is
// reported as a warning through the logger and treated as a no-op.
//
// # Basic Usage
//
//	tpl, err := resources.Load(ctx, "enemy")
//	if errors.Is(err, poolerrors.ErrNotFound) {
//	    // fall back to a placeholder template
//	}
//
//	if err := factory.Instantiate(ctx, name); err != nil {
//	    return poolerrors.Wrap(err, poolerrors.ErrorTypeFactory, "instantiate failed").
//	        WithDetail("name", name)
//	}
//
// # Matching
//
// Errors match the package sentinels by type through errors.Is, so
// errors.Is(err, ErrNotFound) holds for any not_found error regardless of
// message or wrapping depth.
package poolerrors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of an error.
type ErrorType string

const (
	// ErrorTypeInternal represents internal engine errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation represents invalid arguments such as a wrong category
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeNotFound represents a resource the provider could not load
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeFactory represents failures while fabricating a new item
	ErrorTypeFactory ErrorType = "factory"
	// ErrorTypeClosed represents use of a registry after Close
	ErrorTypeClosed ErrorType = "closed"
)

// Sentinels for errors.Is. They compare by type only.
var (
	ErrNotFound   = &Error{Type: ErrorTypeNotFound, Message: "not found"}
	ErrClosed     = &Error{Type: ErrorTypeClosed, Message: "registry closed"}
	ErrValidation = &Error{Type: ErrorTypeValidation, Message: "invalid argument"}
)

// Error represents a structured error with context.
//
// Fields:
//   - Type: Categorizes the error for handling strategies
//   - Message: Human-readable error description
//   - Cause: The underlying error that caused this error
//   - Details: Key-value pairs providing additional context
//   - Stack: Call stack at the point of error creation
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack.
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same type. It lets the
// package sentinels match any error of their category.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a key-value detail to the error. Calls can be chained.
//
// Example:
//
//	err := poolerrors.New(poolerrors.ErrorTypeNotFound, "no such resource").
//	    WithDetail("name", name).
//	    WithDetail("category", "resource")
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message, capturing the call
// stack at the point of creation.
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error, preserving it as the cause. If err is already
// an *Error its stack is kept. Returns nil if err is nil.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType checks whether the outermost *Error in err's chain has the given type.
//
// Example:
//
//	if poolerrors.IsType(err, poolerrors.ErrorTypeFactory) {
//	    // the pool was empty and fabrication failed
//	}
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
