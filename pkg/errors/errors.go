// Package errors provides structured error handling for sqlport.
//
// Every fatal error raised by a row source, a sink, the profile tree or the
// export pipeline is an *Error carrying an ErrorType, a message, an optional
// cause and key/value details (job, profile, query, row, column, target).
// The details are rendered into Error() so a failure can be located without
// re-running with verbose logging.
//
//	if err := conn.Ping(ctx); err != nil {
//	    return errors.Wrap(err, errors.ErrorTypeConnection, "failed to reach server").
//	        WithDetail("host", params.Host)
//	}
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// ErrorType classifies a failure; ExitCode maps it to a process status.
type ErrorType string

const (
	// bugs and unclassified failures
	ErrorTypeInternal ErrorType = "internal"
	// bad flags, settings or job files
	ErrorTypeConfig ErrorType = "config"
	// duplicate id, cycle, unknown id
	ErrorTypeProfile ErrorType = "profile"
	// unreachable backend or rejected credentials
	ErrorTypeConnection ErrorType = "connection"
	// rejected statement or a fault mid-stream
	ErrorTypeQuery ErrorType = "query"
	// a backend value with no faithful Value
	ErrorTypeConversion ErrorType = "conversion"
	ErrorTypeSink ErrorType = "sink"
	// operation not offered by a connector
	ErrorTypeCapability ErrorType = "capability"
	// interrupt or cancelled context
	ErrorTypeCancelled ErrorType = "cancelled"
)

// Profile tree sentinels. Errors returned by the profile package wrap one of
// these, so callers can use errors.Is.
var (
	ErrDuplicateID = stderrors.New("duplicate profile id")
	ErrCycle       = stderrors.New("profile parent chain forms a cycle")
	ErrUnknownID   = stderrors.New("unknown profile id")
)

// Error is the structured error returned across package boundaries.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame is one frame captured where the error was created.
type StackFrame struct {
	Function string
	File     string
	Line     int
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Type))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" [")
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Details[k])
		}
		b.WriteByte(']')
	}
	return b.String()
}

// Unwrap exposes Cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail records key=value on e and returns e for chaining.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Detail returns a detail value recorded on the outermost *Error in err's
// chain that carries key.
func Detail(err error, key string) (interface{}, bool) {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return nil, false
		}
		if v, ok := e.Details[key]; ok {
			return v, true
		}
		err = e.Cause
	}
	return nil, false
}

// New returns an error of errType.
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context. Returns nil for a
// nil error.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// keep the innermost stack
	var existingErr *Error
	if stderrors.As(err, &existingErr) {
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

// Annotate attaches details to err without changing its class. When err is
// an *Error a copy is annotated and details already present win. Any other
// error is wrapped with the type of the first *Error in its chain, or
// fallback when there is none.
func Annotate(err error, fallback ErrorType, details map[string]interface{}) error {
	if err == nil {
		return nil
	}
	e, ok := err.(*Error)
	if ok {
		clone := *e
		clone.Details = make(map[string]interface{}, len(e.Details)+len(details))
		for k, v := range e.Details {
			clone.Details[k] = v
		}
		e = &clone
	} else {
		t := fallback
		var inner *Error
		if stderrors.As(err, &inner) {
			t = inner.Type
		}
		e = Wrap(err, t, string(t)+" failure")
	}
	for k, v := range details {
		if _, exists := e.Details[k]; !exists {
			e.WithDetail(k, v)
		}
	}
	return e
}

// TypeOf returns the type of the outermost *Error in err's chain, or
// ErrorTypeInternal for foreign errors.
func TypeOf(err error) ErrorType {
	var e *Error
	if !stderrors.As(err, &e) {
		return ErrorTypeInternal
	}
	return e.Type
}

// IsType reports whether the outermost *Error in err's chain has errType.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Exit codes honoured by the CLI so scripts can tell failure classes apart.
const (
	ExitOK         = 0
	ExitInternal   = 1
	ExitProfile    = 2
	ExitConnection = 3
	ExitQuery      = 4
	ExitSink       = 5
	ExitConversion = 6
	ExitCancelled  = 130
)

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch TypeOf(err) {
	case ErrorTypeProfile:
		return ExitProfile
	case ErrorTypeConnection:
		return ExitConnection
	case ErrorTypeQuery:
		return ExitQuery
	case ErrorTypeSink:
		return ExitSink
	case ErrorTypeConversion:
		return ExitConversion
	case ErrorTypeCancelled:
		return ExitCancelled
	default:
		return ExitInternal
	}
}

// captureStack records up to 32 frames, skipping skip callers above
// captureStack itself.
func captureStack(skip int) []StackFrame {
	var pcs [32]uintptr
	n := runtime.Callers(skip+1, pcs[:])
	frames := make([]StackFrame, 0, n)
	it := runtime.CallersFrames(pcs[:n])
	for {
		f, more := it.Next()
		frames = append(frames, StackFrame{Function: f.Function, File: f.File, Line: f.Line})
		if !more {
			break
		}
	}
	return frames
}
