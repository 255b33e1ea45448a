// Package exception provides the error types shared by every sweep component.
// Each failure is reported as a BatchError that wraps one of the sentinel errors
// below, so callers can branch with errors.Is regardless of the module that raised it.
package exception

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
)

const (
	// ReservedNameException is raised when a configuration table would shadow the session/job storage.
	ReservedNameException = "ReservedNameException"
	// UnknownTableException is raised when a configuration table does not exist.
	UnknownTableException = "UnknownTableException"
	// UnknownJobException is raised when no job record matches a scheduler identifier.
	UnknownJobException = "UnknownJobException"
	// UnknownSessionException is raised when a session identifier does not exist.
	UnknownSessionException = "UnknownSessionException"
	// MalformedSpecException is raised when generation or import input has the wrong shape.
	MalformedSpecException = "MalformedSpecException"
	// FilesystemException is raised when an output location cannot be prepared.
	FilesystemException = "FilesystemException"
	// LaunchException is raised when a single job launch fails.
	LaunchException = "LaunchException"
	// InvalidFilterException is raised when a row filter cannot be parsed or references unknown columns.
	InvalidFilterException = "InvalidFilterException"
	// DuplicateJobException is raised when a (session, job) pair is recorded twice.
	DuplicateJobException = "DuplicateJobException"
	// InvalidStatusException is raised when a job status is empty or otherwise unusable.
	InvalidStatusException = "InvalidStatusException"
)

var (
	ErrReservedName   = errors.New(ReservedNameException)
	ErrUnknownTable   = errors.New(UnknownTableException)
	ErrUnknownJob     = errors.New(UnknownJobException)
	ErrUnknownSession = errors.New(UnknownSessionException)
	ErrMalformedSpec  = errors.New(MalformedSpecException)
	ErrFilesystem     = errors.New(FilesystemException)
	ErrLaunch         = errors.New(LaunchException)
	ErrInvalidFilter  = errors.New(InvalidFilterException)
	ErrDuplicateJob   = errors.New(DuplicateJobException)
	ErrInvalidStatus  = errors.New(InvalidStatusException)
)

// errorRegistry maps exception names to their sentinel errors.
var errorRegistry = make(map[string]error)

// registryMutex protects access to errorRegistry.
var registryMutex sync.RWMutex

// RegisterErrorType registers a sentinel error under a name.
// It panics if name is empty or prototype is nil.
func RegisterErrorType(name string, prototype error) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if name == "" {
		panic("Error type name cannot be empty")
	}
	if prototype == nil {
		panic(fmt.Sprintf("Cannot register nil prototype for name: %s", name))
	}
	errorRegistry[name] = prototype
}

func init() {
	for _, sentinel := range []error{
		ErrReservedName, ErrUnknownTable, ErrUnknownJob, ErrUnknownSession,
		ErrMalformedSpec, ErrFilesystem, ErrLaunch, ErrInvalidFilter,
		ErrDuplicateJob, ErrInvalidStatus,
	} {
		RegisterErrorType(sentinel.Error(), sentinel)
	}
}

// Kind returns the name of the first registered sentinel found in err's chain,
// or an empty string when err does not wrap any of them.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	names := make([]string, 0, len(errorRegistry))
	for name := range errorRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if errors.Is(err, errorRegistry[name]) {
			return name
		}
	}
	return ""
}

// BatchError is the error type returned by sweep components.
type BatchError struct {
	// Module indicates where the error occurred (e.g., "store", "generator", "launcher").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// StackTrace is the stack trace at the time of the error (for debugging).
	StackTrace string
}

// NewBatchError creates a new BatchError instance.
func NewBatchError(module, message string, originalErr error) *BatchError {
	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		StackTrace:  captureStack(),
	}
}

// NewBatchErrorf creates a new BatchError using a format string.
// If the last argument is an error it is wrapped instead of being formatted.
//
// Example:
// NewBatchErrorf("store", "failed to drop table %s", name, err)
func NewBatchErrorf(module, format string, a ...interface{}) *BatchError {
	var originalErr error
	args := a
	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}
	return &BatchError{
		Module:      module,
		Message:     fmt.Sprintf(format, args...),
		OriginalErr: originalErr,
		StackTrace:  captureStack(),
	}
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// wrap joins a sentinel with an optional cause.
func wrap(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return errors.Join(sentinel, cause)
}

// NewReservedNameError reports an attempt to create a table under a reserved name.
func NewReservedNameError(module, name string) *BatchError {
	return NewBatchError(module, fmt.Sprintf("table name '%s' is reserved", name), ErrReservedName)
}

// NewUnknownTableError reports a missing configuration table.
func NewUnknownTableError(module, name string) *BatchError {
	return NewBatchError(module, fmt.Sprintf("table '%s' does not exist", name), ErrUnknownTable)
}

// NewUnknownJobError reports that no job record matches jobID.
func NewUnknownJobError(module, jobID string) *BatchError {
	return NewBatchError(module, fmt.Sprintf("job '%s' does not exist", jobID), ErrUnknownJob)
}

// NewUnknownSessionError reports a missing session.
func NewUnknownSessionError(module string, sessionID int64) *BatchError {
	return NewBatchError(module, fmt.Sprintf("session %d does not exist", sessionID), ErrUnknownSession)
}

// NewMalformedSpecError reports a generation or import input with the wrong shape.
func NewMalformedSpecError(module, message string, cause error) *BatchError {
	return NewBatchError(module, message, wrap(ErrMalformedSpec, cause))
}

// NewFilesystemError reports a failure to prepare an output location.
func NewFilesystemError(module, path string, cause error) *BatchError {
	return NewBatchError(module, fmt.Sprintf("cannot prepare '%s'", path), wrap(ErrFilesystem, cause))
}

// NewLaunchError reports a failed launch for one configuration row.
func NewLaunchError(module, runName string, cause error) *BatchError {
	return NewBatchError(module, fmt.Sprintf("launch of '%s' failed", runName), wrap(ErrLaunch, cause))
}

// NewInvalidFilterError reports an unusable row filter.
func NewInvalidFilterError(module, message string) *BatchError {
	return NewBatchError(module, message, ErrInvalidFilter)
}

// NewDuplicateJobError reports a second record for the same (session, job) pair.
func NewDuplicateJobError(module string, sessionID int64, jobID string, cause error) *BatchError {
	return NewBatchError(module, fmt.Sprintf("job '%s' is already recorded for session %d", jobID, sessionID), wrap(ErrDuplicateJob, cause))
}

// NewInvalidStatusError reports an unusable status value.
func NewInvalidStatusError(module, status string) *BatchError {
	return NewBatchError(module, fmt.Sprintf("invalid job status '%s'", status), ErrInvalidStatus)
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsBatchError determines if the given error is of type BatchError.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}

// ExtractErrorMessage extracts the error message string from an error.
// For BatchError, it returns the cleaner Message field.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}
