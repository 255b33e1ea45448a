package exception_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/sweep/pkg/batch/support/util/exception"
)

func TestNewBatchError(t *testing.T) {
	originalErr := errors.New("db connection refused")
	be := exception.NewBatchError("store", "failed to connect", originalErr)

	assert.Equal(t, "store", be.Module)
	assert.Equal(t, "failed to connect", be.Message)
	assert.Equal(t, originalErr, be.Unwrap())
	assert.Contains(t, be.Error(), "[store] failed to connect: db connection refused")
	assert.NotEmpty(t, be.StackTrace)
}

func TestNewBatchErrorf(t *testing.T) {
	be := exception.NewBatchErrorf("generator", "line %d is malformed", 3)
	assert.Nil(t, be.Unwrap())
	assert.Equal(t, "[generator] line 3 is malformed", be.Error())

	cause := errors.New("io error")
	be = exception.NewBatchErrorf("snapshot", "failed to write '%s'", "grid.csv", cause)
	assert.Equal(t, "failed to write 'grid.csv'", be.Message)
	assert.True(t, errors.Is(be, cause))
}

func TestTypedErrors(t *testing.T) {
	cause := errors.New("permission denied")
	tests := []struct {
		err      error
		sentinel error
		kind     string
	}{
		{exception.NewReservedNameError("store", "jobs"), exception.ErrReservedName, exception.ReservedNameException},
		{exception.NewUnknownTableError("store", "grid"), exception.ErrUnknownTable, exception.UnknownTableException},
		{exception.NewUnknownJobError("store", "42"), exception.ErrUnknownJob, exception.UnknownJobException},
		{exception.NewUnknownSessionError("store", 7), exception.ErrUnknownSession, exception.UnknownSessionException},
		{exception.NewMalformedSpecError("generator", "bad header", nil), exception.ErrMalformedSpec, exception.MalformedSpecException},
		{exception.NewFilesystemError("session", "/out", cause), exception.ErrFilesystem, exception.FilesystemException},
		{exception.NewLaunchError("launcher", "12_fast", cause), exception.ErrLaunch, exception.LaunchException},
		{exception.NewInvalidFilterError("store", "unknown column"), exception.ErrInvalidFilter, exception.InvalidFilterException},
		{exception.NewDuplicateJobError("store", 1, "42", cause), exception.ErrDuplicateJob, exception.DuplicateJobException},
		{exception.NewInvalidStatusError("store", ""), exception.ErrInvalidStatus, exception.InvalidStatusException},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.sentinel))
			assert.Equal(t, tt.kind, exception.Kind(tt.err))
			assert.True(t, exception.IsBatchError(tt.err))
		})
	}
}

func TestTypedErrors_KeepCause(t *testing.T) {
	cause := errors.New("permission denied")
	err := exception.NewFilesystemError("session", "/out", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "cannot prepare '/out'", exception.ExtractErrorMessage(err))
}

func TestKind_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("run failed: %w", exception.NewUnknownTableError("catalog", "grid"))
	assert.Equal(t, exception.UnknownTableException, exception.Kind(wrapped))
	assert.Equal(t, "", exception.Kind(errors.New("plain")))
	assert.Equal(t, "", exception.Kind(nil))
}

func TestExtractErrorMessage(t *testing.T) {
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
	assert.Equal(t, "plain", exception.ExtractErrorMessage(errors.New("plain")))
	assert.Equal(t, "table 'grid' does not exist", exception.ExtractErrorMessage(exception.NewUnknownTableError("catalog", "grid")))
}

func TestRegisterErrorType_Panics(t *testing.T) {
	assert.Panics(t, func() { exception.RegisterErrorType("", errors.New("x")) })
	assert.Panics(t, func() { exception.RegisterErrorType("Nil", nil) })
}
