package assets

import (
	"context"
	"errors"
	"fmt"
)

// ValidationError rejects a malformed submission before any network call.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "invalid asset submission: " + e.Msg
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// UploadError aborts the whole reconciliation.
type UploadError struct {
	Position int
	Name     string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload asset %q at position %d: %v", e.Name, e.Position, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// DeleteError is recoverable: it is logged and never blocks an edit.
type DeleteError struct {
	Key string
	Err error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete asset %q: %v", e.Key, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

// TimeoutError reports that the caller's deadline elapsed or the request
// was cancelled. In-flight uploads may or may not have completed.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("asset reconciliation timed out: %v", e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// CommitError wraps a failure of the caller's persistence hook.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit reconciled assets: %v", e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsTimeout(err error) bool {
	var target *TimeoutError
	return errors.As(err, &target)
}

func IsUpload(err error) bool {
	var target *UploadError
	return errors.As(err, &target)
}

func contextError(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &TimeoutError{Err: err}
	}
	return nil
}
