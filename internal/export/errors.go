package export

// errors.go defines the export failure taxonomy.
//
//   - ValidationError: no column selected; raised before any artifact exists
//   - IOError: an artifact could not be created, read, written, or removed
//   - FormatError: the intermediate CSV is malformed (row/header mismatch)
//   - TimeoutError: the pipeline exceeded its configured duration
//
// Every error except ValidationError is raised after the workspace exists,
// so the pipeline removes the workspace before returning any of them.

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// NoColumnsMessage is shown to the user when neither column was checked.
const NoColumnsMessage = "Either 'Title' or 'Author' must be checked for exporting files."

// ErrTooManyExports is returned when every export slot is busy and the wait
// timeout expires.
var ErrTooManyExports = errors.New("too many concurrent exports, please try again later")

// ValidationError reports an export request that cannot start.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IOError reports a filesystem failure on one of the export artifacts.
type IOError struct {
	Stage Stage
	Op    string // create, write, read, remove, ...
	Path  string
	Err   error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("export %s: %s: %v", e.Stage, e.Op, e.Err)
	}
	return fmt.Sprintf("export %s: %s %s: %v", e.Stage, e.Op, filepath.Base(e.Path), e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// FormatError reports malformed intermediate data found by the converter.
// Line is the 1-based CSV line the offending record starts on.
type FormatError struct {
	Line   int
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("export %s: malformed csv at line %d: %s", StageConverting, e.Line, e.Reason)
}

// TimeoutError reports that the pipeline ran past its deadline.
type TimeoutError struct {
	Stage   Stage
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("export timed out after %s during %s", e.Timeout, e.Stage)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

func ioErr(stage Stage, op, path string, err error) error {
	return &IOError{Stage: stage, Op: op, Path: path, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
