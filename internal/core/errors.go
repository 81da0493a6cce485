package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRowsPresent is returned by Commit under PolicyRequireAllValid
	// when the preview contains rejected rows. Nothing is sent to the backend.
	ErrInvalidRowsPresent = errors.New("invalid rows present: commit refused by require-all-valid policy")

	// ErrUnknownEntity is returned when no schema is registered for an entity key.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrSessionNotFound is returned when a preview session has expired or never existed.
	ErrSessionNotFound = errors.New("import session not found")

	// ErrAlreadyCommitted is returned when a preview session is committed twice.
	ErrAlreadyCommitted = errors.New("import session already committed")

	// ErrCommitInProgress is returned when a commit for the same session is still running.
	ErrCommitInProgress = errors.New("import session commit in progress")

	// ErrEmptyFile is returned when an upload contains no header row.
	ErrEmptyFile = errors.New("empty file")

	// ErrFileTooLarge is returned when an upload exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrBatchNotFound is returned when rolling back a batch that does not exist
	// or was already rolled back.
	ErrBatchNotFound = errors.New("batch not found or already rolled back")

	// ErrRollbackUnsupported is returned when the configured committer cannot undo batches.
	ErrRollbackUnsupported = errors.New("rollback not supported by commit backend")

	// ErrHistoryUnsupported is returned when the configured committer keeps no batch history.
	ErrHistoryUnsupported = errors.New("batch history not supported by commit backend")
)

// StructuralError reports required schema columns absent from the file
// header. It is raised before any row is examined.
type StructuralError struct {
	Missing []string
	Mapping ColumnMapping
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("missing required column(s): %s", strings.Join(e.Missing, ", "))
}

// CommitError reports a transport or backend failure during the batch
// submit. The preview that produced the batch is still valid and can be
// committed again.
type CommitError struct {
	BatchID string
	Err     error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit failed: %v", e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// IsStructuralError reports whether err is or wraps a *StructuralError.
func IsStructuralError(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// IsCommitError reports whether err is or wraps a *CommitError.
func IsCommitError(err error) bool {
	var ce *CommitError
	return errors.As(err, &ce)
}
