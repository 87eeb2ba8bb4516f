package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the stores, the form model and the handlers.
// Callers classify with errors.Is / errors.As.
var (
	// ErrSourceUnavailable means the backing file, table or remote
	// resource could not be read at load. Fatal to session start.
	ErrSourceUnavailable = errors.New("record source unavailable")

	// ErrIndexOutOfRange signals a cursor/store misalignment. It should
	// never occur while the cursor invariants hold.
	ErrIndexOutOfRange = errors.New("record index out of range")

	// ErrRecordNotFound means an update referenced a stale or unknown key.
	ErrRecordNotFound = errors.New("record not found")

	// ErrConcurrentModification means the remote content changed since it
	// was loaded. The local copy is already durable; reload and retry.
	ErrConcurrentModification = errors.New("remote content changed since load")

	// ErrSyncFailure is a transport or auth failure pushing to the remote.
	// The local copy is already durable; retry the push.
	ErrSyncFailure = errors.New("remote sync failed")

	// ErrAssetNotFound means no image file exists for a record's key.
	// Grading still proceeds, this is a warning only.
	ErrAssetNotFound = errors.New("image asset not found")
)

// ValidationError rejects a single form field. Field names the offending
// input so the UI can re-prompt.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
