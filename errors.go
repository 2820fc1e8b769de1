package gdrive

import (
	"errors"
	"fmt"
)

// Sentinel errors for expected, recoverable conditions.
// Use errors.Is(err, gdrive.ErrNotFound) to check.
var (
	// ErrNotFound is returned when a lookup that expects exactly one result
	// finds none.
	ErrNotFound = errors.New("gdrive: not found")

	// ErrEndOfList is returned by Collection.Next when the listing is
	// exhausted. The cursor resets, so the next call starts over.
	ErrEndOfList = errors.New("gdrive: end of list")
)

// isNotFound reports whether err is the package's NotFound condition.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// AmbiguousMatchError is returned when a by-name lookup matches more than
// one entry. It carries every candidate so callers can disambiguate;
// ambiguity is never resolved silently.
type AmbiguousMatchError struct {
	Title   string
	Matches []*File
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("gdrive: %d files match title %q", len(e.Matches), e.Title)
}

// DuplicateRegistrationError indicates a programming defect: two File
// instances were registered for the same remote ID within one session.
// The registry keeps the first instance; callers must discard the duplicate.
type DuplicateRegistrationError struct {
	ID string
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("gdrive: file %q is already registered in this session", e.ID)
}

// CapabilityError is returned when an operation is invoked on a kind that
// structurally does not support it, for example listing children of a
// regular file. It indicates misuse and is never retried.
type CapabilityError struct {
	Op   string
	Kind Kind
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("gdrive: operation %q is not available for kind %q", e.Op, e.Kind)
}

// LockedError is returned when a content mutation is blocked by the file's
// lock flag. The check is local — no gateway call is made.
type LockedError struct {
	ID     string
	Reason string
}

func (e *LockedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("gdrive: file %q is locked: %s", e.ID, e.Reason)
	}

	return fmt.Sprintf("gdrive: file %q is locked", e.ID)
}
