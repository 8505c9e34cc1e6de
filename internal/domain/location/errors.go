package location

import (
	"errors"
	"strings"
)

var (
	ErrLocationNotFound  = errors.New("location not found")
	ErrAmbiguousLocation = errors.New("ambiguous location")
	ErrLocationMismatch  = errors.New("location mismatch")
	ErrBookingNotFound   = errors.New("locum booking not found")
	ErrBlockNotFound     = errors.New("schedule block not found")
	ErrUnknownWorkerType = errors.New("unknown worker type")
	ErrUnknownFactKind   = errors.New("unknown attendance fact kind")
)

// AmbiguousError carries the conflicting location ids. It matches ErrAmbiguousLocation.
type AmbiguousError struct {
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return "ambiguous location: candidates " + strings.Join(e.Candidates, ", ")
}

func (e *AmbiguousError) Is(target error) bool {
	return target == ErrAmbiguousLocation
}

// MismatchError reports a stored location that disagrees with the resolved one.
type MismatchError struct {
	Stored   string
	Resolved string
}

func (e *MismatchError) Error() string {
	return "location mismatch: stored " + e.Stored + ", resolved " + e.Resolved
}

func (e *MismatchError) Is(target error) bool {
	return target == ErrLocationMismatch
}
