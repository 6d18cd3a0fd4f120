package remotecoll

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Store.Update and Store.Delete for IDs the collection has no record of.
	ErrNotFound = errors.New("remotecoll: resource not found")
	// ErrUnknownFormat is returned when a document is neither the current nor the legacy shape.
	ErrUnknownFormat = errors.New("remotecoll: unknown document format")
	// ErrNoSource is returned by NewStore without a Source.
	ErrNoSource = errors.New("remotecoll: source is required")
	// ErrNoID is returned when neither an IDFunc nor an identity property is available.
	ErrNoID = errors.New("remotecoll: no identity function or property")
)

// ResourceError reports a failed Store operation on a single resource or view.
type ResourceError struct {
	Op  string // "refresh", "fetch", "update", "delete"
	ID  string // resource ID, or view key for "refresh"
	Err error
}

func (e *ResourceError) Error() string {
	if errors.Is(e.Err, ErrNotFound) {
		return fmt.Sprintf("%s %q: item not found with ID: %s", e.Op, e.ID, e.ID)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.ID, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// InvalidateError is returned by Archive.Invalidate when the generation bump,
// the delete, or both failed.
type InvalidateError struct {
	Key     string
	BumpErr error
	DelErr  error
}

func (e *InvalidateError) Error() string {
	switch {
	case e.BumpErr != nil && e.DelErr != nil:
		return fmt.Sprintf("invalidate %q failed: gen bump and delete failed: bump=%v; delete=%v",
			e.Key, e.BumpErr, e.DelErr)
	case e.BumpErr != nil:
		return fmt.Sprintf("invalidate %q: gen bump failed: %v", e.Key, e.BumpErr)
	case e.DelErr != nil:
		return fmt.Sprintf("invalidate %q: delete failed: %v", e.Key, e.DelErr)
	default:
		return fmt.Sprintf("invalidate %q: unknown error", e.Key)
	}
}

func (e *InvalidateError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.BumpErr != nil {
		errs = append(errs, e.BumpErr)
	}
	if e.DelErr != nil {
		errs = append(errs, e.DelErr)
	}
	return errs
}
