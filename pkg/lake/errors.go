package lake

import (
	"errors"
	"fmt"
)

// NotFoundError reports that no datum record matches the requested ID.
// It is propagated unmodified by Get and GetMany; callers distinguish it
// from other failures with IsNotFound.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("datum with ID '%s' not found", e.ID)
}

// IsNotFound returns true if the error is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ErrRegistryKeyNotFound is returned by registry implementations when no
// payload is stored under the requested key.
var ErrRegistryKeyNotFound = errors.New("registry key not found")
