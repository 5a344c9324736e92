package session

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no persisted record exists for a session
// name.
var ErrNotFound = errors.New("session not found")

// ErrAlreadyExists is returned when creating a session whose name is
// already taken.
var ErrAlreadyExists = errors.New("session already exists")

// StorageError wraps an underlying persistence I/O failure. Callers
// decide whether to retry; the store never swallows these.
type StorageError struct {
	Op   string // "save", "load", "list", "delete"
	Name string // session name, empty for list
	Err  error
}

func (e *StorageError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("session storage %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("session storage %s failed for %q: %v", e.Op, e.Name, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
