package session

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrAlreadyActive is returned by Start while a session is running or starting
	ErrAlreadyActive = errors.New("session already active")
	// ErrNoActiveSession is returned by End when nothing is running
	ErrNoActiveSession = errors.New("no active session")
	// ErrPersistence matches every PersistenceError
	ErrPersistence = errors.New("session persistence failed")
)

// PersistenceError is a local storage failure. In-memory state is left
// unchanged when it is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
