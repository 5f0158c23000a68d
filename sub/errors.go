package sub

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateID is reported for every declaration after the first that reuses an ID
	// within one Apply. The first declaration is kept.
	ErrDuplicateID = errors.New("sub: duplicate subscription id")

	// ErrKeyCollision is reported when two different IDs hash to the same key.
	ErrKeyCollision = errors.New("sub: subscription id key collision")
)

// StartError is reported when a listener could not be started. The ID stays
// inactive and is tried again on the next Apply that still declares it.
type StartError struct {
	ID  ID
	Err error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("sub: start %q: %v", e.ID.String(), e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered from a panicking StartFunc.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
