package mvu

import "errors"

var (
	ErrMissingInit    = errors.New("mvu: init is required")
	ErrMissingUpdate  = errors.New("mvu: update is required")
	ErrInvalidMode    = errors.New("mvu: unknown dispatch mode")
	ErrInvalidLimit   = errors.New("mvu: max messages per frame must not be negative")
	ErrAlreadyStarted = errors.New("mvu: program already started")
	ErrNotStarted     = errors.New("mvu: program not started")
	ErrShutdown       = errors.New("mvu: program shut down")
	ErrFailed         = errors.New("mvu: program failed during a previous frame")
)
