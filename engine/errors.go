package engine

import "errors"

// Authority errors
var (
	ErrDesynced       = errors.New("authority is desynced")
	ErrNilTransport   = errors.New("no transport configured")
	ErrNilStep        = errors.New("no step function configured")
	ErrNoNodeID       = errors.New("no node id configured")
	ErrAlreadyStarted = errors.New("authority already started")
	ErrNotStarted     = errors.New("authority not started")
)
