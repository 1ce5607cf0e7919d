package types

import "errors"

// Sentinel errors for the rxfn runtime.
//
// These errors provide type-safe error checking using errors.Is() and errors.As().
// Operators wrap them with context using fmt.Errorf("%s: %w", msg, err) where
// extra detail helps.
var (
	// ErrEmpty is returned by First, Last and Reduce-like operators when the
	// source completed without emitting a value.
	ErrEmpty = errors.New("no elements in sequence")

	// ErrOutOfRange is returned by ElementAt when the source completed before
	// reaching the requested index.
	ErrOutOfRange = errors.New("argument out of range")

	// ErrTimeout is returned by Timeout when the source stayed silent for too long.
	ErrTimeout = errors.New("timeout has occurred")

	// ErrSchedulerClosed is returned when work is scheduled on a closed scheduler.
	ErrSchedulerClosed = errors.New("scheduler closed")
)
