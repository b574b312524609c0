package ownref

import "errors"

// Sentinel errors for bounded lock attempts.
var (
	// ErrDetached indicates the reader has no registered owner.
	ErrDetached = errors.New("reader is not attached to an owner")

	// ErrNoValue indicates the owner is registered but holds no value.
	ErrNoValue = errors.New("owner holds no value")

	// ErrLockTimeout indicates a TryLock attempt exceeded its deadline.
	ErrLockTimeout = errors.New("lock attempt timed out")
)
