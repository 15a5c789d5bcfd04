package store

import "errors"

var (
	// ErrNotFound means the record does not exist or is not owned by the requester.
	ErrNotFound = errors.New("not found")
	// ErrParentNotFound means the parent project does not exist or is not owned by the requester.
	ErrParentNotFound = errors.New("parent project not found")
	// ErrTransaction means a write failed and was rolled back; prior state is retained.
	ErrTransaction = errors.New("transaction failed")
)
