package domain

import "errors"

var (
	// ErrNotFound is returned when the requested snapshot does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidName indicates an empty or otherwise unusable snapshot name.
	ErrInvalidName = errors.New("invalid snapshot name")
)
