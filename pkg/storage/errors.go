package storage

import "errors"

var (
	// ErrNotFound is returned when a named file does not exist in its area.
	ErrNotFound = errors.New("file not found")

	// ErrInvalidName is returned for names that could leave their area.
	ErrInvalidName = errors.New("invalid file name")

	// ErrForbidden is returned for static paths containing "..".
	ErrForbidden = errors.New("forbidden path")
)
