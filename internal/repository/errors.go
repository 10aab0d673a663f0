package repository

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("repository: not found")

	// ErrDuplicate is returned on unique constraint violations, such as
	// enrolling a student in the same course twice.
	ErrDuplicate = errors.New("repository: duplicate entry")

	// ErrInvalidIdentifier is returned when a table or column name fails
	// the identifier allowlist. Identifiers are never interpolated into
	// SQL without passing this check.
	ErrInvalidIdentifier = errors.New("repository: invalid identifier")
)
