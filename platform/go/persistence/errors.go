package persistence

import "errors"

// ErrNotFound is returned by stores when a row does not exist. Repositories
// translate it into their domain's sentinel error.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when an insert or update trips a unique constraint.
// Repositories translate it into their domain's sentinel error.
var ErrConflict = errors.New("unique constraint violated")
