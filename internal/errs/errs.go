package errs

import "errors"

// Sentinel errors shared across the catalog. Handlers translate these into
// HTTP status codes; everything else maps to an internal error.
var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrValidation       = errors.New("invalid input")
	ErrConflict         = errors.New("already exists")
)
