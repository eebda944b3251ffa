package domain

import "errors"

// Sentinel errors for the request-level taxonomy. Services wrap these with
// context via fmt.Errorf("%w"); httputil maps them to response codes.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("not authorized")

	// ErrStateConflict covers transitions attempted against the wrong
	// current status, including submissions arriving after a deadline
	// sweep already forced an outcome.
	ErrStateConflict = errors.New("state conflict")

	ErrDuplicateSubmission = errors.New("result already submitted")
)
