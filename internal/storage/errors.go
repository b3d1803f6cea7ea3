package storage

import "errors"

// Not-found is a typed result, not a fault: callers distinguish "nothing to
// link" from storage failure.
var (
	ErrPaperNotFound  = errors.New("paper not found")
	ErrSourceNotFound = errors.New("source not found")
)
