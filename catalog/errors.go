package catalog

import "errors"

var (
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	ErrUnsupportedFormat    = errors.New("unsupported catalog format")
	ErrMissingColumn        = errors.New("missing catalog column")
	ErrInvalidValue         = errors.New("invalid catalog value")
)

// ErrSearchDeadline is the cause to attach, with context.WithTimeoutCause, to
// a deadline that bounds the search itself. Such a deadline counts as a
// retriever failure. Any other end of the caller's context abandons the
// search.
var ErrSearchDeadline = errors.New("search deadline exceeded")
