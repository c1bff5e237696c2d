package usecase

import "errors"

var (
	// ErrFetch marks transient remote-source failures. Units hitting it are
	// retried by the client, then skipped and counted, never fatal on their own.
	ErrFetch = errors.New("fetch failure")
	// ErrParse marks a malformed entry (bad game URL, unusable field). The
	// entry is dropped and the surrounding unit continues.
	ErrParse = errors.New("parse failure")
	// ErrInvalidConfig marks an unusable run configuration and aborts before
	// any fetch starts.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrDependencyUnavailable marks a run where no season schedule could be
	// fetched at all.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
