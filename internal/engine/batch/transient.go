package batch

import "errors"

// transientCapable is implemented by errors that can declare themselves
// retryable, such as the API client's rate-limit errors.
type transientCapable interface {
	Transient() bool
}

// IsTransient reports whether err is a retryable failure. Errors qualify by
// implementing a Transient() bool method anywhere in their chain.
func IsTransient(err error) bool {
	var t transientCapable
	if errors.As(err, &t) {
		return t.Transient()
	}
	return false
}

// MarkTransient wraps err so IsTransient reports true for it. Useful for
// adapters whose error types cannot carry the classification themselves.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return transientError{err}
}

type transientError struct {
	err error
}

func (e transientError) Error() string   { return e.err.Error() }
func (e transientError) Unwrap() error   { return e.err }
func (e transientError) Transient() bool { return true }
