package storage

import "errors"

// ErrEmailTaken is returned when registering an email that already has an account.
var ErrEmailTaken = errors.New("email already registered")

// NotFoundError is returned when a user or sample doesn't exist in the store.
type NotFoundError struct {
	// Kind is the kind of record, e.g. "user" or "sample".
	Kind string

	// ID is the key that was looked up.
	ID string
}

func (e NotFoundError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "record"
	}

	if e.ID == "" {
		return kind + " not found"
	}

	return kind + " not found: " + e.ID
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
