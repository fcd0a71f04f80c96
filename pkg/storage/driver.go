// Package storage defines the persistence collaborator for users and their
// labelled samples. Drivers hand samples back fully materialized; ranking
// never reaches into storage.
package storage

import (
	"context"

	"github.com/authorid/authorid/pkg/sample"
)

// UserStore persists user accounts.
type UserStore interface {
	// CreateUser stores a new user. Returns ErrEmailTaken if another user
	// already registered the same email.
	CreateUser(ctx context.Context, user *sample.User) error

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, id string) (*sample.User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*sample.User, error)
}

// SampleStore persists labelled samples. Every operation is scoped to the
// owning user: a sample owned by someone else is reported as not found.
type SampleStore interface {
	// PutSample stores a new labelled sample.
	PutSample(ctx context.Context, s *sample.LabelledSample) error

	// GetSample retrieves one of the user's samples by ID.
	GetSample(ctx context.Context, userID, id string) (*sample.LabelledSample, error)

	// ListSamples returns all of the user's samples in insertion order.
	// The returned slice is a snapshot the caller may read without locking.
	ListSamples(ctx context.Context, userID string) ([]*sample.LabelledSample, error)

	// DeleteSample removes one of the user's samples.
	DeleteSample(ctx context.Context, userID, id string) error
}

// Driver is a complete storage backend.
type Driver interface {
	UserStore
	SampleStore

	// Close closes the store and releases any resources.
	Close() error
}
