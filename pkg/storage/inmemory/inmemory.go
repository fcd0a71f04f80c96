// Package inmemory provides a map-backed storage driver for tests and
// throwaway servers.
package inmemory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/authorid/authorid/pkg/sample"
	"github.com/authorid/authorid/pkg/storage"
)

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	// mu is a read write sync mutex guarding every map and slice below
	mu sync.RWMutex

	users        map[string]*sample.User
	usersByEmail map[string]string

	// samples maps a user ID to that user's samples in insertion order
	samples map[string][]*sample.LabelledSample
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		users:        make(map[string]*sample.User),
		usersByEmail: make(map[string]string),
		samples:      make(map[string][]*sample.LabelledSample),
	}
}

// CreateUser stores a new user.
func (d *Driver) CreateUser(_ context.Context, user *sample.User) error {
	if user == nil {
		return errors.New("cannot store nil user")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, ok := d.usersByEmail[email]; ok {
		return storage.ErrEmailTaken
	}

	u := *user
	d.users[u.ID] = &u
	d.usersByEmail[email] = u.ID
	return nil
}

// GetUser retrieves a user by ID.
func (d *Driver) GetUser(_ context.Context, id string) (*sample.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "user", ID: id}
	}

	out := *u
	return &out, nil
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (d *Driver) GetUserByEmail(_ context.Context, email string) (*sample.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, storage.NotFoundError{Kind: "user", ID: email}
	}

	out := *d.users[id]
	return &out, nil
}

// PutSample stores a new labelled sample.
func (d *Driver) PutSample(_ context.Context, s *sample.LabelledSample) error {
	if s == nil {
		return errors.New("cannot store nil sample")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[s.UserID]; !ok {
		return storage.NotFoundError{Kind: "user", ID: s.UserID}
	}

	for _, existing := range d.samples[s.UserID] {
		if existing.ID == s.ID {
			return errors.New("duplicate sample id: " + s.ID)
		}
	}

	d.samples[s.UserID] = append(d.samples[s.UserID], cloneSample(s))
	return nil
}

// GetSample retrieves one of the user's samples.
func (d *Driver) GetSample(_ context.Context, userID, id string) (*sample.LabelledSample, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, s := range d.samples[userID] {
		if s.ID == id {
			return cloneSample(s), nil
		}
	}

	return nil, storage.NotFoundError{Kind: "sample", ID: id}
}

// ListSamples returns the user's samples in insertion order.
func (d *Driver) ListSamples(_ context.Context, userID string) ([]*sample.LabelledSample, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stored := d.samples[userID]
	out := make([]*sample.LabelledSample, len(stored))
	for i, s := range stored {
		out[i] = cloneSample(s)
	}

	return out, nil
}

// DeleteSample removes one of the user's samples.
func (d *Driver) DeleteSample(_ context.Context, userID, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	stored := d.samples[userID]
	for i, s := range stored {
		if s.ID == id {
			d.samples[userID] = append(stored[:i:i], stored[i+1:]...)
			return nil
		}
	}

	return storage.NotFoundError{Kind: "sample", ID: id}
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}

func cloneSample(s *sample.LabelledSample) *sample.LabelledSample {
	out := *s
	out.Fingerprint = s.Fingerprint.Clone()
	return &out
}

var _ storage.Driver = (*Driver)(nil)
