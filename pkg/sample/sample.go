// Package sample holds the data model shared by storage, ranking and the API:
// users and the labelled handwriting samples they own.
package sample

import (
	"time"

	"github.com/google/uuid"

	"github.com/authorid/authorid/pkg/rank"
	"github.com/authorid/authorid/pkg/vec"
)

// User is an account that owns labelled samples.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// LabelledSample associates a known author's name with the fingerprint of one
// of their handwriting images.
type LabelledSample struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	// Label is the known author's name.
	Label string `json:"label"`

	// Fingerprint is the model's vector for the image.
	Fingerprint vec.Vector `json:"-"`

	// ImageKey locates the stored image in the image store.
	ImageKey string `json:"-"`

	// Filename is the name the image was uploaded with.
	Filename string `json:"filename,omitempty"`

	// ContentType is the detected MIME type of the stored image.
	ContentType string `json:"content_type,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewUser creates a user with a fresh ID.
func NewUser(email, name, passwordHash string) *User {
	return &User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
}

// NewLabelledSample creates a sample with a fresh ID. The image key is derived
// from the owner and the sample ID so keys never collide across users.
func NewLabelledSample(userID, label string, fp vec.Vector, filename, contentType string) *LabelledSample {
	id := uuid.NewString()
	return &LabelledSample{
		ID:          id,
		UserID:      userID,
		Label:       label,
		Fingerprint: fp,
		ImageKey:    ImageKey(userID, id),
		Filename:    filename,
		ContentType: contentType,
		CreatedAt:   time.Now().UTC(),
	}
}

// ImageKey is the image store path for a user's sample.
func ImageKey(userID, sampleID string) string {
	return "users/" + userID + "/samples/" + sampleID
}

// Candidates converts samples into ranking candidates, preserving order.
func Candidates(samples []*LabelledSample) []rank.Candidate {
	candidates := make([]rank.Candidate, len(samples))
	for i, s := range samples {
		candidates[i] = rank.Candidate{ID: s.ID, Fingerprint: s.Fingerprint}
	}
	return candidates
}
