package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/authorid/authorid/pkg/sample"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeSampleCreated is emitted after a labelled sample is stored.
	EventTypeSampleCreated = "authorid.sample.created"

	// EventTypeSampleDeleted is emitted after a labelled sample is removed.
	EventTypeSampleDeleted = "authorid.sample.deleted"
)

// SampleEvent is a transport-neutral event payload for a sample lifecycle change.
// The fingerprint itself is never published.
type SampleEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	UserID        string    `json:"user_id"`
	SampleID      string    `json:"sample_id"`
	Label         string    `json:"label"`
	Dimensions    int       `json:"dimensions,omitempty"`
}

// NewSampleEvent builds an event of eventType describing s.
func NewSampleEvent(eventType string, s *sample.LabelledSample) *SampleEvent {
	return &SampleEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		UserID:        s.UserID,
		SampleID:      s.ID,
		Label:         s.Label,
		Dimensions:    s.Fingerprint.Dimensions(),
	}
}
