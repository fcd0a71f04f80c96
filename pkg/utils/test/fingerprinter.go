package testutils

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/authorid/authorid/pkg/fingerprint"
	"github.com/authorid/authorid/pkg/vec"
)

// MockFingerprinter is a test fingerprinter that returns predictable
// fingerprints keyed by the image bytes.
type MockFingerprinter struct {
	mu sync.Mutex

	// Fingerprints maps image bytes (as a string) to the vector returned.
	Fingerprints map[string]vec.Vector

	// Default is returned for images without an entry in Fingerprints.
	Default vec.Vector

	// FailOn causes Fingerprint to return fingerprint.ErrUnavailable when
	// the image matches.
	FailOn []byte

	// Calls counts Fingerprint invocations.
	Calls int

	// Filenames records the names passed to FingerprintFile, in call order.
	Filenames []string
}

func NewMockFingerprinter() *MockFingerprinter {
	return &MockFingerprinter{
		Fingerprints: make(map[string]vec.Vector),
		Default:      vec.Vector{0.1, 0.2, 0.3},
	}
}

func (m *MockFingerprinter) Fingerprint(_ context.Context, image []byte) (vec.Vector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++

	if m.FailOn != nil && bytes.Equal(image, m.FailOn) {
		return nil, fmt.Errorf("%w: mock model failure", fingerprint.ErrUnavailable)
	}

	if fp, ok := m.Fingerprints[string(image)]; ok {
		return fp.Clone(), nil
	}

	return m.Default.Clone(), nil
}

func (m *MockFingerprinter) FingerprintFile(ctx context.Context, filename string, image []byte) (vec.Vector, error) {
	m.mu.Lock()
	m.Filenames = append(m.Filenames, filename)
	m.mu.Unlock()

	return m.Fingerprint(ctx, image)
}

func (m *MockFingerprinter) Close() error {
	return nil
}

var (
	_ fingerprint.Fingerprinter     = (*MockFingerprinter)(nil)
	_ fingerprint.FileFingerprinter = (*MockFingerprinter)(nil)
)
