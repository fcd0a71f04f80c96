// Package fingerprint defines the client contract for the external model
// server that turns a handwriting image into a fingerprint vector.
package fingerprint

import (
	"context"
	"errors"

	"github.com/authorid/authorid/pkg/vec"
)

// ErrUnavailable is returned when the model server could not be reached or
// answered with something that is not a usable fingerprint. Callers must not
// substitute a fallback vector.
var ErrUnavailable = errors.New("fingerprint unavailable")

// Fingerprinter extracts fingerprints from images.
type Fingerprinter interface {
	// Fingerprint sends the raw image bytes to the model and returns the
	// resulting vector.
	Fingerprint(ctx context.Context, image []byte) (vec.Vector, error)

	// Close releases any resources held by the fingerprinter.
	Close() error
}

// FileFingerprinter is implemented by fingerprinters that can forward the
// uploaded file's name along with its bytes.
type FileFingerprinter interface {
	FingerprintFile(ctx context.Context, filename string, image []byte) (vec.Vector, error)
}

// Of fingerprints image, passing filename on when f supports it.
func Of(ctx context.Context, f Fingerprinter, filename string, image []byte) (vec.Vector, error) {
	if ff, ok := f.(FileFingerprinter); ok {
		return ff.FingerprintFile(ctx, filename, image)
	}
	return f.Fingerprint(ctx, image)
}
