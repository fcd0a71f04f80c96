// Package upload validates handwriting images received from clients before
// they are sent to the model server or stored.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	// Decoders register themselves with the image package.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/spakin/netpbm"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxBytes bounds the size of a single uploaded image.
const MaxBytes = 10 << 20

var (
	// ErrEmpty is returned when the upload carries no bytes.
	ErrEmpty = errors.New("empty image upload")

	// ErrUnsupportedFormat is returned when the bytes are not an image in a
	// format the server can decode.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrTooLarge is returned when the upload exceeds MaxBytes.
	ErrTooLarge = errors.New("image upload too large")
)

// contentTypes maps decoder names to the MIME type served back to clients.
var contentTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"webp": "image/webp",
	"pbm":  "image/x-portable-bitmap",
	"pgm":  "image/x-portable-graymap",
	"ppm":  "image/x-portable-pixmap",
	"pam":  "image/x-portable-arbitrarymap",
}

// Image is a validated upload.
type Image struct {
	Data        []byte
	Filename    string
	Format      string
	ContentType string
	Width       int
	Height      int
}

// Validate checks that data holds a decodable image. Only the header is
// decoded; pixel data is left to the model server.
func Validate(filename string, data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if len(data) > MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(data), MaxBytes)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: image has no pixels", ErrUnsupportedFormat)
	}

	contentType, ok := contentTypes[format]
	if !ok {
		contentType = http.DetectContentType(data)
	}

	return &Image{
		Data:        data,
		Filename:    filepath.Base(filename),
		Format:      format,
		ContentType: contentType,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}, nil
}

// FromFileHeader reads and validates a multipart file.
func FromFileHeader(fh *multipart.FileHeader) (*Image, error) {
	if fh == nil {
		return nil, ErrEmpty
	}
	if fh.Size > MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, fh.Size, MaxBytes)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}

	return Validate(fh.Filename, data)
}
