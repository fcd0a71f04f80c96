// Package modelserver implements pkg/fingerprint's Fingerprinter against the
// handwriting model server's HTTP API.
package modelserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/mcuadros/go-defaults"

	"github.com/authorid/authorid/pkg/fingerprint"
	"github.com/authorid/authorid/pkg/utils"
	"github.com/authorid/authorid/pkg/vec"
)

const (
	// DefaultBaseURL is the default model server URL.
	DefaultBaseURL = "http://localhost:5000"

	// DefaultField is the multipart file field the model server reads.
	DefaultField = "rq_image"

	// DefaultFilename is sent when the caller has no upload filename.
	DefaultFilename = "image"

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 16 << 20
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Config holds configuration for the model server client.
// Zero-value fields are filled from the default tags.
type Config struct {
	// BaseURL is the model server URL (e.g., "http://localhost:5000").
	BaseURL string `default:"http://localhost:5000"`

	// Path is the request path on the model server.
	Path string `default:"/"`

	// Field is the multipart form field carrying the image.
	Field string `default:"rq_image"`

	// Timeout bounds a single fingerprint call end to end.
	Timeout time.Duration `default:"30s"`
}

// Client wraps the model server's fingerprint endpoint.
type Client struct {
	endpoint   string
	field      string
	httpClient *http.Client
}

// NewClient creates a new model server client.
func NewClient(cfg Config) (*Client, error) {
	defaults.SetDefaults(&cfg)

	endpoint, err := url.JoinPath(cfg.BaseURL, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid model server url %q: %w", cfg.BaseURL, err)
	}

	return &Client{
		endpoint: endpoint,
		field:    cfg.Field,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// Endpoint returns the URL fingerprint requests are sent to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Fingerprint posts the image under DefaultFilename. See FingerprintFile.
func (c *Client) Fingerprint(ctx context.Context, image []byte) (vec.Vector, error) {
	return c.FingerprintFile(ctx, DefaultFilename, image)
}

// FingerprintFile posts the image to the model server as multipart file data
// named filename and decodes the JSON number array it answers with. Every
// failure is reported as fingerprint.ErrUnavailable; there is no retry.
func (c *Client) FingerprintFile(ctx context.Context, filename string, image []byte) (vec.Vector, error) {
	body, contentType, err := c.encodeImage(filename, image)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", fingerprint.ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", fingerprint.ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", fingerprint.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", fingerprint.ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: model server returned status %d: %s",
			fingerprint.ErrUnavailable, resp.StatusCode, utils.Truncate(string(payload), 256))
	}

	fp, err := decodeFingerprint(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", fingerprint.ErrUnavailable, err)
	}

	return fp, nil
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) encodeImage(filename string, image []byte) (io.Reader, string, error) {
	filename = path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if filename == "." || filename == "/" {
		filename = DefaultFilename
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(c.field), quoteEscaper.Replace(filename)))
	h.Set("Content-Type", http.DetectContentType(image))

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}

	return &buf, mw.FormDataContentType(), nil
}

// decodeFingerprint accepts exactly one flat JSON array of numbers.
// Null elements are rejected rather than decoded as zero.
func decodeFingerprint(payload []byte) (vec.Vector, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))

	var raw []*float64
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after fingerprint array")
	}

	if raw == nil {
		return nil, errors.New("response is not an array")
	}
	if len(raw) == 0 {
		return nil, errors.New("empty fingerprint")
	}

	fp := make(vec.Vector, len(raw))
	for i, v := range raw {
		if v == nil {
			return nil, fmt.Errorf("element %d is null", i)
		}
		fp[i] = *v
	}

	return fp, nil
}

var (
	_ fingerprint.Fingerprinter     = (*Client)(nil)
	_ fingerprint.FileFingerprinter = (*Client)(nil)
)
