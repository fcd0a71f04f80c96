// Package identify answers "who wrote this?" for a query image: it fingerprints
// the image, ranks the user's labelled samples by distance and shapes the
// result for the API.
package identify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/authorid/authorid/pkg/fingerprint"
	"github.com/authorid/authorid/pkg/rank"
	"github.com/authorid/authorid/pkg/sample"
	"github.com/authorid/authorid/pkg/storage"
)

// Input represents the arguments of an identification request.
type Input struct {
	// UserID scopes the reference set to one user's samples.
	UserID string

	// Image is the raw query image.
	Image []byte

	// Filename is the uploaded file's name, forwarded to the model server.
	Filename string

	// WithDistances populates Match.Distance.
	WithDistances bool

	// TopK truncates the ranked list when positive.
	TopK int
}

// Match is one labelled sample in ranked order.
type Match struct {
	SampleID string   `json:"sample_id"`
	Label    string   `json:"label"`
	Filename string   `json:"filename,omitempty"`
	Distance *float64 `json:"distance,omitempty"`
}

// Output represents the result of an identification request.
type Output struct {
	Results []Match `json:"results"`
	Count   int     `json:"count"`
}

// Identify fingerprints in.Image and ranks the user's stored samples against
// it, closest first. A fingerprint failure is returned before storage is read;
// the error wraps fingerprint.ErrUnavailable. Inconsistent stored fingerprints
// surface as rank.ErrDimensionMismatch.
func Identify(
	ctx context.Context,
	in Input,
	fingerprinter fingerprint.Fingerprinter,
	samples storage.SampleStore,
	logger *slog.Logger,
) (*Output, error) {
	if len(in.Image) == 0 {
		return nil, errors.New("identify: empty query image")
	}

	query, err := fingerprint.Of(ctx, fingerprinter, in.Filename, in.Image)
	if err != nil {
		return nil, fmt.Errorf("fingerprinting query image: %w", err)
	}

	stored, err := samples.ListSamples(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading samples for user %s: %w", in.UserID, err)
	}

	logger.Debug("ranking samples",
		"user_id", in.UserID,
		"samples", len(stored),
		"dimensions", query.Dimensions(),
	)

	ranked, err := rank.RankWithDistances(query, sample.Candidates(stored))
	if err != nil {
		return nil, err
	}

	if in.TopK > 0 && len(ranked) > in.TopK {
		ranked = ranked[:in.TopK]
	}

	byID := make(map[string]*sample.LabelledSample, len(stored))
	for _, s := range stored {
		byID[s.ID] = s
	}

	results := make([]Match, 0, len(ranked))
	for _, r := range ranked {
		s := byID[r.ID]
		m := Match{
			SampleID: s.ID,
			Label:    s.Label,
			Filename: s.Filename,
		}
		if in.WithDistances {
			d := r.Distance
			m.Distance = &d
		}
		results = append(results, m)
	}

	return &Output{
		Results: results,
		Count:   len(results),
	}, nil
}
