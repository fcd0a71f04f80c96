// Package rank orders labelled fingerprints by their distance to a query
// fingerprint. It is a pure, in-process linear scan: every candidate is
// measured, then the candidates are stably sorted by ascending distance.
package rank

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/authorid/authorid/pkg/vec"
)

// ErrDimensionMismatch is returned when a candidate fingerprint does not have
// the same number of dimensions as the query.
var ErrDimensionMismatch = errors.New("fingerprint dimension mismatch")

// DimensionMismatchError identifies the candidate that aborted a ranking call.
type DimensionMismatchError struct {
	// ID is the identifier of the offending candidate.
	ID string

	// Want is the query's dimensionality.
	Want int

	// Got is the candidate's dimensionality.
	Got int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: candidate %q has %d dimensions, query has %d",
		ErrDimensionMismatch, e.ID, e.Got, e.Want)
}

// Is reports ErrDimensionMismatch as the sentinel for this error.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// Candidate is a labelled fingerprint considered for ranking.
type Candidate struct {
	// ID identifies the labelled sample the fingerprint belongs to.
	ID string

	// Fingerprint is the stored vector for the sample.
	Fingerprint vec.Vector
}

// Result is a ranked candidate together with its distance to the query.
type Result struct {
	ID       string
	Distance float64
}

// RankWithDistances measures every candidate against query and returns them
// ordered by ascending distance. Candidates at equal distance keep their
// relative input order.
//
// A candidate whose dimensionality differs from the query aborts the whole
// call; no partial ranking is returned.
func RankWithDistances(query vec.Vector, candidates []Candidate) ([]Result, error) {
	results := make([]Result, 0, len(candidates))

	for _, c := range candidates {
		if len(c.Fingerprint) != len(query) {
			return nil, &DimensionMismatchError{
				ID:   c.ID,
				Want: len(query),
				Got:  len(c.Fingerprint),
			}
		}

		d, err := vec.Distance(query, c.Fingerprint)
		if err != nil {
			return nil, fmt.Errorf("measuring candidate %q: %w", c.ID, err)
		}

		results = append(results, Result{ID: c.ID, Distance: d})
	}

	slices.SortStableFunc(results, func(a, b Result) int {
		return cmp.Compare(a.Distance, b.Distance)
	})

	return results, nil
}

// Rank is RankWithDistances with the distances projected out: it returns only
// the candidate IDs, nearest first.
func Rank(query vec.Vector, candidates []Candidate) ([]string, error) {
	results, err := RankWithDistances(query, candidates)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}

	return ids, nil
}
