// Package resolver maps a noisy medicine-name utterance to the closest entry
// of the medicine catalog using a pluggable fuzzy similarity score.
package resolver

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/harithra-blueberry/aiprescription/catalog"
)

const (
	// DefaultThreshold is the minimum score for a match to count as resolved.
	DefaultThreshold = 70

	// UnknownMedicine is the display name of an unresolved utterance.
	UnknownMedicine = "Unknown Medicine"
)

var (
	ErrInvalidThreshold = errors.New("threshold must be between 0 and 100")
	ErrNilScorer        = errors.New("scorer must not be nil")
)

// Status tells whether a resolution found a catalog entry.
type Status int

const (
	Unresolved Status = iota
	Resolved
)

func (s Status) String() string {
	if s == Resolved {
		return "resolved"
	}
	return "unresolved"
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is the outcome of resolving one utterance. When Status is Resolved,
// Entry is set and Confidence is at least the resolver's threshold. When it
// is Unresolved, Entry is nil and Confidence holds the best score seen.
type Result struct {
	Entry      *catalog.Entry
	Confidence int
	Status     Status
}

// Name is the matched medicine's display name, or UnknownMedicine.
func (r Result) Name() string {
	if r.Status == Resolved && r.Entry != nil {
		return r.Entry.Name
	}
	return UnknownMedicine
}

// MarshalJSON implements json.Marshaler.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Status     Status         `json:"status"`
		Name       string         `json:"name"`
		Confidence int            `json:"confidence"`
		Medicine   *catalog.Entry `json:"medicine"`
	}{
		Status:     r.Status,
		Name:       r.Name(),
		Confidence: r.Confidence,
		Medicine:   r.Entry,
	})
}

// Resolver matches utterances against a catalog. It holds no mutable state
// and is safe for concurrent use.
type Resolver struct {
	scorer    Scorer
	threshold int
}

// New creates a resolver. The threshold must be within [0, 100].
func New(scorer Scorer, threshold int) (*Resolver, error) {
	if scorer == nil {
		return nil, ErrNilScorer
	}
	if threshold < 0 || threshold > 100 {
		return nil, fmt.Errorf("%w, got: %d", ErrInvalidThreshold, threshold)
	}
	return &Resolver{scorer: scorer, threshold: threshold}, nil
}

// Default returns a resolver using TokenScorer and DefaultThreshold.
func Default() *Resolver {
	return &Resolver{scorer: TokenScorer{}, threshold: DefaultThreshold}
}

// Threshold returns the configured minimum score.
func (r *Resolver) Threshold() int {
	return r.threshold
}

// Resolve scores candidate against every catalog name and returns the best
// entry. Ties keep the entry that comes first in catalog order.
func (r *Resolver) Resolve(candidate string, cat *catalog.Catalog) Result {
	best := -1
	bestScore := 0

	for i := 0; i < cat.Len(); i++ {
		score := clamp(r.scorer.Score(candidate, cat.At(i).Name))
		if best == -1 || score > bestScore {
			best = i
			bestScore = score
		}
	}

	if best == -1 || bestScore < r.threshold {
		return Result{Confidence: bestScore, Status: Unresolved}
	}

	entry := cat.At(best)
	return Result{Entry: &entry, Confidence: bestScore, Status: Resolved}
}

func clamp(score int) int {
	return min(max(score, 0), 100)
}
