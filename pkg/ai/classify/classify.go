// Package classify defines the image classifier port consumed by the live loop.
// A classifier is an opaque, possibly slow oracle: given a frame it returns a set
// of (label, confidence) pairs.
package classify

import (
	"context"
	"sort"

	"github.com/chriscow/eco-go/pkg/ai"
	"github.com/chriscow/eco-go/pkg/rtc"
)

// Classifier-specific error variables
var (
	// ErrRecoverable indicates a temporary classifier failure that may succeed if retried.
	// Examples: remote endpoint timeout, inference overload.
	ErrRecoverable = ai.ErrRecoverable

	// ErrFatal indicates a permanent classifier failure.
	// Examples: model file missing, unsupported input shape.
	ErrFatal = ai.ErrFatal
)

// Prediction is one scored label.
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Result is the set of predictions produced for a single frame.
// Confidences need not sum to 1.
type Result []Prediction

// Ranked returns a copy sorted by descending confidence. Ties keep classifier order.
func (r Result) Ranked() Result {
	ranked := make(Result, len(r))
	copy(ranked, r)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})
	return ranked
}

// Top returns the highest scoring prediction with a non-empty label.
func (r Result) Top() (Prediction, bool) {
	var best Prediction
	found := false
	for _, p := range r {
		if p.Label == "" {
			continue
		}
		if !found || p.Confidence > best.Confidence {
			best = p
			found = true
		}
	}
	return best, found
}

// Above returns the ranked predictions whose confidence is at least threshold.
func (r Result) Above(threshold float64) Result {
	var out Result
	for _, p := range r.Ranked() {
		if p.Confidence >= threshold {
			out = append(out, p)
		}
	}
	return out
}

// Capabilities describes a classifier.
type Capabilities struct {
	Labels    []string // known output labels, in model order
	InputSize int      // square input edge in pixels, 0 when the provider resizes itself
	Remote    bool     // predictions leave the process
}

// Classifier is the main interface for image classification providers.
type Classifier interface {
	// Predict classifies a frame. Implementations must tolerate being called
	// with any decoded image and return an error instead of panicking.
	Predict(ctx context.Context, frame rtc.VideoFrame) (Result, error)

	// Capabilities returns the provider's capabilities.
	Capabilities() Capabilities
}

// Loader is implemented by classifiers with an expensive initialization step
// (model load, runtime init). The live loop calls Load before entering Running.
type Loader interface {
	Load(ctx context.Context) error
}

// Closer is implemented by classifiers that hold native resources.
type Closer interface {
	Close() error
}
