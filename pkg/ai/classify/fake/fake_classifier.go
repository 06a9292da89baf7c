package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chriscow/eco-go/pkg/ai/classify"
	"github.com/chriscow/eco-go/pkg/rtc"
)

// DefaultLabels are the labels reported by a fake classifier built without a script.
var DefaultLabels = []string{"Organic", "Inorganic", "NoWaste"}

// Step is one scripted classifier answer. Exactly one of Result or Err is used.
type Step struct {
	Result classify.Result
	Err    error
}

// FakeClassifier replays a script of results. When the script is exhausted the
// last step repeats. It is safe for concurrent use.
type FakeClassifier struct {
	mu      sync.Mutex
	steps   []Step
	pos     int
	calls   int
	delay   time.Duration
	loadErr error
	loaded  bool
	frames  []uint64
	labels  []string
}

// NewFakeClassifier creates a fake classifier that replays the given steps.
func NewFakeClassifier(steps ...Step) *FakeClassifier {
	if len(steps) == 0 {
		steps = []Step{{Result: classify.Result{{Label: "NoWaste", Confidence: 1}}}}
	}
	return &FakeClassifier{steps: steps, labels: DefaultLabels}
}

// Results builds a script of successful steps, one per result.
func Results(results ...classify.Result) []Step {
	steps := make([]Step, len(results))
	for i, r := range results {
		steps[i] = Step{Result: r}
	}
	return steps
}

// Single returns a one-prediction result.
func Single(label string, confidence float64) classify.Result {
	return classify.Result{{Label: label, Confidence: confidence}}
}

// WithDelay makes every Predict call block for d (or until ctx is done).
func (f *FakeClassifier) WithDelay(d time.Duration) *FakeClassifier {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
	return f
}

// WithLoadError makes Load fail with err.
func (f *FakeClassifier) WithLoadError(err error) *FakeClassifier {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadErr = err
	return f
}

// Load implements classify.Loader.
func (f *FakeClassifier) Load(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return f.loadErr
	}
	f.loaded = true
	return nil
}

// Loaded reports whether Load succeeded at least once.
func (f *FakeClassifier) Loaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

// Predict returns the next scripted step.
func (f *FakeClassifier) Predict(ctx context.Context, frame rtc.VideoFrame) (classify.Result, error) {
	f.mu.Lock()
	step := f.steps[f.pos]
	if f.pos < len(f.steps)-1 {
		f.pos++
	}
	f.calls++
	f.frames = append(f.frames, frame.Sequence)
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if step.Err != nil {
		return nil, fmt.Errorf("fake classifier: %w", step.Err)
	}
	out := make(classify.Result, len(step.Result))
	copy(out, step.Result)
	return out, nil
}

// Calls returns the number of Predict invocations.
func (f *FakeClassifier) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Frames returns the sequence numbers of the frames passed to Predict.
func (f *FakeClassifier) Frames() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint64, len(f.frames))
	copy(out, f.frames)
	return out
}

// Capabilities returns the fake classifier capabilities.
func (f *FakeClassifier) Capabilities() classify.Capabilities {
	return classify.Capabilities{
		Labels:    f.labels,
		InputSize: 224,
	}
}
