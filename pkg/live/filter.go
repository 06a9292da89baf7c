package live

import "github.com/chriscow/eco-go/pkg/ai/classify"

// StabilityState is the single-owner state threaded through the loop.
// The empty string means no label.
type StabilityState struct {
	CurrentLabel     string `json:"current_label"`
	ConsecutiveCount int    `json:"consecutive_count"`
	LastSpokenLabel  string `json:"last_spoken_label"`
}

// StabilityEvent is the outcome of observing one classifier result.
type StabilityEvent struct {
	Label          string          `json:"label"`
	Confidence     float64         `json:"confidence"`
	Count          int             `json:"count"`
	ShouldAnnounce bool            `json:"should_announce"`
	Ranked         classify.Result `json:"ranked,omitempty"`
}

// StabilityFilter turns a stream of noisy results into stable verdicts: a label
// is announced once it has been the confident top label for Threshold
// consecutive samples. Any disagreement or low-confidence sample restarts the run.
type StabilityFilter struct {
	threshold  int
	background string
	state      StabilityState
}

// NewStabilityFilter creates a filter. Threshold values below 1 are treated as 1.
func NewStabilityFilter(threshold int, backgroundLabel string) *StabilityFilter {
	if threshold < 1 {
		threshold = 1
	}
	return &StabilityFilter{threshold: threshold, background: backgroundLabel}
}

// Observe folds one result into the state. confidence is the minimum
// confidence for a label to count.
func (f *StabilityFilter) Observe(result classify.Result, confidence float64) StabilityEvent {
	ranked := result.Ranked()

	if len(ranked) == 0 || ranked[0].Label == "" || ranked[0].Confidence < confidence {
		// a label change to none also clears the spoken label
		if f.state.CurrentLabel != "" {
			f.state.LastSpokenLabel = ""
		}
		f.state.CurrentLabel = ""
		f.state.ConsecutiveCount = 0
		return StabilityEvent{Ranked: ranked}
	}

	top := ranked[0]
	if top.Label == f.state.CurrentLabel {
		f.state.ConsecutiveCount++
	} else {
		f.state.CurrentLabel = top.Label
		f.state.ConsecutiveCount = 1
		f.state.LastSpokenLabel = ""
	}

	ev := StabilityEvent{
		Label:      f.state.CurrentLabel,
		Confidence: top.Confidence,
		Count:      f.state.ConsecutiveCount,
		Ranked:     ranked,
	}
	if f.state.ConsecutiveCount >= f.threshold &&
		f.state.CurrentLabel != f.state.LastSpokenLabel &&
		f.state.CurrentLabel != f.background {
		ev.ShouldAnnounce = true
		f.state.LastSpokenLabel = f.state.CurrentLabel
	}
	return ev
}

// State returns a copy of the current state.
func (f *StabilityFilter) State() StabilityState {
	return f.state
}

// Reset returns the filter to its initial empty state.
func (f *StabilityFilter) Reset() {
	f.state = StabilityState{}
}
