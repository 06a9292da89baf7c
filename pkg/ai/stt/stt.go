// Package stt defines the speech-to-text port used for spoken questions.
// A question is a bounded utterance, so recognition is a single request over
// the collected audio rather than an open stream.
package stt

import (
	"context"
	"time"

	"github.com/chriscow/eco-go/pkg/ai"
	"github.com/chriscow/eco-go/pkg/rtc"
)

var (
	// ErrRecoverable indicates a temporary STT failure that may succeed if retried.
	// Examples: network timeout, service unavailable, rate limiting.
	ErrRecoverable = ai.ErrRecoverable

	// ErrFatal indicates a permanent STT failure that will not succeed if retried.
	// Examples: invalid audio format, unsupported language, authentication failure.
	ErrFatal = ai.ErrFatal
)

// MinUtterance is the shortest audio accepted for recognition.
const MinUtterance = 100 * time.Millisecond

// Utterance is a complete spoken question.
type Utterance struct {
	Frames []rtc.AudioFrame
	Lang   string // BCP-47, empty for auto-detect
}

// Duration returns the summed duration of all frames.
func (u Utterance) Duration() time.Duration {
	var d time.Duration
	for _, f := range u.Frames {
		d += f.Duration()
	}
	return d
}

// Transcript is the recognition result.
type Transcript struct {
	Text     string
	Language string
}

// Capabilities describes an STT provider.
type Capabilities struct {
	SupportedLanguages []string
	SampleRates        []int
}

// STT is the main interface for speech-to-text providers.
type STT interface {
	// Transcribe recognizes a complete utterance.
	Transcribe(ctx context.Context, u Utterance) (Transcript, error)

	// Capabilities returns the provider's capabilities.
	Capabilities() Capabilities
}
