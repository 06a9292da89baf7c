package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/chriscow/eco-go/pkg/ai/stt"
)

// DefaultTranscript is used when no transcript is provided.
const DefaultTranscript = "where does a plastic bottle go"

// FakeSTT returns a fixed transcript for any utterance long enough to recognize.
type FakeSTT struct {
	transcript string

	mu    sync.Mutex
	calls int
}

// NewFakeSTT creates a new fake STT provider with a fixed transcript.
func NewFakeSTT(transcript string) *FakeSTT {
	if transcript == "" {
		transcript = DefaultTranscript
	}
	return &FakeSTT{transcript: transcript}
}

// Transcribe returns the configured transcript.
func (f *FakeSTT) Transcribe(ctx context.Context, u stt.Utterance) (stt.Transcript, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return stt.Transcript{}, err
	}
	if d := u.Duration(); d < stt.MinUtterance {
		return stt.Transcript{}, fmt.Errorf("utterance too short (%s): %w", d, stt.ErrFatal)
	}

	lang := u.Lang
	if lang == "" {
		lang = "en"
	}
	return stt.Transcript{Text: f.transcript, Language: lang}, nil
}

// Calls returns the number of Transcribe invocations.
func (f *FakeSTT) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Capabilities returns the fake STT capabilities.
func (f *FakeSTT) Capabilities() stt.Capabilities {
	return stt.Capabilities{
		SupportedLanguages: []string{"en", "es"},
		SampleRates:        []int{16000, 48000},
	}
}
