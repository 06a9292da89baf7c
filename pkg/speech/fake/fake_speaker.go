package fake

import (
	"sync"

	"github.com/chriscow/eco-go/pkg/speech"
)

// FakeSpeaker records what it was asked to say. Utterances never finish on
// their own; call Finish to end the current one.
type FakeSpeaker struct {
	// Err, when set, is returned from Speak.
	Err error

	mu       sync.Mutex
	spoken   []string
	cancels  int
	speaking bool
}

// NewFakeSpeaker creates a recording speaker.
func NewFakeSpeaker() *FakeSpeaker {
	return &FakeSpeaker{}
}

// Speak implements speech.Speaker.
func (f *FakeSpeaker) Speak(text string) error {
	if text == "" {
		return speech.ErrEmptyText
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.spoken = append(f.spoken, text)
	f.speaking = true
	return nil
}

// Cancel implements speech.Speaker.
func (f *FakeSpeaker) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	f.speaking = false
}

// IsSpeaking implements speech.Speaker.
func (f *FakeSpeaker) IsSpeaking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.speaking
}

// Finish ends the current utterance.
func (f *FakeSpeaker) Finish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.speaking = false
}

// Spoken returns every accepted text, in order.
func (f *FakeSpeaker) Spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.spoken))
	copy(out, f.spoken)
	return out
}

// Cancels returns how many times Cancel was called.
func (f *FakeSpeaker) Cancels() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels
}
