// Package speech is the speech output port of the live loop.
//
// A Speaker turns text into audible speech. Only one utterance is audible at a
// time: Speak preempts whatever is playing. Synth implements Speaker on top of
// any tts.TTS provider and a Sink that consumes the synthesized frames.
package speech

import "errors"

// ErrEmptyText is returned when asked to speak nothing.
var ErrEmptyText = errors.New("speech: empty text")

// Speaker is the speech output port.
type Speaker interface {
	// Speak starts speaking text, cancelling any in-flight utterance first.
	// It returns at once: synthesis and playback happen in the background.
	Speak(text string) error

	// Cancel stops the current utterance, if any.
	Cancel()

	// IsSpeaking reports whether an utterance is playing.
	IsSpeaking() bool
}

// Event is a start or end notification for one utterance.
type Event struct {
	Text  string
	Start bool  // false for end events
	Err   error // set on end events that failed
}
