package live

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chriscow/eco-go/pkg/speech"
)

// Capabilities is the set of optional platform features the loop can use.
type Capabilities struct {
	SpeechOutput bool
	SpeechInput  bool
}

// DispatchGate is the global speech throttle. Two accepted dispatches are never
// closer than the cooldown, whatever their text. A new dispatch preempts any
// utterance still playing. It is safe for concurrent use.
type DispatchGate struct {
	speaker  speech.Speaker
	canSpeak bool
	cooldown time.Duration
	logger   *slog.Logger

	enabled atomic.Bool

	mu           sync.Mutex
	lastSpokenAt time.Time
	spoken       bool
}

// NewDispatchGate creates a gate. A nil speaker disables output regardless of caps.
func NewDispatchGate(speaker speech.Speaker, caps Capabilities, cooldown time.Duration, logger *slog.Logger) *DispatchGate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &DispatchGate{
		speaker:  speaker,
		canSpeak: caps.SpeechOutput && speaker != nil,
		cooldown: cooldown,
		logger:   logger,
	}
	g.enabled.Store(true)
	return g
}

// TryDispatch requests speech for text at now. It returns true iff speech was
// actually requested. An absent or muted speech output is not an error.
func (g *DispatchGate) TryDispatch(text string, now time.Time) bool {
	if text == "" || !g.canSpeak || !g.enabled.Load() {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.spoken && now.Sub(g.lastSpokenAt) < g.cooldown {
		return false
	}
	g.lastSpokenAt = now
	g.spoken = true

	g.speaker.Cancel()
	if err := g.speaker.Speak(text); err != nil {
		// the cooldown slot stays consumed
		g.logger.Warn("speech request failed", "error", err)
	}
	return true
}

// SetEnabled mutes or unmutes speech output.
func (g *DispatchGate) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
	if !enabled && g.canSpeak {
		g.speaker.Cancel()
	}
}

// Enabled reports whether speech output is unmuted.
func (g *DispatchGate) Enabled() bool {
	return g.enabled.Load()
}

// CanSpeak reports whether a speech output is present.
func (g *DispatchGate) CanSpeak() bool {
	return g.canSpeak
}

// LastSpokenAt returns the time of the last accepted dispatch.
func (g *DispatchGate) LastSpokenAt() (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastSpokenAt, g.spoken
}

// Reset forgets the dispatch history.
func (g *DispatchGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastSpokenAt = time.Time{}
	g.spoken = false
}
