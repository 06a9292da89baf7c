package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chriscow/eco-go/pkg/ai"
	"github.com/chriscow/eco-go/pkg/ai/tts"
)

// DefaultSynthTimeout bounds how long a provider may take to start streaming
// an utterance.
const DefaultSynthTimeout = 15 * time.Second

// SynthConfig configures a Synth.
type SynthConfig struct {
	TTS      tts.TTS
	Sink     Sink // defaults to DiscardSink
	Voice    string
	Language string
	Speed    float32
	Logger   *slog.Logger

	// Timeout bounds the Synthesize call of each utterance. Playback of the
	// returned stream is not limited. Defaults to DefaultSynthTimeout.
	Timeout time.Duration

	// OnEvent receives utterance start and end notifications. It is called from
	// the utterance goroutine and must not block.
	OnEvent func(Event)
}

// Synth is a Speaker backed by a TTS provider.
//
// Synthesis and playback run on a per-utterance goroutine, so Speak and Cancel
// never wait on the provider.
type Synth struct {
	cfg    SynthConfig
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	gen    uint64

	speaking atomic.Bool
}

// NewSynth creates a Synth.
func NewSynth(cfg SynthConfig) (*Synth, error) {
	if cfg.TTS == nil {
		return nil, fmt.Errorf("tts provider is required: %w", ai.ErrSpeechUnavailable)
	}
	if cfg.Sink == nil {
		cfg.Sink = DiscardSink{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSynthTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Synth{cfg: cfg, logger: cfg.Logger.With("component", "speech")}, nil
}

// Speak implements Speaker. Provider failures are logged and reported on the
// end Event rather than returned.
func (s *Synth) Speak(text string) error {
	if text == "" {
		return ErrEmptyText
	}

	s.mu.Lock()
	s.stopLocked()
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.speaking.Store(true)
	s.mu.Unlock()

	go s.utter(ctx, cancel, done, gen, text)
	return nil
}

func (s *Synth) utter(ctx context.Context, cancel context.CancelFunc, done chan struct{}, gen uint64, text string) {
	defer close(done)
	defer cancel()

	timer := time.AfterFunc(s.cfg.Timeout, cancel)
	frames, err := s.cfg.TTS.Synthesize(ctx, tts.SynthesizeRequest{
		Text:     text,
		Voice:    s.cfg.Voice,
		Language: s.cfg.Language,
		Speed:    s.cfg.Speed,
	})
	if !timer.Stop() {
		err = context.DeadlineExceeded
	}
	if err != nil {
		if !s.current(gen) && errors.Is(err, context.Canceled) {
			err = nil // preempted before the provider answered
		} else {
			err = fmt.Errorf("synthesize: %w", err)
			s.logger.Warn("utterance synthesis failed", "error", err)
		}
		s.finish(gen)
		s.emit(Event{Text: text, Err: err})
		return
	}

	s.emit(Event{Text: text, Start: true})
	err = s.cfg.Sink.Play(ctx, frames)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		s.logger.Warn("utterance playback failed", "error", err)
	}
	s.finish(gen)
	s.emit(Event{Text: text, Err: err})
}

// Cancel implements Speaker. It does not wait for the utterance goroutine.
func (s *Synth) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// IsSpeaking implements Speaker.
func (s *Synth) IsSpeaking() bool {
	return s.speaking.Load()
}

// Wait blocks until the most recent utterance goroutine, if any, has exited.
func (s *Synth) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stopLocked cancels the current utterance and retires its generation so a
// late finish cannot clear the flag of a newer one.
func (s *Synth) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	s.gen++
	s.speaking.Store(false)
}

func (s *Synth) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

// finish clears the speaking flag unless the utterance was superseded.
func (s *Synth) finish(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.speaking.Store(false)
		s.cancel = nil
	}
}

func (s *Synth) emit(e Event) {
	if s.cfg.OnEvent != nil {
		s.cfg.OnEvent(e)
	}
}
