package speech

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/chriscow/eco-go/pkg/audio/wav"
	"github.com/chriscow/eco-go/pkg/rtc"
)

// Sink consumes the frames of one utterance. Play returns when frames is
// drained or ctx is cancelled.
type Sink interface {
	Play(ctx context.Context, frames <-chan rtc.AudioFrame) error
}

// DiscardSink drains frames, optionally at playback pace so that IsSpeaking
// reflects how long the utterance would be audible.
type DiscardSink struct {
	Realtime bool
}

// Play implements Sink.
func (s DiscardSink) Play(ctx context.Context, frames <-chan rtc.AudioFrame) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			if s.Realtime {
				select {
				case <-time.After(f.Duration()):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// WAVSink writes every utterance to its own numbered WAV file in Dir.
type WAVSink struct {
	Dir string
	n   atomic.Uint64
}

// NewWAVSink creates dir if needed.
func NewWAVSink(dir string) (*WAVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create speech output dir: %w", err)
	}
	return &WAVSink{Dir: dir}, nil
}

// Play implements Sink. A cancelled utterance keeps the audio written so far.
func (s *WAVSink) Play(ctx context.Context, frames <-chan rtc.AudioFrame) error {
	var w *wav.Writer
	defer func() {
		if w != nil {
			w.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-frames:
			if !ok {
				if w == nil {
					return nil
				}
				err := w.Close()
				w = nil
				return err
			}
			if w == nil {
				path := filepath.Join(s.Dir, fmt.Sprintf("utterance-%04d.wav", s.n.Add(1)))
				var err error
				if w, err = wav.Create(path, f.SampleRate, f.NumChannels); err != nil {
					return err
				}
			}
			if err := w.WriteFrame(f); err != nil {
				return err
			}
		}
	}
}
