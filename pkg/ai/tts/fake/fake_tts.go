package fake

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/chriscow/eco-go/pkg/ai/tts"
	"github.com/chriscow/eco-go/pkg/rtc"
)

const sampleRate = 16000

// FakeTTS synthesizes a quiet sine tone whose length grows with the text.
type FakeTTS struct {
	// FramesPerRune controls utterance length. Zero means one 10ms frame per rune.
	FramesPerRune int
	// Realtime paces frames at 10ms each, like a playback device would.
	Realtime bool
	// Err is returned from Synthesize when set.
	Err error

	mu    sync.Mutex
	texts []string
}

// NewFakeTTS creates a new fake TTS provider.
func NewFakeTTS() *FakeTTS {
	return &FakeTTS{}
}

// Synthesize generates fake audio frames for the given text.
func (f *FakeTTS) Synthesize(ctx context.Context, req tts.SynthesizeRequest) (<-chan rtc.AudioFrame, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if req.Text == "" {
		return nil, errors.New("fake tts: empty text")
	}

	f.mu.Lock()
	f.texts = append(f.texts, req.Text)
	f.mu.Unlock()

	per := f.FramesPerRune
	if per <= 0 {
		per = 1
	}
	frameCount := len([]rune(req.Text)) * per

	output := make(chan rtc.AudioFrame, 10)
	go func() {
		defer close(output)

		samples := sampleRate / 100
		for i := 0; i < frameCount; i++ {
			data := make([]byte, samples*2)
			for j := 0; j < samples; j++ {
				n := i*samples + j
				v := int16(0.3 * 32767 * math.Sin(2*math.Pi*440*float64(n)/sampleRate))
				data[j*2] = byte(v)
				data[j*2+1] = byte(v >> 8)
			}

			frame, err := rtc.NewAudioFrame(data, sampleRate, 1, time.Duration(i)*10*time.Millisecond)
			if err != nil {
				return
			}
			select {
			case output <- *frame:
			case <-ctx.Done():
				return
			}

			if f.Realtime {
				select {
				case <-time.After(10 * time.Millisecond):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return output, nil
}

// Texts returns every text passed to Synthesize, in order.
func (f *FakeTTS) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.texts))
	copy(out, f.texts)
	return out
}

// Capabilities returns the fake TTS capabilities.
func (f *FakeTTS) Capabilities() tts.Capabilities {
	return tts.Capabilities{
		Streaming:          true,
		SupportedLanguages: []string{"en-US", "es-ES"},
		SupportedVoices:    []string{"fake-voice"},
		SampleRate:         sampleRate,
	}
}
