package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chriscow/eco-go/pkg/ai/tts"
	"github.com/chriscow/eco-go/pkg/rtc"
)

// pcmSampleRate is the rate of the API's raw PCM output (16-bit mono).
const pcmSampleRate = 24000

// SpeechTTS implements tts.TTS with the audio speech API.
type SpeechTTS struct {
	client *openai.Client
	model  string
	voice  string
}

// NewSpeechTTS creates a text-to-speech provider.
func NewSpeechTTS(cfg Config) (*SpeechTTS, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = string(openai.TTSModel1)
	}
	voice := cfg.Voice
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}
	return &SpeechTTS{client: newClient(cfg), model: model, voice: voice}, nil
}

// Synthesize requests raw PCM and streams it as 10ms frames. The request is
// made before returning so API errors surface to the caller.
func (o *SpeechTTS) Synthesize(ctx context.Context, req tts.SynthesizeRequest) (<-chan rtc.AudioFrame, error) {
	if req.Text == "" {
		return nil, errors.New("empty text")
	}

	speechReq := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.model),
		Input:          req.Text,
		Voice:          openai.SpeechVoice(o.getVoice(req.Voice)),
		ResponseFormat: openai.SpeechResponseFormatPcm,
	}
	if req.Speed > 0 {
		speechReq.Speed = float64(req.Speed)
	}

	resp, err := o.client.CreateSpeech(ctx, speechReq)
	if err != nil {
		return nil, classifyError(err, "speech request failed")
	}

	frames := make(chan rtc.AudioFrame, 10)
	go func() {
		defer close(frames)
		defer resp.Close()

		const samplesPerFrame = pcmSampleRate / 100
		var ts time.Duration
		for {
			buf := make([]byte, samplesPerFrame*2)
			n, err := io.ReadFull(resp, buf)
			n -= n % 2
			if n > 0 {
				frame := rtc.AudioFrame{
					Data:              buf[:n],
					SampleRate:        pcmSampleRate,
					SamplesPerChannel: n / 2,
					NumChannels:       1,
					Timestamp:         ts,
				}
				ts += frame.Duration()
				select {
				case frames <- frame:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
					slog.Warn("Error reading TTS response", slog.String("error", err.Error()))
				}
				return
			}
		}
	}()
	return frames, nil
}

func (o *SpeechTTS) getVoice(requestVoice string) string {
	if requestVoice != "" {
		return requestVoice
	}
	return o.voice
}

// Capabilities returns the provider's capabilities.
func (o *SpeechTTS) Capabilities() tts.Capabilities {
	return tts.Capabilities{
		Streaming:          true,
		SupportedLanguages: []string{"en", "es", "fr", "de", "it", "pt", "ru", "ja", "ko", "zh"},
		SupportedVoices:    []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"},
		SampleRate:         pcmSampleRate,
	}
}
