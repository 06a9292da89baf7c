package openai

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chriscow/eco-go/pkg/ai"
	"github.com/chriscow/eco-go/pkg/ai/stt"
	"github.com/chriscow/eco-go/pkg/audio/wav"
)

// WhisperSTT implements stt.STT with OpenAI's Whisper API.
type WhisperSTT struct {
	client   *openai.Client
	model    string
	language string
}

// NewWhisperSTT creates a Whisper provider.
func NewWhisperSTT(cfg Config) (*WhisperSTT, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperSTT{
		client:   newClient(cfg),
		model:    model,
		language: cfg.Language,
	}, nil
}

// Transcribe uploads the utterance as a WAV file.
func (w *WhisperSTT) Transcribe(ctx context.Context, u stt.Utterance) (stt.Transcript, error) {
	// the API rejects clips shorter than 0.1s
	if u.Duration() < stt.MinUtterance {
		return stt.Transcript{}, ai.NewFatalError(nil, fmt.Sprintf("utterance too short: %v", u.Duration()))
	}

	wavData, err := wav.Encode(u.Frames)
	if err != nil {
		return stt.Transcript{}, ai.NewFatalError(err, "failed to encode utterance")
	}

	language := u.Lang
	if language == "" {
		language = w.language
	}
	if len(language) > 2 {
		language = language[:2] // Whisper takes ISO-639-1
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		Language: language,
		Format:   openai.AudioResponseFormatJSON,
		Reader:   bytes.NewReader(wavData),
		FilePath: "question.wav",
	})
	if err != nil {
		return stt.Transcript{}, classifyError(err, "transcription failed")
	}

	slog.Debug("Whisper transcription result", slog.String("text", resp.Text))
	if resp.Language != "" {
		language = resp.Language
	}
	return stt.Transcript{Text: resp.Text, Language: language}, nil
}

// Capabilities returns the provider's capabilities.
func (w *WhisperSTT) Capabilities() stt.Capabilities {
	return stt.Capabilities{
		SupportedLanguages: []string{
			"en", "zh", "de", "es", "ru", "ko", "fr", "ja", "pt", "tr", "pl", "ca", "nl",
			"ar", "sv", "it", "id", "hi", "fi", "vi", "he", "uk", "el", "ms", "cs", "ro",
			"da", "hu", "ta", "no", "th", "ur", "hr", "bg", "lt", "la", "mi", "ml", "cy",
		},
		SampleRates: []int{16000, 22050, 24000, 44100, 48000},
	}
}
