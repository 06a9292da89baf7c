// Package openai provides OpenAI-backed providers: chat completion for remote
// advice, text-to-speech for announcements and Whisper for spoken questions.
package openai

import (
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chriscow/eco-go/pkg/ai"
	"github.com/chriscow/eco-go/pkg/plugin"
)

// Config holds settings shared by every OpenAI provider.
type Config struct {
	APIKey   string `json:"api_key"`
	BaseURL  string `json:"base_url"` // optional, for proxies and compatible servers
	Model    string `json:"model"`
	Voice    string `json:"voice"`    // TTS only
	Language string `json:"language"` // STT only, empty for auto-detect
}

func configFrom(cfg map[string]any) (Config, error) {
	c := Config{
		APIKey:   plugin.StringOrEnv(cfg, "api_key", "OPENAI_API_KEY", ""),
		BaseURL:  plugin.StringOrEnv(cfg, "base_url", "OPENAI_BASE_URL", ""),
		Model:    plugin.String(cfg, "model", ""),
		Voice:    plugin.String(cfg, "voice", ""),
		Language: plugin.String(cfg, "language", ""),
	}
	if c.APIKey == "" {
		return c, fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY environment variable or provide api_key in config)")
	}
	return c, nil
}

func newClient(c Config) *openai.Client {
	clientCfg := openai.DefaultConfig(c.APIKey)
	if c.BaseURL != "" {
		clientCfg.BaseURL = c.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// classifyError tags API errors as recoverable (rate limits, server errors,
// transport failures) or fatal (everything the server rejected).
func classifyError(err error, op string) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500 {
			return ai.NewRecoverableError(err, op)
		}
		return ai.NewFatalError(err, op)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500 {
			return ai.NewRecoverableError(err, op)
		}
		return ai.NewFatalError(err, op)
	}
	return ai.NewRecoverableError(err, op)
}

func newOpenAISTT(cfg map[string]any) (any, error) {
	c, err := configFrom(cfg)
	if err != nil {
		return nil, err
	}
	return NewWhisperSTT(c)
}

func newOpenAILLM(cfg map[string]any) (any, error) {
	c, err := configFrom(cfg)
	if err != nil {
		return nil, err
	}
	return NewChatLLM(c)
}

func newOpenAITTS(cfg map[string]any) (any, error) {
	c, err := configFrom(cfg)
	if err != nil {
		return nil, err
	}
	return NewSpeechTTS(c)
}

func init() {
	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindSTT,
		Name:        "openai",
		Factory:     newOpenAISTT,
		Description: "OpenAI Whisper speech-to-text service",
		Version:     "1.0.0",
		Config: map[string]any{
			"api_key":  "OpenAI API key (or set OPENAI_API_KEY env var)",
			"model":    openai.Whisper1,
			"language": "auto-detect (leave empty) or specify language code",
		},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindLLM,
		Name:        "openai",
		Factory:     newOpenAILLM,
		Description: "OpenAI GPT chat completion service",
		Version:     "1.0.0",
		Config: map[string]any{
			"api_key": "OpenAI API key (or set OPENAI_API_KEY env var)",
			"model":   defaultChatModel,
		},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindTTS,
		Name:        "openai",
		Factory:     newOpenAITTS,
		Description: "OpenAI text-to-speech service",
		Version:     "1.0.0",
		Config: map[string]any{
			"api_key": "OpenAI API key (or set OPENAI_API_KEY env var)",
			"model":   string(openai.TTSModel1),
			"voice":   string(openai.VoiceAlloy),
		},
	})
}
