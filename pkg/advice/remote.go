package advice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chriscow/eco-go/pkg/ai"
	"github.com/chriscow/eco-go/pkg/ai/llm"
)

// DefaultSystemPrompt frames the remote assistant.
const DefaultSystemPrompt = "You are a friendly recycling assistant. Answer questions about waste " +
	"sorting, recycling and composting in at most three short sentences suitable for being read aloud. " +
	"Answer in the language of the question."

// RemoteConfig configures a Remote advisor.
type RemoteConfig struct {
	LLM          llm.LLM
	SystemPrompt string
	MaxTokens    int
	Timeout      time.Duration // per attempt, default 8s
	Retry        ai.RetryConfig
	Logger       *slog.Logger
}

// Remote answers free-form questions with a chat completion.
type Remote struct {
	cfg    RemoteConfig
	logger *slog.Logger
}

// NewRemote creates a remote advisor.
func NewRemote(cfg RemoteConfig) (*Remote, error) {
	if cfg.LLM == nil {
		return nil, errors.New("llm provider is required")
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 200
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.Retry == (ai.RetryConfig{}) {
		cfg.Retry = ai.DefaultRetryConfig
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Remote{cfg: cfg, logger: cfg.Logger.With("component", "advice.remote")}, nil
}

// Ask sends question to the LLM. Every failure, including an empty answer,
// is reported as ai.ErrRemoteAdviceFailed.
func (r *Remote) Ask(ctx context.Context, question string) (string, error) {
	req := llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: r.cfg.SystemPrompt},
			{Role: llm.RoleUser, Content: question},
		},
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: 0.3,
	}

	var answer string
	err := ai.Retry(ctx, r.cfg.Retry, r.logger, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()

		resp, err := r.cfg.LLM.Chat(callCtx, req)
		if err != nil {
			return err
		}
		answer = strings.TrimSpace(resp.Message.Content)
		if answer == "" {
			return ai.NewFatalError(errors.New("empty answer"), "assistant")
		}
		return nil
	})
	if err != nil {
		r.logger.Warn("remote advice failed", "error", err)
		return "", fmt.Errorf("%w: %w", ai.ErrRemoteAdviceFailed, err)
	}
	return answer, nil
}
