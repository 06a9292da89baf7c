package advice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chriscow/eco-go/pkg/ai"
	"github.com/chriscow/eco-go/pkg/ai/stt"
)

// Answer sources.
const (
	SourceKeyword  = "keyword"
	SourceRemote   = "remote"
	SourceFallback = "fallback"
)

// ErrEmptyQuestion is returned for a blank question.
var ErrEmptyQuestion = errors.New("empty question")

// Dispatcher speaks an answer. live.Controller satisfies it, so answers share
// the announcement cooldown.
type Dispatcher interface {
	Say(text string) bool
}

// Answer is the outcome of one question.
type Answer struct {
	Question string `json:"question"`
	Text     string `json:"text"`
	Source   string `json:"source"`
	Spoken   bool   `json:"spoken"`
}

// AssistantConfig configures an Assistant.
type AssistantConfig struct {
	Book       *Book
	Remote     *Remote    // optional, consulted when no keyword matches
	Dispatcher Dispatcher // optional
	STT        stt.STT    // optional, enables spoken questions
	Language   string     // recognition language hint
	Logger     *slog.Logger
}

// Assistant answers typed and spoken questions.
type Assistant struct {
	cfg    AssistantConfig
	logger *slog.Logger
}

// NewAssistant creates an Assistant.
func NewAssistant(cfg AssistantConfig) (*Assistant, error) {
	if cfg.Book == nil {
		return nil, errors.New("advice book is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Assistant{cfg: cfg, logger: cfg.Logger.With("component", "assistant")}, nil
}

// CanListen reports whether spoken questions are supported.
func (a *Assistant) CanListen() bool {
	return a.cfg.STT != nil
}

// Ask answers question: keyword table first, then the remote assistant, then
// the book's fallback. The answer is spoken through the dispatcher when present.
func (a *Assistant) Ask(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}

	ans := Answer{Question: question}
	if text, ok := a.cfg.Book.Match(question); ok {
		ans.Text, ans.Source = text, SourceKeyword
	} else if a.cfg.Remote != nil {
		text, err := a.cfg.Remote.Ask(ctx, question)
		if err != nil {
			ans.Text, ans.Source = a.remoteFallback(), SourceFallback
		} else {
			ans.Text, ans.Source = text, SourceRemote
		}
	} else {
		ans.Text, ans.Source = a.cfg.Book.Fallback, SourceFallback
	}

	if a.cfg.Dispatcher != nil {
		ans.Spoken = a.cfg.Dispatcher.Say(ans.Text)
	}
	a.logger.Info("question answered", "source", ans.Source, "spoken", ans.Spoken)
	return ans, nil
}

// Listen transcribes a spoken question and answers it.
func (a *Assistant) Listen(ctx context.Context, u stt.Utterance) (Answer, error) {
	if a.cfg.STT == nil {
		return Answer{}, fmt.Errorf("speech input: %w", ai.ErrSpeechUnavailable)
	}
	if u.Lang == "" {
		u.Lang = a.cfg.Language
	}
	tr, err := a.cfg.STT.Transcribe(ctx, u)
	if err != nil {
		return Answer{}, fmt.Errorf("transcribe question: %w", err)
	}
	a.logger.Debug("question transcribed", "text", tr.Text, "language", tr.Language)
	return a.Ask(ctx, tr.Text)
}

func (a *Assistant) remoteFallback() string {
	if a.cfg.Book.RemoteFallback != "" {
		return a.cfg.Book.RemoteFallback
	}
	return a.cfg.Book.Fallback
}
