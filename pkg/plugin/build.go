package plugin

import (
	"errors"
	"fmt"

	"github.com/chriscow/eco-go/pkg/ai/classify"
	"github.com/chriscow/eco-go/pkg/ai/llm"
	"github.com/chriscow/eco-go/pkg/ai/stt"
	"github.com/chriscow/eco-go/pkg/ai/tts"
	"github.com/chriscow/eco-go/pkg/source"
)

// ErrNotFound is returned when no plugin is registered under a kind and name.
var ErrNotFound = errors.New("plugin not found")

func build[T any](r *Registry, kind, name string, cfg map[string]any) (T, error) {
	var zero T
	factory, ok := r.Get(kind, name)
	if !ok {
		return zero, fmt.Errorf("%w: %s/%s", ErrNotFound, kind, name)
	}
	if cfg == nil {
		cfg = map[string]any{}
	}
	v, err := factory(cfg)
	if err != nil {
		return zero, fmt.Errorf("failed to create %s/%s: %w", kind, name, err)
	}
	provider, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("plugin %s/%s returned %T, which is not a %s provider", kind, name, v, kind)
	}
	return provider, nil
}

// Classifier builds a classifier provider.
func (r *Registry) Classifier(name string, cfg map[string]any) (classify.Classifier, error) {
	return build[classify.Classifier](r, KindClassifier, name, cfg)
}

// Source builds a frame source provider.
func (r *Registry) Source(name string, cfg map[string]any) (source.Source, error) {
	return build[source.Source](r, KindSource, name, cfg)
}

// TTS builds a text-to-speech provider.
func (r *Registry) TTS(name string, cfg map[string]any) (tts.TTS, error) {
	return build[tts.TTS](r, KindTTS, name, cfg)
}

// STT builds a speech-to-text provider.
func (r *Registry) STT(name string, cfg map[string]any) (stt.STT, error) {
	return build[stt.STT](r, KindSTT, name, cfg)
}

// LLM builds a language model provider.
func (r *Registry) LLM(name string, cfg map[string]any) (llm.LLM, error) {
	return build[llm.LLM](r, KindLLM, name, cfg)
}
