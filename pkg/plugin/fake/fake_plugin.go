// Package fake registers fake providers for every port. They need no network,
// model files or audio hardware, which makes them the default for demos and
// end-to-end tests of the CLI.
package fake

import (
	classifyfake "github.com/chriscow/eco-go/pkg/ai/classify/fake"
	llmfake "github.com/chriscow/eco-go/pkg/ai/llm/fake"
	sttfake "github.com/chriscow/eco-go/pkg/ai/stt/fake"
	ttsfake "github.com/chriscow/eco-go/pkg/ai/tts/fake"
	"github.com/chriscow/eco-go/pkg/plugin"
	sourcefake "github.com/chriscow/eco-go/pkg/source/fake"
)

// newFakeClassifier replays cfg["labels"] at cfg["confidence"]. The last label repeats.
func newFakeClassifier(cfg map[string]any) (any, error) {
	labels := stringList(cfg["labels"])
	if len(labels) == 0 {
		return classifyfake.NewFakeClassifier(), nil
	}
	confidence := plugin.Float(cfg, "confidence", 0.9)

	steps := make([]classifyfake.Step, len(labels))
	for i, label := range labels {
		steps[i] = classifyfake.Step{Result: classifyfake.Single(label, confidence)}
	}
	return classifyfake.NewFakeClassifier(steps...).WithDelay(plugin.Duration(cfg, "delay", 0)), nil
}

func newFakeSource(cfg map[string]any) (any, error) {
	return sourcefake.NewFakeSource(), nil
}

func newFakeSTT(cfg map[string]any) (any, error) {
	return sttfake.NewFakeSTT(plugin.String(cfg, "transcript", "")), nil
}

func newFakeTTS(cfg map[string]any) (any, error) {
	t := ttsfake.NewFakeTTS()
	t.Realtime = plugin.Bool(cfg, "realtime", false)
	return t, nil
}

func newFakeLLM(cfg map[string]any) (any, error) {
	responses := stringList(cfg["responses"])
	if len(responses) == 0 {
		responses = []string{"Rinse it and put it in the recycling bin."}
	}
	return llmfake.NewFakeLLM(responses...), nil
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func init() {
	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindClassifier,
		Name:        "fake",
		Factory:     newFakeClassifier,
		Description: "Scripted classifier for testing and demos",
		Version:     "1.0.0",
		Config: map[string]any{
			"labels":     []string{"NoWaste", "Organic", "Organic", "Organic"},
			"confidence": 0.9,
			"delay":      "0s",
		},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindSource,
		Name:        "fake",
		Factory:     newFakeSource,
		Description: "Solid-colour frame source for testing",
		Version:     "1.0.0",
		Config:      map[string]any{},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindSTT,
		Name:        "fake",
		Factory:     newFakeSTT,
		Description: "Fake STT provider for testing and development",
		Version:     "1.0.0",
		Config: map[string]any{
			"transcript": "Customizable transcript text",
		},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindTTS,
		Name:        "fake",
		Factory:     newFakeTTS,
		Description: "Fake TTS provider for testing and development",
		Version:     "1.0.0",
		Config: map[string]any{
			"realtime": false,
		},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindLLM,
		Name:        "fake",
		Factory:     newFakeLLM,
		Description: "Fake LLM provider for testing and development",
		Version:     "1.0.0",
		Config: map[string]any{
			"responses": []string{"List of predefined responses"},
		},
	})
}
