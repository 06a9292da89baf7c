package main

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/chriscow/eco-go/internal/config"
	"github.com/chriscow/eco-go/internal/journal"
	"github.com/chriscow/eco-go/pkg/advice"
	"github.com/chriscow/eco-go/pkg/ai/classify"
	"github.com/chriscow/eco-go/pkg/ai/stt"
	"github.com/chriscow/eco-go/pkg/live"
	"github.com/chriscow/eco-go/pkg/plugin"
	"github.com/chriscow/eco-go/pkg/source"
	"github.com/chriscow/eco-go/pkg/speech"
	"github.com/spf13/cobra"
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		if err := config.LoadDotEnv(envFile); err != nil {
			return nil, err
		}
	}
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

func options(pc config.ProviderConfig) map[string]any {
	opts := make(map[string]any, len(pc.Options)+1)
	maps.Copy(opts, pc.Options)
	return opts
}

func newClassifier(cfg *config.Config, provider string) (classify.Classifier, error) {
	opts := options(cfg.Classifier)
	if _, ok := opts["model_path"]; !ok && cfg.Model.Path != "" {
		opts["model_path"] = cfg.Model.Path
	}
	c, err := plugin.Default().Classifier(provider, opts)
	if err != nil {
		return nil, fmt.Errorf("classifier %q: %w", provider, err)
	}
	return c, nil
}

func loadBook(cfg *config.Config) (*advice.Book, error) {
	if cfg.Assistant.KnowledgeFile != "" {
		return advice.Load(cfg.Assistant.KnowledgeFile)
	}
	return advice.Builtin(cfg.Assistant.Language)
}

// newSynth returns nil when speech output is disabled in the config.
func newSynth(cfg *config.Config, logger *slog.Logger) (*speech.Synth, error) {
	if !cfg.Speech.Enabled {
		return nil, nil
	}
	provider, err := plugin.Default().TTS(cfg.Speech.Provider, options(config.ProviderConfig{Options: cfg.Speech.Options}))
	if err != nil {
		return nil, fmt.Errorf("speech provider %q: %w", cfg.Speech.Provider, err)
	}

	var sink speech.Sink = speech.DiscardSink{}
	if cfg.Speech.OutputDir != "" {
		ws, err := speech.NewWAVSink(cfg.Speech.OutputDir)
		if err != nil {
			return nil, err
		}
		sink = ws
	}

	return speech.NewSynth(speech.SynthConfig{
		TTS:      provider,
		Sink:     sink,
		Voice:    cfg.Speech.Voice,
		Language: cfg.Assistant.Language,
		Speed:    float32(cfg.Speech.Speed),
		Logger:   logger,
	})
}

// newController builds the live loop from cfg. The configured threshold is
// applied after construction so that an explicit zero is honored rather than
// replaced by the package default.
func newController(cfg *config.Config, c classify.Classifier, src source.Source, speaker speech.Speaker, book *advice.Book, deps assistantDeps, logger *slog.Logger) (*live.Controller, error) {
	ctrl, err := live.New(live.Config{
		Classifier: c,
		Source:     src,
		Speaker:    speaker,
		Capabilities: live.Capabilities{
			SpeechOutput: speaker != nil,
			SpeechInput:  deps.stt != nil,
		},
		Announcer:          book,
		SampleInterval:     cfg.Loop.SampleInterval,
		TickInterval:       cfg.Loop.TickInterval,
		StabilityThreshold: cfg.Loop.StabilityThreshold,
		SpeechCooldown:     cfg.Loop.SpeechCooldown,
		BackgroundLabel:    cfg.Loop.BackgroundLabel,
		Logger:             logger,
	})
	if err != nil {
		return nil, err
	}
	if err := ctrl.SetConfidenceThreshold(cfg.Loop.ConfidenceThreshold); err != nil {
		return nil, fmt.Errorf("loop.confidence_threshold: %w", err)
	}
	return ctrl, nil
}

// assistantDeps are the optional remote collaborators of the assistant. A
// provider that cannot be built is left out with a warning.
type assistantDeps struct {
	remote *advice.Remote
	stt    stt.STT
}

func newAssistantDeps(cfg *config.Config, logger *slog.Logger) assistantDeps {
	var deps assistantDeps
	reg := plugin.Default()

	if name := cfg.Assistant.LLM.Provider; name != "" {
		model, err := reg.LLM(name, options(cfg.Assistant.LLM))
		if err == nil {
			deps.remote, err = advice.NewRemote(advice.RemoteConfig{
				LLM:       model,
				MaxTokens: cfg.Assistant.MaxTokens,
				Timeout:   cfg.Assistant.Timeout,
				Logger:    logger,
			})
		}
		if err != nil {
			logger.Warn("Remote advice unavailable", slog.String("provider", name), slog.String("error", err.Error()))
		}
	}

	if name := cfg.Assistant.STT.Provider; name != "" {
		s, err := reg.STT(name, options(cfg.Assistant.STT))
		if err != nil {
			logger.Warn("Speech input unavailable", slog.String("provider", name), slog.String("error", err.Error()))
		} else {
			deps.stt = s
		}
	}
	return deps
}

func newAssistant(cfg *config.Config, book *advice.Book, deps assistantDeps, d advice.Dispatcher, logger *slog.Logger) (*advice.Assistant, error) {
	return advice.NewAssistant(advice.AssistantConfig{
		Book:       book,
		Remote:     deps.remote,
		Dispatcher: d,
		STT:        deps.stt,
		Language:   cfg.Assistant.Language,
		Logger:     logger,
	})
}

func openJournal(cfg *config.Config, logger *slog.Logger) (*journal.Journal, error) {
	if !cfg.Journal.Enabled {
		return nil, nil
	}
	return journal.Open(cfg.Journal.Path, logger)
}

// recordingAsker journals every answer it gives.
type recordingAsker struct {
	assistant *advice.Assistant
	journal   *journal.Journal // optional
	session   func() string
	logger    *slog.Logger
}

func (r recordingAsker) Ask(ctx context.Context, question string) (advice.Answer, error) {
	ans, err := r.assistant.Ask(ctx, question)
	if err != nil {
		return ans, err
	}
	if r.journal != nil {
		if err := r.journal.RecordAnswer(ctx, r.session(), ans); err != nil {
			r.logger.Warn("Failed to journal answer", slog.String("error", err.Error()))
		}
	}
	return ans, nil
}

// synthDispatcher speaks without a cooldown, for one-shot commands.
type synthDispatcher struct {
	synth *speech.Synth
}

func (s synthDispatcher) Say(text string) bool {
	return s.synth.Speak(text) == nil
}

func closeClassifier(c classify.Classifier, logger *slog.Logger) {
	if closer, ok := c.(classify.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("Failed to close classifier", slog.String("error", err.Error()))
		}
	}
}
