// Package config loads eco-go settings from eco.yaml, .env files and ECO_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g.
// ECO_LOOP_CONFIDENCE_THRESHOLD=0.8.
const EnvPrefix = "ECO"

// FileName is the config file searched for in the working directory and ~/.eco.
const FileName = "eco.yaml"

// Config holds the complete application configuration.
type Config struct {
	Loop       LoopConfig      `mapstructure:"loop" yaml:"loop"`
	Classifier ProviderConfig  `mapstructure:"classifier" yaml:"classifier"`
	Source     ProviderConfig  `mapstructure:"source" yaml:"source"`
	Speech     SpeechConfig    `mapstructure:"speech" yaml:"speech"`
	Assistant  AssistantConfig `mapstructure:"assistant" yaml:"assistant"`
	Model      ModelConfig     `mapstructure:"model" yaml:"model"`
	Control    ControlConfig   `mapstructure:"control" yaml:"control"`
	Journal    JournalConfig   `mapstructure:"journal" yaml:"journal"`
	Metrics    MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

// LoopConfig tunes the live classification loop.
type LoopConfig struct {
	SampleInterval      time.Duration `mapstructure:"sample_interval" yaml:"sample_interval"`
	TickInterval        time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
	StabilityThreshold  int           `mapstructure:"stability_threshold" yaml:"stability_threshold"`
	SpeechCooldown      time.Duration `mapstructure:"speech_cooldown" yaml:"speech_cooldown"`
	BackgroundLabel     string        `mapstructure:"background_label" yaml:"background_label"`
}

// ProviderConfig selects a registered plugin and passes it options.
type ProviderConfig struct {
	Provider string         `mapstructure:"provider" yaml:"provider"`
	Options  map[string]any `mapstructure:"options" yaml:"options,omitempty"`
}

// SpeechConfig configures spoken output.
type SpeechConfig struct {
	Enabled   bool           `mapstructure:"enabled" yaml:"enabled"`
	Provider  string         `mapstructure:"provider" yaml:"provider"`
	Options   map[string]any `mapstructure:"options" yaml:"options,omitempty"`
	Voice     string         `mapstructure:"voice" yaml:"voice"`
	Speed     float64        `mapstructure:"speed" yaml:"speed"`
	OutputDir string         `mapstructure:"output_dir" yaml:"output_dir"` // empty discards audio
}

// AssistantConfig configures the question answering assistant.
type AssistantConfig struct {
	Language      string         `mapstructure:"language" yaml:"language"`
	KnowledgeFile string         `mapstructure:"knowledge_file" yaml:"knowledge_file"` // empty uses the built-in book
	LLM           ProviderConfig `mapstructure:"llm" yaml:"llm"`                       // empty provider disables remote advice
	STT           ProviderConfig `mapstructure:"stt" yaml:"stt"`                       // empty provider disables spoken questions
	MaxTokens     int            `mapstructure:"max_tokens" yaml:"max_tokens"`
	Timeout       time.Duration  `mapstructure:"timeout" yaml:"timeout"`
}

// ModelConfig locates classifier model files.
type ModelConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
	URL  string `mapstructure:"url" yaml:"url"`
}

// ControlConfig configures the remote control channel.
type ControlConfig struct {
	URL   string `mapstructure:"url" yaml:"url"` // empty disables the channel
	Token string `mapstructure:"token" yaml:"token"`
}

// JournalConfig configures the verdict journal.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// MetricsConfig configures the expvar endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"` // empty disables the server
}

// DefaultConfig returns a new configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Loop: LoopConfig{
			SampleInterval:      400 * time.Millisecond,
			TickInterval:        16 * time.Millisecond,
			ConfidenceThreshold: 0.75,
			StabilityThreshold:  3,
			SpeechCooldown:      2500 * time.Millisecond,
			BackgroundLabel:     "NoWaste",
		},
		Classifier: ProviderConfig{Provider: "onnx"},
		Source:     ProviderConfig{Provider: "snapshot"},
		Speech: SpeechConfig{
			Enabled:  true,
			Provider: "openai",
			Speed:    1.0,
		},
		Assistant: AssistantConfig{
			Language:  "en",
			MaxTokens: 200,
			Timeout:   15 * time.Second,
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    filepath.Join(homeDir(), ".eco", "journal.db"),
		},
	}
}

// LoadDotEnv loads .env files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the configuration from configPath (or eco.yaml in the working
// directory or ~/.eco) and applies ECO_* environment overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(homeDir(), ".eco"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Journal.Path = expandHome(cfg.Journal.Path)
	cfg.Model.Path = expandHome(cfg.Model.Path)
	cfg.Speech.OutputDir = expandHome(cfg.Speech.OutputDir)
	cfg.Assistant.KnowledgeFile = expandHome(cfg.Assistant.KnowledgeFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Loop.SampleInterval <= 0 {
		errs = append(errs, fmt.Errorf("loop.sample_interval must be positive"))
	}
	if c.Loop.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("loop.tick_interval must be positive"))
	}
	if c.Loop.ConfidenceThreshold < 0 || c.Loop.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("loop.confidence_threshold must be within [0, 1], got %v", c.Loop.ConfidenceThreshold))
	}
	if c.Loop.StabilityThreshold < 1 {
		errs = append(errs, fmt.Errorf("loop.stability_threshold must be at least 1, got %d", c.Loop.StabilityThreshold))
	}
	if c.Loop.SpeechCooldown < 0 {
		errs = append(errs, fmt.Errorf("loop.speech_cooldown must not be negative"))
	}
	if c.Classifier.Provider == "" {
		errs = append(errs, fmt.Errorf("classifier.provider is required"))
	}
	if c.Source.Provider == "" {
		errs = append(errs, fmt.Errorf("source.provider is required"))
	}
	if c.Speech.Enabled && c.Speech.Provider == "" {
		errs = append(errs, fmt.Errorf("speech.provider is required when speech is enabled"))
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		errs = append(errs, fmt.Errorf("journal.path is required when the journal is enabled"))
	}
	return errors.Join(errs...)
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultPath returns ~/.eco/eco.yaml.
func DefaultPath() string {
	return filepath.Join(homeDir(), ".eco", FileName)
}

// MarshalYAML writes durations in their readable form.
func (l LoopConfig) MarshalYAML() (any, error) {
	return map[string]any{
		"sample_interval":      l.SampleInterval.String(),
		"tick_interval":        l.TickInterval.String(),
		"confidence_threshold": l.ConfidenceThreshold,
		"stability_threshold":  l.StabilityThreshold,
		"speech_cooldown":      l.SpeechCooldown.String(),
		"background_label":     l.BackgroundLabel,
	}, nil
}

// MarshalYAML writes the timeout in its readable form.
func (a AssistantConfig) MarshalYAML() (any, error) {
	return map[string]any{
		"language":       a.Language,
		"knowledge_file": a.KnowledgeFile,
		"llm":            a.LLM,
		"stt":            a.STT,
		"max_tokens":     a.MaxTokens,
		"timeout":        a.Timeout.String(),
	}, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("loop.sample_interval", d.Loop.SampleInterval)
	v.SetDefault("loop.tick_interval", d.Loop.TickInterval)
	v.SetDefault("loop.confidence_threshold", d.Loop.ConfidenceThreshold)
	v.SetDefault("loop.stability_threshold", d.Loop.StabilityThreshold)
	v.SetDefault("loop.speech_cooldown", d.Loop.SpeechCooldown)
	v.SetDefault("loop.background_label", d.Loop.BackgroundLabel)
	v.SetDefault("classifier.provider", d.Classifier.Provider)
	v.SetDefault("source.provider", d.Source.Provider)
	v.SetDefault("speech.enabled", d.Speech.Enabled)
	v.SetDefault("speech.provider", d.Speech.Provider)
	v.SetDefault("speech.voice", d.Speech.Voice)
	v.SetDefault("speech.speed", d.Speech.Speed)
	v.SetDefault("speech.output_dir", d.Speech.OutputDir)
	v.SetDefault("assistant.language", d.Assistant.Language)
	v.SetDefault("assistant.knowledge_file", d.Assistant.KnowledgeFile)
	v.SetDefault("assistant.llm.provider", d.Assistant.LLM.Provider)
	v.SetDefault("assistant.stt.provider", d.Assistant.STT.Provider)
	v.SetDefault("assistant.max_tokens", d.Assistant.MaxTokens)
	v.SetDefault("assistant.timeout", d.Assistant.Timeout)
	v.SetDefault("model.path", d.Model.Path)
	v.SetDefault("model.url", d.Model.URL)
	v.SetDefault("control.url", d.Control.URL)
	v.SetDefault("control.token", d.Control.Token)
	v.SetDefault("journal.enabled", d.Journal.Enabled)
	v.SetDefault("journal.path", d.Journal.Path)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return home
}

func expandHome(path string) string {
	if path == "~" {
		return homeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}
