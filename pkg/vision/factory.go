package vision

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/chriscow/eco-go/pkg/ai/classify"
)

// RemoteURLEnv names the environment variable that switches to remote inference.
const RemoteURLEnv = "ECO_REMOTE_CLASSIFIER_URL"

// Config holds configuration for creating classifiers.
type Config struct {
	Model     string // "waste"
	ModelPath string // optional, defaults to ECO_MODEL_PATH or ~/.eco/models
	RemoteURL string // optional remote inference URL
	Logger    *slog.Logger
}

// NewClassifier creates a classifier from cfg. With a remote URL (from cfg or
// the environment) it returns a RemoteClassifier backed by the local model.
func NewClassifier(cfg Config) (classify.Classifier, error) {
	remoteURL := cfg.RemoteURL
	if remoteURL == "" {
		remoteURL = os.Getenv(RemoteURLEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "waste"
	}

	local, err := NewONNXClassifier(cfg.Model, cfg.ModelPath, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX classifier: %w", err)
	}
	if remoteURL != "" {
		return NewRemoteClassifier(remoteURL, local, cfg.Logger), nil
	}
	return local, nil
}
