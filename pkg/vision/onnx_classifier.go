// Package vision implements the image classifier port: a local ONNX model and
// a remote HTTP classifier that falls back to the local one.
package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/chriscow/eco-go/pkg/ai"
	"github.com/chriscow/eco-go/pkg/ai/classify"
	"github.com/chriscow/eco-go/pkg/rtc"
	"github.com/chriscow/eco-go/pkg/vision/internal"
)

const defaultInputSize = 224

// metadata mirrors the metadata.json exported next to the model.
type metadata struct {
	Labels    []string `json:"labels"`
	ImageSize int      `json:"imageSize"`
}

// ONNXClassifier classifies frames with a local ONNX model. The session is
// created on first use (or by Load) and reused for every call.
type ONNXClassifier struct {
	model     internal.ModelInfo
	modelPath string
	logger    *slog.Logger

	loadOnce sync.Once
	loadErr  error

	mu      sync.Mutex // guards session and tensors
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	labels  []string
	size    int
}

// NewONNXClassifier creates a classifier for a registered model. Nothing is
// loaded until Load or the first Predict.
func NewONNXClassifier(modelName, modelPath string, logger *slog.Logger) (*ONNXClassifier, error) {
	model, ok := internal.Find(modelName)
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", modelName)
	}
	if modelPath == "" {
		modelPath = getDefaultModelPath()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ONNXClassifier{
		model:     model,
		modelPath: modelPath,
		logger:    logger.With(slog.String("component", "onnx_classifier")),
	}, nil
}

// ModelDir returns the directory the model files are read from.
func (c *ONNXClassifier) ModelDir() string {
	return internal.GetModelPath(c.modelPath, c.model)
}

// Load initializes the runtime and the session. Safe to call more than once;
// later calls return the first result.
func (c *ONNXClassifier) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.loadOnce.Do(func() {
		c.loadErr = c.load()
	})
	return c.loadErr
}

func (c *ONNXClassifier) load() error {
	modelFile := internal.GetModelFilePath(c.modelPath, c.model, internal.ModelFile)
	if _, err := os.Stat(modelFile); errors.Is(err, os.ErrNotExist) {
		return ai.NewFatalError(err, fmt.Sprintf("model file not found: %s (run 'eco-go model download' first)", modelFile))
	}

	meta, err := readMetadata(internal.GetModelFilePath(c.modelPath, c.model, internal.MetadataFile))
	if err != nil {
		return ai.NewFatalError(err, "failed to read model metadata")
	}

	if err := ensureOrtEnv(); err != nil {
		return ai.NewFatalError(err, "failed to initialize ONNX runtime")
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelFile)
	if err != nil {
		return ai.NewFatalError(err, "failed to inspect model")
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return ai.NewFatalError(nil, "model has no inputs or outputs")
	}

	size, err := inputSize(inputs[0].Dimensions, meta.ImageSize)
	if err != nil {
		return ai.NewFatalError(err, "unsupported model input")
	}
	outDims := outputs[0].Dimensions
	if classes := outDims[len(outDims)-1]; classes > 0 && int(classes) != len(meta.Labels) {
		return ai.NewFatalError(nil, fmt.Sprintf("model has %d outputs but metadata lists %d labels", classes, len(meta.Labels)))
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return ai.NewFatalError(err, "failed to create session options")
	}
	defer options.Destroy()
	if err := options.SetIntraOpNumThreads(max(1, runtime.NumCPU()/2)); err != nil {
		return ai.NewFatalError(err, "failed to set intra-op threads")
	}
	if err := options.SetInterOpNumThreads(1); err != nil {
		return ai.NewFatalError(err, "failed to set inter-op threads")
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(size), int64(size), 3))
	if err != nil {
		return ai.NewFatalError(err, "failed to create input tensor")
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(meta.Labels))))
	if err != nil {
		input.Destroy()
		return ai.NewFatalError(err, "failed to create output tensor")
	}

	session, err := ort.NewAdvancedSession(modelFile,
		[]string{inputs[0].Name}, []string{outputs[0].Name},
		[]ort.Value{input}, []ort.Value{output}, options)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return ai.NewFatalError(err, "failed to create ONNX session")
	}

	c.mu.Lock()
	c.session = session
	c.input = input
	c.output = output
	c.labels = meta.Labels
	c.size = size
	c.mu.Unlock()

	c.logger.Info("Model loaded",
		slog.String("model", c.model.Name),
		slog.String("revision", c.model.Revision),
		slog.Int("input_size", size),
		slog.Any("labels", meta.Labels))
	return nil
}

// Predict returns one prediction per model label, in model order.
func (c *ONNXClassifier) Predict(ctx context.Context, frame rtc.VideoFrame) (classify.Result, error) {
	if err := c.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load ONNX session: %w", err)
	}
	if frame.Empty() {
		return nil, ai.NewFatalError(nil, "empty frame")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return nil, ai.NewFatalError(nil, "classifier closed")
	}
	size := c.size
	c.mu.Unlock()

	pixels := make([]float32, size*size*3)
	toTensor(resizeSquare(frame.Image, size), size, pixels)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, ai.NewFatalError(nil, "classifier closed")
	}
	copy(c.input.GetData(), pixels)
	if err := c.session.Run(); err != nil {
		return nil, ai.NewRecoverableError(err, "ONNX inference failed")
	}
	probs := normalize(c.output.GetData())

	result := make(classify.Result, len(c.labels))
	for i, label := range c.labels {
		result[i] = classify.Prediction{Label: label, Confidence: probs[i]}
	}

	if latency := time.Since(start); latency > 100*time.Millisecond {
		c.logger.Debug("Slow inference", slog.Duration("latency", latency))
	}
	return result, nil
}

// Capabilities reports the labels and input size once the model is loaded.
func (c *ONNXClassifier) Capabilities() classify.Capabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	labels := make([]string, len(c.labels))
	copy(labels, c.labels)
	return classify.Capabilities{Labels: labels, InputSize: c.size}
}

// Close releases the session and its tensors.
func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	err := errors.Join(c.session.Destroy(), c.input.Destroy(), c.output.Destroy())
	c.session, c.input, c.output = nil, nil, nil
	return err
}

func readMetadata(path string) (metadata, error) {
	var meta metadata
	f, err := os.Open(path)
	if err != nil {
		return meta, err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&meta); err != nil {
		return meta, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	if len(meta.Labels) == 0 {
		return meta, fmt.Errorf("%s lists no labels", filepath.Base(path))
	}
	return meta, nil
}

// inputSize reads the square edge from an NHWC input shape. Dynamic
// dimensions fall back to the metadata image size.
func inputSize(dims ort.Shape, hint int) (int, error) {
	if len(dims) != 4 || dims[3] != 3 {
		return 0, fmt.Errorf("want NHWC input with 3 channels, got %v", dims)
	}
	h, w := dims[1], dims[2]
	switch {
	case h > 0 && w > 0 && h != w:
		return 0, fmt.Errorf("non-square input %dx%d", w, h)
	case h > 0:
		return int(h), nil
	case hint > 0:
		return hint, nil
	default:
		return defaultInputSize, nil
	}
}

func getDefaultModelPath() string {
	if path := os.Getenv("ECO_MODEL_PATH"); path != "" {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "eco-models")
	}
	return filepath.Join(homeDir, ".eco", "models")
}
