package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/chriscow/eco-go/pkg/ai"
	"github.com/chriscow/eco-go/pkg/ai/classify"
	"github.com/chriscow/eco-go/pkg/rtc"
	"github.com/chriscow/eco-go/pkg/version"
)

// RemoteClassifier classifies frames through an HTTP endpoint.
type RemoteClassifier struct {
	endpoint   string
	httpClient *http.Client
	fallback   classify.Classifier // optional local fallback
	retry      ai.RetryConfig
	logger     *slog.Logger
}

// NewRemoteClassifier creates a remote classifier. fallback may be nil.
func NewRemoteClassifier(endpoint string, fallback classify.Classifier, logger *slog.Logger) *RemoteClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteClassifier{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 2 * time.Second,
		},
		fallback: fallback,
		retry:    ai.DefaultRetryConfig,
		logger:   logger.With(slog.String("component", "remote_classifier")),
	}
}

// RemoteRequest is the payload posted to the endpoint.
type RemoteRequest struct {
	Image  string `json:"image"` // base64 JPEG
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// RemoteResponse is the endpoint's reply.
type RemoteResponse struct {
	Predictions []classify.Prediction `json:"predictions"`
	Error       string                `json:"error,omitempty"`
}

// Load loads the fallback so a dead endpoint does not leave the loop without a model.
func (c *RemoteClassifier) Load(ctx context.Context) error {
	if l, ok := c.fallback.(classify.Loader); ok {
		if err := l.Load(ctx); err != nil {
			c.logger.Warn("Fallback classifier unavailable", slog.String("error", err.Error()))
		}
	}
	return nil
}

// Close releases the fallback.
func (c *RemoteClassifier) Close() error {
	if cl, ok := c.fallback.(classify.Closer); ok {
		return cl.Close()
	}
	return nil
}

// Capabilities reports the fallback's labels when there is one.
func (c *RemoteClassifier) Capabilities() classify.Capabilities {
	caps := classify.Capabilities{}
	if c.fallback != nil {
		caps = c.fallback.Capabilities()
	}
	caps.Remote = true
	caps.InputSize = 0
	return caps
}

// Predict posts the frame and falls back to the local classifier on failure.
func (c *RemoteClassifier) Predict(ctx context.Context, frame rtc.VideoFrame) (classify.Result, error) {
	if frame.Empty() {
		return nil, ai.NewFatalError(nil, "empty frame")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame.Image, &jpeg.Options{Quality: 85}); err != nil {
		return c.fallbackPredict(ctx, frame, fmt.Errorf("failed to encode frame: %w", err))
	}
	b := frame.Bounds()
	body, err := json.Marshal(RemoteRequest{
		Image:  base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:  b.Dx(),
		Height: b.Dy(),
	})
	if err != nil {
		return c.fallbackPredict(ctx, frame, fmt.Errorf("failed to marshal request: %w", err))
	}

	var result classify.Result
	err = ai.Retry(ctx, c.retry, c.logger, func(ctx context.Context) error {
		r, err := c.post(ctx, body)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return c.fallbackPredict(ctx, frame, err)
	}
	return result, nil
}

func (c *RemoteClassifier) post(ctx context.Context, body []byte) (classify.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, ai.NewFatalError(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ai.NewRecoverableError(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, ai.NewRecoverableError(err, "remote classifier")
		}
		return nil, ai.NewFatalError(err, "remote classifier")
	}

	var response RemoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, ai.NewFatalError(err, "failed to decode response")
	}
	if response.Error != "" {
		return nil, ai.NewFatalError(errors.New(response.Error), "remote error")
	}
	for _, p := range response.Predictions {
		if p.Confidence < 0 || p.Confidence > 1 {
			return nil, ai.NewFatalError(nil, fmt.Sprintf("invalid confidence %f for %q", p.Confidence, p.Label))
		}
	}
	return classify.Result(response.Predictions), nil
}

func (c *RemoteClassifier) fallbackPredict(ctx context.Context, frame rtc.VideoFrame, originalErr error) (classify.Result, error) {
	if c.fallback == nil {
		return nil, fmt.Errorf("remote inference failed and no fallback available: %w", originalErr)
	}
	c.logger.Warn("Remote classification failed, using fallback", slog.String("error", originalErr.Error()))
	return c.fallback.Predict(ctx, frame)
}
