package vision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v2"

	"github.com/chriscow/eco-go/pkg/vision/internal"
)

// ModelURLEnv names the environment variable holding the model mirror base URL.
const ModelURLEnv = "ECO_MODEL_URL"

// ErrNoModelURL is returned when a download is attempted without a mirror.
var ErrNoModelURL = errors.New("no model download URL configured (set " + ModelURLEnv + " or classifier.model_url)")

// Downloader fetches classifier models from a mirror laid out as
// <base>/<model>/<revision>/<file>.
type Downloader struct {
	modelPath string
	baseURL   string
	client    *http.Client
	out       io.Writer
}

// NewDownloader creates a model downloader. Empty arguments fall back to the
// environment and the default model directory.
func NewDownloader(modelPath, baseURL string) *Downloader {
	if modelPath == "" {
		modelPath = getDefaultModelPath()
	}
	if baseURL == "" {
		baseURL = os.Getenv(ModelURLEnv)
	}
	return &Downloader{
		modelPath: modelPath,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{},
		out:       os.Stdout,
	}
}

// SetOutput redirects progress output.
func (d *Downloader) SetOutput(w io.Writer) {
	d.out = w
}

// DownloadAll downloads all registered models.
func (d *Downloader) DownloadAll(ctx context.Context) error {
	for _, model := range internal.AllModels {
		if err := d.DownloadModel(ctx, model); err != nil {
			return fmt.Errorf("failed to download model %s: %w", model.Name, err)
		}
	}
	return nil
}

// DownloadModel downloads every file of a model that is missing or corrupt.
func (d *Downloader) DownloadModel(ctx context.Context, model internal.ModelInfo) error {
	modelDir := internal.GetModelPath(d.modelPath, model)
	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	for _, filename := range model.Files {
		filePath := filepath.Join(modelDir, filename)
		if d.isValidFile(filePath, model.Hashes[filename]) {
			fmt.Fprintf(d.out, "✓ %s already exists and is valid\n", filename)
			continue
		}
		if d.baseURL == "" {
			return ErrNoModelURL
		}

		fmt.Fprintf(d.out, "Downloading %s...\n", filename)
		if err := d.downloadFile(ctx, model, filename, filePath); err != nil {
			return fmt.Errorf("failed to download %s: %w", filename, err)
		}
		fmt.Fprintf(d.out, "✓ Downloaded %s\n", filename)
	}

	fmt.Fprintf(d.out, "✓ Model '%s' downloaded successfully\n", model.Name)
	return nil
}

func (d *Downloader) downloadFile(ctx context.Context, model internal.ModelInfo, filename, destination string) error {
	url := fmt.Sprintf("%s/%s/%s/%s", d.baseURL, model.Name, model.Revision, filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destination), filepath.Base(destination)+".part-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	total := resp.ContentLength
	if total <= 0 {
		total = model.Size
	}
	bar := progressbar.NewOptions(int(total), progressbar.OptionSetWriter(d.out))
	hasher := sha256.New()
	_, err = io.Copy(io.MultiWriter(tmp, hasher, barWriter{bar}), resp.Body)
	bar.Finish()
	fmt.Fprintln(d.out)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if want := model.Hashes[filename]; want != "" {
		if got := hex.EncodeToString(hasher.Sum(nil)); got != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	return os.Rename(tmp.Name(), destination)
}

// isValidFile checks that a file exists, is non-empty and matches its hash if one is known.
func (d *Downloader) isValidFile(filePath, expectedHash string) bool {
	info, err := os.Stat(filePath)
	if err != nil || info.Size() == 0 {
		return false
	}
	if expectedHash == "" {
		return true
	}
	return verifyFileHash(filePath, expectedHash)
}

func verifyFileHash(filePath, expectedHash string) bool {
	file, err := os.Open(filePath)
	if err != nil {
		return false
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return false
	}
	return hex.EncodeToString(hasher.Sum(nil)) == expectedHash
}

// GetModelStatus reports whether every file of each model is present and valid.
func (d *Downloader) GetModelStatus() map[string]bool {
	status := make(map[string]bool)
	for _, model := range internal.AllModels {
		complete := true
		for _, filename := range model.Files {
			path := internal.GetModelFilePath(d.modelPath, model, filename)
			if !d.isValidFile(path, model.Hashes[filename]) {
				complete = false
				break
			}
		}
		status[model.Name] = complete
	}
	return status
}

type barWriter struct {
	bar *progressbar.ProgressBar
}

func (w barWriter) Write(p []byte) (int, error) {
	w.bar.Add(len(p))
	return len(p), nil
}
