// Package onnx registers the local ONNX classifier and the remote classifier
// that falls back to it.
package onnx

import (
	"context"
	"fmt"
	"os"

	"github.com/chriscow/eco-go/pkg/plugin"
	"github.com/chriscow/eco-go/pkg/vision"
)

func newLocal(cfg map[string]any) (any, error) {
	return vision.NewONNXClassifier(
		plugin.String(cfg, "model", "waste"),
		plugin.String(cfg, "model_path", ""),
		nil)
}

func newRemote(cfg map[string]any) (any, error) {
	url := plugin.StringOrEnv(cfg, "url", vision.RemoteURLEnv, "")
	if url == "" {
		return nil, fmt.Errorf("remote classifier needs a url (set %s or provide url in config)", vision.RemoteURLEnv)
	}
	return vision.NewClassifier(vision.Config{
		Model:     plugin.String(cfg, "model", "waste"),
		ModelPath: plugin.String(cfg, "model_path", ""),
		RemoteURL: url,
	})
}

func download(ctx context.Context) error {
	d := vision.NewDownloader(os.Getenv("ECO_MODEL_PATH"), "")
	return d.DownloadAll(ctx)
}

func init() {
	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindClassifier,
		Name:        "onnx",
		Factory:     newLocal,
		Description: "Local ONNX image classifier (Organic / Inorganic / NoWaste)",
		Version:     "1.0.0",
		Config: map[string]any{
			"model":      "waste",
			"model_path": "~/.eco/models (or ECO_MODEL_PATH)",
		},
		Downloader: plugin.DownloaderFunc(download),
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindClassifier,
		Name:        "remote",
		Factory:     newRemote,
		Description: "HTTP classifier with local ONNX fallback",
		Version:     "1.0.0",
		Config: map[string]any{
			"url":        "inference endpoint (or set " + vision.RemoteURLEnv + ")",
			"model":      "waste",
			"model_path": "~/.eco/models (or ECO_MODEL_PATH)",
		},
		Downloader: plugin.DownloaderFunc(download),
	})
}
