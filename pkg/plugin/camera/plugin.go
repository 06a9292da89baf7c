// Package camera registers the frame sources: IP camera snapshots and image
// directory replay.
package camera

import (
	"errors"

	"github.com/chriscow/eco-go/pkg/plugin"
	"github.com/chriscow/eco-go/pkg/source"
)

func newSnapshot(cfg map[string]any) (any, error) {
	return source.NewSnapshot(source.SnapshotConfig{
		URL:     plugin.StringOrEnv(cfg, "url", "ECO_SNAPSHOT_URL", ""),
		Timeout: plugin.Duration(cfg, "timeout", 0),
	})
}

func newDir(cfg map[string]any) (any, error) {
	path := plugin.String(cfg, "path", "")
	if path == "" {
		return nil, errors.New("dir source needs a path")
	}
	return source.NewDir(path), nil
}

func init() {
	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindSource,
		Name:        "snapshot",
		Factory:     newSnapshot,
		Description: "IP camera still-image endpoint, polled with a cache-busting parameter",
		Version:     "1.0.0",
		Config: map[string]any{
			"url":     "http://<phone-ip>:8080/shot.jpg (or set ECO_SNAPSHOT_URL)",
			"timeout": "2s",
		},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindSource,
		Name:        "dir",
		Factory:     newDir,
		Description: "Replays the images of a directory in order",
		Version:     "1.0.0",
		Config: map[string]any{
			"path": "directory of .jpg/.png/.bmp/.webp files",
		},
	})
}
