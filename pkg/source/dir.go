package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chriscow/eco-go/pkg/rtc"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".webp": true,
}

// Dir replays the images of a directory in lexical order, wrapping around.
type Dir struct {
	path string

	mu    sync.Mutex
	files []string
	next  int
	seq   uint64
}

// NewDir creates a Dir source for path. The directory is scanned on Open.
func NewDir(path string) *Dir {
	return &Dir{path: path}
}

// Open scans the directory for images.
func (d *Dir) Open(ctx context.Context) error {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return unavailable("read frame directory: %v", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(d.path, e.Name()))
	}
	if len(files) == 0 {
		return unavailable("no images in %s", d.path)
	}
	sort.Strings(files)

	d.mu.Lock()
	d.files, d.next = files, 0
	d.mu.Unlock()
	return nil
}

// Grab decodes the next image.
func (d *Dir) Grab(ctx context.Context) (rtc.VideoFrame, error) {
	d.mu.Lock()
	if len(d.files) == 0 {
		d.mu.Unlock()
		return rtc.VideoFrame{}, ErrNotOpen
	}
	path := d.files[d.next]
	d.next = (d.next + 1) % len(d.files)
	d.seq++
	seq := d.seq
	d.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return rtc.VideoFrame{}, fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()

	img, _, err := Decode(f)
	if err != nil {
		return rtc.VideoFrame{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return rtc.VideoFrame{Image: img, Captured: time.Now(), Source: path, Sequence: seq}, nil
}

// Close implements Source.
func (d *Dir) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.files = nil
	return nil
}
