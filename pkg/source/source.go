// Package source provides live frame sources for the classification loop.
//
// A Source is opened once per session, polled with Grab whenever the sampler
// accepts a tick, and closed on Stop. Implementations:
//
//   - Snapshot: an IP camera (or any HTTP endpoint) serving still images.
//   - Dir: replays the images of a directory in name order, looping.
//   - fake.FakeSource: scripted frames for tests.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/chriscow/eco-go/pkg/ai"
	"github.com/chriscow/eco-go/pkg/rtc"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrNotOpen is returned by Grab before Open or after Close.
var ErrNotOpen = errors.New("source: not open")

// Source is the frame source port.
type Source interface {
	// Open acquires the underlying device or endpoint. Failure must be
	// reported as ai.ErrSourceUnavailable.
	Open(ctx context.Context) error

	// Grab returns the current frame.
	Grab(ctx context.Context) (rtc.VideoFrame, error)

	// Close releases the source. Close on a closed source is a no-op.
	Close() error
}

// Decode decodes a JPEG, PNG, BMP or WebP still.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("decode frame: %w", err)
	}
	return img, format, nil
}

// DecodeBytes is Decode over a byte slice.
func DecodeBytes(b []byte) (image.Image, error) {
	img, _, err := Decode(bytes.NewReader(b))
	return img, err
}

func unavailable(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ai.ErrSourceUnavailable)
}
