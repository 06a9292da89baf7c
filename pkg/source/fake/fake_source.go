package fake

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/chriscow/eco-go/pkg/ai"
	"github.com/chriscow/eco-go/pkg/rtc"
	"github.com/chriscow/eco-go/pkg/source"
)

// FakeSource serves solid-colour frames. It counts lifecycle calls so tests can
// assert that the loop releases it.
type FakeSource struct {
	// OpenErr, when set, makes Open fail with ai.ErrSourceUnavailable.
	OpenErr error
	// GrabErr, when set, is returned from every Grab.
	GrabErr error

	mu     sync.Mutex
	open   bool
	opens  int
	closes int
	grabs  int
}

// NewFakeSource creates a fake source.
func NewFakeSource() *FakeSource {
	return &FakeSource{}
}

// Open implements source.Source.
func (f *FakeSource) Open(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if f.OpenErr != nil {
		return fmt.Errorf("fake source: %w: %w", f.OpenErr, ai.ErrSourceUnavailable)
	}
	f.open = true
	return nil
}

// Grab implements source.Source.
func (f *FakeSource) Grab(ctx context.Context) (rtc.VideoFrame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return rtc.VideoFrame{}, source.ErrNotOpen
	}
	if f.GrabErr != nil {
		return rtc.VideoFrame{}, f.GrabErr
	}
	f.grabs++

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	c := color.RGBA{R: uint8(f.grabs * 40), G: 160, B: 60, A: 255}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	return rtc.VideoFrame{Image: img, Captured: time.Now(), Source: "fake", Sequence: uint64(f.grabs)}, nil
}

// Close implements source.Source.
func (f *FakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	f.open = false
	return nil
}

// IsOpen reports whether the source is open.
func (f *FakeSource) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// Counts returns the number of Open, Close and successful Grab calls.
func (f *FakeSource) Counts() (opens, closes, grabs int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens, f.closes, f.grabs
}
