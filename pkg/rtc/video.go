package rtc

import (
	"image"
	"time"
)

// VideoFrame is a single decoded still pulled from a frame source.
type VideoFrame struct {
	Image    image.Image
	Captured time.Time
	Source   string // source-specific identifier (URL, file name)
	Sequence uint64 // monotonically increasing per source
}

// Bounds returns the image bounds, or an empty rectangle for a frame without pixels.
func (f VideoFrame) Bounds() image.Rectangle {
	if f.Image == nil {
		return image.Rectangle{}
	}
	return f.Image.Bounds()
}

// Empty reports whether the frame carries no pixels.
func (f VideoFrame) Empty() bool {
	return f.Bounds().Empty()
}
