package vision

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/matryer/is"
	ort "github.com/yalue/onnxruntime_go"
)

func TestCenterSquare(t *testing.T) {
	is := is.New(t)
	is.Equal(centerSquare(image.Rect(0, 0, 640, 480)), image.Rect(80, 0, 560, 480))
	is.Equal(centerSquare(image.Rect(0, 0, 300, 500)), image.Rect(0, 100, 300, 400))
	is.Equal(centerSquare(image.Rect(10, 10, 20, 20)), image.Rect(10, 10, 20, 20))
}

func TestResizeAndTensor(t *testing.T) {
	is := is.New(t)

	src := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			src.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}

	img := resizeSquare(src, 8)
	is.Equal(img.Bounds(), image.Rect(0, 0, 8, 8))

	pixels := make([]float32, 8*8*3)
	toTensor(img, 8, pixels)
	near := func(got, want float32) bool { return math.Abs(float64(got-want)) < 0.01 }
	is.True(near(pixels[0], 1))  // red
	is.True(near(pixels[1], -1)) // green
	is.True(near(pixels[2], -1)) // blue
	is.True(near(pixels[len(pixels)-3], 1))
}

func TestNormalize(t *testing.T) {
	is := is.New(t)

	probs := normalize([]float32{0.25, 0.75})
	is.True(math.Abs(probs[0]-0.25) < 1e-6)
	is.True(math.Abs(probs[1]-0.75) < 1e-6)

	logits := normalize([]float32{2, 0, -2})
	sum := 0.0
	for _, p := range logits {
		sum += p
	}
	is.True(math.Abs(sum-1) < 1e-9)
	is.True(logits[0] > logits[1] && logits[1] > logits[2])
}

func TestInputSize(t *testing.T) {
	tests := []struct {
		name    string
		dims    ort.Shape
		hint    int
		want    int
		wantErr bool
	}{
		{"fixed", ort.NewShape(-1, 224, 224, 3), 0, 224, false},
		{"dynamic uses hint", ort.NewShape(-1, -1, -1, 3), 192, 192, false},
		{"dynamic default", ort.NewShape(1, -1, -1, 3), 0, defaultInputSize, false},
		{"nchw", ort.NewShape(1, 3, 224, 224), 0, 0, true},
		{"non-square", ort.NewShape(1, 224, 160, 3), 0, 0, true},
		{"rank", ort.NewShape(224, 224, 3), 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			got, err := inputSize(tt.dims, tt.hint)
			if tt.wantErr {
				is.True(err != nil)
				return
			}
			is.NoErr(err)
			is.Equal(got, tt.want)
		})
	}
}
