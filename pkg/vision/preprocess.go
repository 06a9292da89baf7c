package vision

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// centerSquare returns the largest centered square inside r.
func centerSquare(r image.Rectangle) image.Rectangle {
	w, h := r.Dx(), r.Dy()
	side := min(w, h)
	x0 := r.Min.X + (w-side)/2
	y0 := r.Min.Y + (h-side)/2
	return image.Rect(x0, y0, x0+side, y0+side)
}

// resizeSquare center-crops img and scales it to size x size.
func resizeSquare(img image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, centerSquare(img.Bounds()), draw.Src, nil)
	return dst
}

// toTensor writes img into dst as NHWC float32 in [-1, 1]. dst must hold
// size*size*3 values.
func toTensor(img *image.RGBA, size int, dst []float32) {
	i := 0
	for y := 0; y < size; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < size; x++ {
			p := row[x*4 : x*4+3]
			dst[i] = float32(p[0])/127.5 - 1
			dst[i+1] = float32(p[1])/127.5 - 1
			dst[i+2] = float32(p[2])/127.5 - 1
			i += 3
		}
	}
}

// normalize turns raw model outputs into probabilities. Outputs that already
// form a distribution pass through unchanged; anything else goes through softmax.
func normalize(out []float32) []float64 {
	probs := make([]float64, len(out))
	sum := 0.0
	isDist := true
	for i, v := range out {
		probs[i] = float64(v)
		sum += probs[i]
		if v < 0 || v > 1 {
			isDist = false
		}
	}
	if isDist && math.Abs(sum-1) < 1e-3 {
		return probs
	}

	maxV := math.Inf(-1)
	for _, v := range probs {
		maxV = math.Max(maxV, v)
	}
	sum = 0
	for i, v := range probs {
		probs[i] = math.Exp(v - maxV)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
