package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
)

// OtsuLevel picks the threshold t that maximizes the between-class variance of
// the two classes {v <= t} and {v > t}.
//
// When no split separates the histogram (a uniform image), the level is 0.
func OtsuLevel(gray *image.Gray) uint8 {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	total := width * height
	if total == 0 {
		return 0
	}

	var hist [256]int
	for y := 0; y < height; y++ {
		row := gray.Pix[gray.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		for x := 0; x < width; x++ {
			hist[row[x]]++
		}
	}

	var sumAll float64
	for v, n := range hist {
		sumAll += float64(v * n)
	}

	var (
		sumBelow  float64
		weightLow int
		bestSigma float64
		best      int
	)
	for t := 0; t < 256; t++ {
		weightLow += hist[t]
		sumBelow += float64(t * hist[t])
		weightHigh := total - weightLow
		if weightLow == 0 {
			continue
		}
		if weightHigh == 0 {
			break
		}
		meanLow := sumBelow / float64(weightLow)
		meanHigh := (sumAll - sumBelow) / float64(weightHigh)
		d := meanLow - meanHigh
		sigma := float64(weightLow) * float64(weightHigh) * d * d
		if sigma > bestSigma {
			bestSigma = sigma
			best = t
		}
	}
	return uint8(best)
}

// Binarize thresholds gray at its Otsu level. Pixels strictly above the level
// become 255, the rest 0.
func Binarize(gray *image.Gray) *image.Gray {
	return ThresholdAbove(gray, OtsuLevel(gray))
}

// ThresholdAbove returns a binary image where pixels strictly greater than
// level are 255. The comparison is done on the raw 8-bit values so the split
// matches OtsuLevel exactly.
func ThresholdAbove(gray *image.Gray, level uint8) *image.Gray {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := gray.Pix[gray.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < width; x++ {
			if row[x] > level {
				dst[x] = 255
			}
		}
	}
	return out
}

// CloseGaps applies a morphological closing (dilate then erode) to a binary
// image, joining edge fragments separated by up to about 2*radius pixels.
func CloseGaps(bin *image.Gray, radius float64) *image.Gray {
	if radius <= 0 {
		return bin
	}
	var dilated image.Image = effect.Dilate(bin, radius)
	var closed image.Image = effect.Erode(dilated, radius)
	return segment.Threshold(closed, 128)
}

// CountNonZero returns the number of non-zero pixels in gray.
func CountNonZero(gray *image.Gray) int {
	bounds := gray.Bounds()
	n := 0
	for y := 0; y < bounds.Dy(); y++ {
		row := gray.Pix[gray.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		for x := 0; x < bounds.Dx(); x++ {
			if row[x] != 0 {
				n++
			}
		}
	}
	return n
}
