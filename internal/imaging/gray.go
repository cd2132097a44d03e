package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
)

// ToGray converts img to an 8-bit grayscale image using BT.601 weights.
//
// *image.Gray inputs anchored at (0,0) are returned as-is. The common RGBA and
// NRGBA layouts are converted by walking Pix directly; anything else goes
// through the color model.
func ToGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if g, ok := img.(*image.Gray); ok && bounds.Min == (image.Point{}) {
		return g
	}

	gray := image.NewGray(image.Rect(0, 0, width, height))

	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < height; y++ {
			row := src.Pix[src.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
			out := gray.Pix[y*gray.Stride:]
			for x := 0; x < width; x++ {
				out[x] = luma(row[x*4], row[x*4+1], row[x*4+2])
			}
		}
	case *image.NRGBA:
		for y := 0; y < height; y++ {
			row := src.Pix[src.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
			out := gray.Pix[y*gray.Stride:]
			for x := 0; x < width; x++ {
				out[x] = luma(row[x*4], row[x*4+1], row[x*4+2])
			}
		}
	case *image.Gray:
		for y := 0; y < height; y++ {
			copy(gray.Pix[y*gray.Stride:y*gray.Stride+width], src.Pix[src.PixOffset(bounds.Min.X, bounds.Min.Y+y):])
		}
	default:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
				gray.Pix[y*gray.Stride+x] = luma(uint8(r>>8), uint8(g>>8), uint8(b>>8))
			}
		}
	}

	return gray
}

func luma(r, g, b uint8) uint8 {
	v := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
	return uint8(v + 0.5)
}

// Brightness returns the mean intensity of gray, 0-255.
func Brightness(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return 0
	}

	var sum uint64
	for y := 0; y < height; y++ {
		row := gray.Pix[gray.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		for x := 0; x < width; x++ {
			sum += uint64(row[x])
		}
	}
	return float64(sum) / float64(width*height)
}

// Smooth converts img to grayscale and applies a Gaussian blur of the given
// radius. A non-positive radius skips the blur. The result is anchored at
// (0,0).
func Smooth(img image.Image, radius float64) *image.Gray {
	gray := ToGray(img)
	if radius <= 0 {
		return gray
	}
	var blurred image.Image = blur.Gaussian(gray, radius)
	return ToGray(blurred)
}
