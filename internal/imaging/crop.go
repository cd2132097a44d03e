package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// CropRect returns the part of img inside rect, clipped to the image bounds.
// The result is anchored at (0,0); an empty intersection yields nil.
func CropRect(img image.Image, rect image.Rectangle) image.Image {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return nil
	}
	return imaging.Crop(img, rect)
}

// ResizeExact scales img to exactly width x height with Lanczos resampling,
// ignoring the aspect ratio.
func ResizeExact(img image.Image, width, height int) *image.NRGBA {
	return imaging.Resize(img, width, height, imaging.Lanczos)
}
