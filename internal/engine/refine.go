package engine

import (
	"image"

	"github.com/ironsheep/bento-measure-mcp/internal/detection"
	"github.com/ironsheep/bento-measure-mcp/internal/imaging"
)

// Refine tightens box to the foreground it contains.
//
// The box is clipped to the image and its crop is binarized at the Otsu level.
// Each edge then moves inward to the first row or column holding a foreground
// pixel. If the result is narrower or shorter than minFraction of the input
// box, the input box is returned unchanged, as it is for the no-detection box.
func Refine(img image.Image, box detection.Box, minFraction float64) detection.Box {
	if box.IsNone() {
		return box
	}

	clipped := box.Clip(img.Bounds())
	if clipped.IsNone() {
		return box
	}
	crop := imaging.CropRect(img, clipped.Rect())
	if crop == nil {
		return box
	}
	bin := imaging.Binarize(imaging.ToGray(crop))

	w, h := clipped.Width, clipped.Height
	rows := make([]bool, h)
	cols := make([]bool, w)
	for y := 0; y < h; y++ {
		row := bin.Pix[y*bin.Stride : y*bin.Stride+w]
		for x, v := range row {
			if v != 0 {
				rows[y] = true
				cols[x] = true
			}
		}
	}

	top, bottom := firstSet(rows), lastSet(rows)
	left, right := firstSet(cols), lastSet(cols)
	if top < 0 {
		// no foreground at all: edges stay where they are
		top, bottom, left, right = 0, h-1, 0, w-1
	}

	newW, newH := right-left+1, bottom-top+1
	if float64(newW) < float64(box.Width)*minFraction || float64(newH) < float64(box.Height)*minFraction {
		return box
	}
	return detection.Box{X: clipped.X + left, Y: clipped.Y + top, Width: newW, Height: newH}
}

func firstSet(v []bool) int {
	for i, b := range v {
		if b {
			return i
		}
	}
	return -1
}

func lastSet(v []bool) int {
	for i := len(v) - 1; i >= 0; i-- {
		if v[i] {
			return i
		}
	}
	return -1
}
