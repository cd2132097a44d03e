package imaging

import (
	"image"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// BorderColor estimates the background color of img as the mean of the
// pixels along its outer frame of the given thickness.
//
// Bento photographs are framed with the box roughly central, so the outer
// frame is dominated by the table or backdrop.
func BorderColor(img image.Image, thickness int) colorful.Color {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if thickness < 1 {
		thickness = 1
	}

	var r, g, b float64
	n := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x >= thickness && x < width-thickness && y >= thickness && y < height-thickness {
				continue
			}
			c, ok := colorful.MakeColor(img.At(x+bounds.Min.X, y+bounds.Min.Y))
			if !ok {
				continue
			}
			r += c.R
			g += c.G
			b += c.B
			n++
		}
	}
	if n == 0 {
		return colorful.Color{}
	}
	return colorful.Color{R: r / float64(n), G: g / float64(n), B: b / float64(n)}
}

// LabContrast maps every pixel to its CIE Lab distance from background,
// scaled into 0-255 and saturating at maxDistance.
//
// The result separates objects from the backdrop by color as well as by
// brightness, which helps when a box and its table have similar luma.
func LabContrast(img image.Image, background colorful.Color, maxDistance float64) *image.Gray {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewGray(image.Rect(0, 0, width, height))
	if maxDistance <= 0 {
		maxDistance = 1
	}

	// Photos carry few distinct colors per neighborhood, memoize by RGB.
	cache := make(map[uint32]uint8)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			cr, cg, cb, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			key := (cr>>8)<<16 | (cg>>8)<<8 | cb>>8
			v, ok := cache[key]
			if !ok {
				c := colorful.Color{R: float64(cr>>8) / 255, G: float64(cg>>8) / 255, B: float64(cb>>8) / 255}
				d := c.DistanceLab(background) / maxDistance
				v = uint8(math.Min(1, d)*255 + 0.5)
				if len(cache) < 1<<16 {
					cache[key] = v
				}
			}
			out.Pix[y*out.Stride+x] = v
		}
	}
	return out
}
