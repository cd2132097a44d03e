package detection

import "image"

// Box is an axis-aligned bounding box in pixel coordinates.
//
// (X, Y) is the inclusive top-left pixel; Width and Height are never negative.
// A box with zero width and zero height means "no detection".
type Box struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// NoDetection is the canonical empty box.
var NoDetection = Box{}

// IsNone reports whether b is the no-detection box.
func (b Box) IsNone() bool {
	return b.Width == 0 && b.Height == 0
}

// Area returns Width*Height.
func (b Box) Area() int {
	return b.Width * b.Height
}

// Rect converts b to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// BoxFromRect converts a rectangle to a Box. Empty rectangles map to NoDetection.
func BoxFromRect(r image.Rectangle) Box {
	r = r.Canon()
	if r.Empty() {
		return NoDetection
	}
	return Box{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Translate shifts the box by (dx, dy).
func (b Box) Translate(dx, dy int) Box {
	b.X += dx
	b.Y += dy
	return b
}

// Expand grows the box by margin pixels on each side and clips the result to
// bounds.
func (b Box) Expand(margin int, bounds image.Rectangle) Box {
	r := image.Rect(b.X-margin, b.Y-margin, b.X+b.Width+margin, b.Y+b.Height+margin)
	return BoxFromRect(r.Intersect(bounds))
}

// Clip intersects the box with bounds.
func (b Box) Clip(bounds image.Rectangle) Box {
	return BoxFromRect(b.Rect().Intersect(bounds))
}

// Center returns the box center in pixel coordinates.
func (b Box) Center() (float64, float64) {
	return float64(b.X) + float64(b.Width)/2, float64(b.Y) + float64(b.Height)/2
}
