package imaging

import (
	"image"
	"image/color"
	"testing"
)

// createSplitImage returns a gray image that is black left of splitX and
// white from splitX onward.
func createSplitImage(width, height, splitX int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := splitX; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return img
}

// createFilledRect returns an RGBA image of the given background with a filled
// rectangle of color fg over r.
func createFilledRect(width, height int, bg, fg color.Color, r image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if image.Pt(x, y).In(r) {
				img.Set(x, y, fg)
			} else {
				img.Set(x, y, bg)
			}
		}
	}
	return img
}

func TestCanny_VerticalEdge(t *testing.T) {
	edges := Canny(createSplitImage(50, 50, 25), 30, 100)

	for y := 2; y < 48; y++ {
		found := false
		for x := 23; x <= 26; x++ {
			if edges.GrayAt(x, y).Y == 255 {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("row %d: no edge near x=25", y)
		}
	}

	for y := 0; y < 50; y++ {
		for x := 0; x < 20; x++ {
			if edges.GrayAt(x, y).Y != 0 {
				t.Fatalf("unexpected edge at (%d,%d)", x, y)
			}
		}
	}
}

func TestCanny_UniformImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 40, 40))
	for i := range img.Pix {
		img.Pix[i] = 128
	}

	if n := CountNonZero(Canny(img, 30, 100)); n != 0 {
		t.Errorf("uniform image should have 0 edges, got %d", n)
	}
}

func TestCanny_TinyImage(t *testing.T) {
	edges := Canny(image.NewGray(image.Rect(0, 0, 2, 2)), 30, 100)
	if edges.Bounds().Dx() != 2 || edges.Bounds().Dy() != 2 {
		t.Errorf("bounds: got %v, want 2x2", edges.Bounds())
	}
}

func TestCanny_RectangleOutline(t *testing.T) {
	img := createFilledRect(100, 80, color.White, color.Black, image.Rect(20, 15, 80, 65))
	edges := Canny(Smooth(img, 1), 30, 100)

	// every side of the rectangle should produce edge pixels
	checks := []struct {
		name string
		x, y int
	}{
		{"top", 50, 15},
		{"bottom", 50, 64},
		{"left", 20, 40},
		{"right", 79, 40},
	}
	for _, c := range checks {
		found := false
		for dy := -2; dy <= 2 && !found; dy++ {
			for dx := -2; dx <= 2 && !found; dx++ {
				if edges.GrayAt(c.x+dx, c.y+dy).Y == 255 {
					found = true
				}
			}
		}
		if !found {
			t.Errorf("%s side: no edge near (%d,%d)", c.name, c.x, c.y)
		}
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		val, min, max, want int
	}{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{11, 0, 10, 10},
	}
	for _, tt := range tests {
		if got := clamp(tt.val, tt.min, tt.max); got != tt.want {
			t.Errorf("clamp(%d, %d, %d): got %d, want %d", tt.val, tt.min, tt.max, got, tt.want)
		}
	}
}
