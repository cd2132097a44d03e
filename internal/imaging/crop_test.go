package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestCropRect(t *testing.T) {
	img := createFilledRect(100, 80, color.Black, color.White, image.Rect(20, 10, 60, 50))

	tests := []struct {
		name     string
		rect     image.Rectangle
		wantW    int
		wantH    int
		wantNil  bool
		whiteAt  image.Point
		checkPix bool
	}{
		{name: "inside", rect: image.Rect(20, 10, 60, 50), wantW: 40, wantH: 40, whiteAt: image.Pt(0, 0), checkPix: true},
		{name: "clipped to bounds", rect: image.Rect(-10, -10, 30, 30), wantW: 30, wantH: 30, whiteAt: image.Pt(25, 15), checkPix: true},
		{name: "outside", rect: image.Rect(200, 200, 220, 220), wantNil: true},
		{name: "empty", rect: image.Rect(10, 10, 10, 30), wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CropRect(img, tt.rect)
			if tt.wantNil {
				if got != nil {
					t.Errorf("got %v, want nil", got.Bounds())
				}
				return
			}
			b := got.Bounds()
			if b.Min != (image.Point{}) || b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("bounds: got %v, want (0,0)-(%d,%d)", b, tt.wantW, tt.wantH)
			}
			if tt.checkPix {
				if r, _, _, _ := got.At(tt.whiteAt.X, tt.whiteAt.Y).RGBA(); r>>8 != 255 {
					t.Errorf("pixel %v: got red %d, want 255", tt.whiteAt, r>>8)
				}
			}
		})
	}
}

func TestResizeExact(t *testing.T) {
	img := createFilledRect(120, 40, color.Black, color.White, image.Rect(0, 0, 60, 40))

	got := ResizeExact(img, 64, 64)
	if got.Bounds().Dx() != 64 || got.Bounds().Dy() != 64 {
		t.Fatalf("size: got %v, want 64x64", got.Bounds())
	}
	// Left half stays white, right half stays black.
	if c := got.NRGBAAt(8, 32); c.R < 250 {
		t.Errorf("left pixel: got %v, want white", c)
	}
	if c := got.NRGBAAt(56, 32); c.R > 5 {
		t.Errorf("right pixel: got %v, want black", c)
	}
}
