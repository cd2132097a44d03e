package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestDrawBox(t *testing.T) {
	img := createFilledRect(100, 80, color.White, color.White, image.Rectangle{})

	result, err := DrawBox(img, image.Rect(20, 20, 60, 50), "40x30", "#FF0000", 2)
	if err != nil {
		t.Fatalf("DrawBox failed: %v", err)
	}
	if result.Width != 100 || result.Height != 80 {
		t.Errorf("dimensions: got %dx%d, want 100x80", result.Width, result.Height)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}

	data, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	out, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode PNG: %v", err)
	}

	r, g, b, _ := out.At(40, 21).RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("top edge pixel: got (%d,%d,%d), want red", r>>8, g>>8, b>>8)
	}
	r, g, b, _ = out.At(40, 35).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Errorf("interior pixel: got (%d,%d,%d), want white", r>>8, g>>8, b>>8)
	}
}

func TestDrawBox_OutsideImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	if _, err := DrawBox(img, image.Rect(50, 50, 60, 60), "", "", 1); err != nil {
		t.Fatalf("DrawBox failed: %v", err)
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		hex     string
		want    color.RGBA
		wantErr bool
	}{
		{"#FF0000", color.RGBA{255, 0, 0, 255}, false},
		{"00FF0080", color.RGBA{0, 255, 0, 128}, false},
		{"", color.RGBA{}, true},
		{"#FFF", color.RGBA{}, true},
		{"#GGGGGG", color.RGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.hex, func(t *testing.T) {
			got, err := parseHexColor(tt.hex)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error: got %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
