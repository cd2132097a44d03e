package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"

	"github.com/pkg/errors"
)

// AnnotatedImage is an image with a detection box drawn on it, encoded as
// base64 PNG.
type AnnotatedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// DrawBox outlines rect on a copy of img and, when label is non-empty, stamps
// it just above the top-left corner. Colors are "#RRGGBB" or "#RRGGBBAA";
// an unparsable color falls back to opaque green.
func DrawBox(img image.Image, rect image.Rectangle, label, colorHex string, thickness int) (*AnnotatedImage, error) {
	bounds := img.Bounds()
	boxColor, err := parseHexColor(colorHex)
	if err != nil {
		boxColor = color.RGBA{0, 255, 0, 255}
	}
	if thickness < 1 {
		thickness = 1
	}

	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	rect = rect.Intersect(bounds)
	if !rect.Empty() {
		for t := 0; t < thickness; t++ {
			for x := rect.Min.X; x < rect.Max.X; x++ {
				setIn(result, x, rect.Min.Y+t, boxColor)
				setIn(result, x, rect.Max.Y-1-t, boxColor)
			}
			for y := rect.Min.Y; y < rect.Max.Y; y++ {
				setIn(result, rect.Min.X+t, y, boxColor)
				setIn(result, rect.Max.X-1-t, y, boxColor)
			}
		}
		if label != "" {
			ly := rect.Min.Y - 9
			if ly < bounds.Min.Y+1 {
				ly = rect.Min.Y + thickness + 2
			}
			drawLabel(result, rect.Min.X+1, ly, label, color.RGBA{255, 255, 255, 255}, color.RGBA{0, 0, 0, 180})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, result); err != nil {
		return nil, errors.Wrap(err, "failed to encode image")
	}

	return &AnnotatedImage{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

func setIn(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080".
func parseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, errors.New("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.RGBA{}, errors.Errorf("invalid hex color length %d", len(hex))
	}

	return color.RGBA{R: r, G: g, B: b, A: a}, nil
}

// glyphs is a 3x5 pixel font covering box labels such as "412x298 0.87".
var glyphs = map[rune][]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
	'x': {"000", "101", "010", "101", "000"},
	'.': {"000", "000", "000", "000", "010"},
	',': {"000", "000", "000", "010", "010"},
	'%': {"101", "001", "010", "100", "101"},
}

// drawLabel draws text at (x, y) over a filled background.
// Characters without a glyph are rendered as blank space.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			setIn(img, x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					setIn(img, cx+col, y+row, fg)
				}
			}
		}
		cx += charWidth
	}
}
