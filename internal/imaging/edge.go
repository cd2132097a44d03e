package imaging

import (
	"image"
	"math"
)

// Canny runs Canny edge detection on a grayscale image and returns a binary
// edge map (255 = edge, 0 = background) of the same size.
//
// The input is expected to be smoothed already; see Smooth. Thresholds are on
// the L2 Sobel gradient magnitude of the 0-255 intensities, so values such as
// (30, 100) or (50, 150) behave like the usual OpenCV settings.
//
// # Algorithm
//
//  1. Sobel gradients Gx, Gy with replicated borders
//  2. Non-maximum suppression along the gradient direction, quantised to
//     0°, 45°, 90° and 135°
//  3. Hysteresis: pixels >= high seed edges; pixels >= low are kept only when
//     8-connected to a seed through other kept pixels
func Canny(gray *image.Gray, low, high float64) *image.Gray {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewGray(image.Rect(0, 0, width, height))
	if width < 3 || height < 3 {
		return out
	}

	px := func(x, y int) float64 {
		x = clamp(x, 0, width-1)
		y = clamp(y, 0, height-1)
		return float64(gray.Pix[gray.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)])
	}

	magnitude := make([]float64, width*height)
	direction := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gx := -px(x-1, y-1) + px(x+1, y-1) +
				-2*px(x-1, y) + 2*px(x+1, y) +
				-px(x-1, y+1) + px(x+1, y+1)
			gy := -px(x-1, y-1) - 2*px(x, y-1) - px(x+1, y-1) +
				px(x-1, y+1) + 2*px(x, y+1) + px(x+1, y+1)
			i := y*width + x
			magnitude[i] = math.Sqrt(gx*gx + gy*gy)
			direction[i] = math.Atan2(gy, gx)
		}
	}

	suppressed := make([]float64, width*height)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			mag := magnitude[i]
			if mag < low {
				continue
			}

			angle := direction[i]
			var n1, n2 float64
			switch {
			case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
				n1, n2 = magnitude[i-1], magnitude[i+1]
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1, n2 = magnitude[i-width-1], magnitude[i+width+1]
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1, n2 = magnitude[i-width], magnitude[i+width]
			default:
				n1, n2 = magnitude[i-width+1], magnitude[i+width-1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[i] = mag
			}
		}
	}

	stack := make([]int, 0, 1024)
	for i, v := range suppressed {
		if v >= high && out.Pix[i/width*out.Stride+i%width] == 0 {
			out.Pix[i/width*out.Stride+i%width] = 255
			stack = append(stack, i)
		}
		for len(stack) > 0 {
			j := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			jx, jy := j%width, j/width
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := jx+dx, jy+dy
					if nx < 0 || ny < 0 || nx >= width || ny >= height {
						continue
					}
					k := ny*width + nx
					o := ny*out.Stride + nx
					if out.Pix[o] == 0 && suppressed[k] >= low {
						out.Pix[o] = 255
						stack = append(stack, k)
					}
				}
			}
		}
	}

	return out
}

// clamp constrains an integer value to the range [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
