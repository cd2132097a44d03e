package detection

import (
	"image"
	"math"
	"sort"

	"github.com/ironsheep/bento-measure-mcp/internal/imaging"
)

// HoughLine is a line in normal form: x*cos(theta) + y*sin(theta) = rho.
type HoughLine struct {
	Rho   float64 `json:"rho"`
	Theta float64 `json:"theta"` // radians, [0, pi)
	Votes int     `json:"votes"`
}

// HoughLines runs the standard Hough transform (1 px, 1 degree resolution) on
// a binary edge map and returns accumulator peaks with at least threshold
// votes, strongest first.
//
// A cell is a peak when it is not smaller than its four neighbors in
// (rho, theta) space.
func HoughLines(edges *image.Gray, threshold int) []HoughLine {
	bounds := edges.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil
	}

	maxDist := int(math.Ceil(math.Hypot(float64(width), float64(height))))
	numAngles := 180
	numRho := 2*maxDist + 1

	cosT := make([]float64, numAngles)
	sinT := make([]float64, numAngles)
	for t := 0; t < numAngles; t++ {
		angle := float64(t) * math.Pi / 180
		cosT[t] = math.Cos(angle)
		sinT[t] = math.Sin(angle)
	}

	accumulator := make([]int, numRho*numAngles)
	for y := 0; y < height; y++ {
		row := edges.Pix[edges.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		for x := 0; x < width; x++ {
			if row[x] == 0 {
				continue
			}
			for t := 0; t < numAngles; t++ {
				rho := float64(x)*cosT[t] + float64(y)*sinT[t]
				r := int(math.Round(rho)) + maxDist
				accumulator[r*numAngles+t]++
			}
		}
	}

	at := func(r, t int) int {
		if r < 0 || r >= numRho || t < 0 || t >= numAngles {
			return 0
		}
		return accumulator[r*numAngles+t]
	}

	lines := make([]HoughLine, 0)
	for r := 0; r < numRho; r++ {
		for t := 0; t < numAngles; t++ {
			v := accumulator[r*numAngles+t]
			if v < threshold {
				continue
			}
			if v > at(r-1, t) && v >= at(r+1, t) && v > at(r, t-1) && v >= at(r, t+1) {
				lines = append(lines, HoughLine{
					Rho:   float64(r - maxDist),
					Theta: float64(t) * math.Pi / 180,
					Votes: v,
				})
			}
		}
	}

	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Votes > lines[j].Votes
	})
	return lines
}

// SkewAngle estimates the dominant line orientation of img in degrees: the
// mean theta of the Hough lines found on its Canny(50, 150) edge map with at
// least 100 votes. It is 0 when no line qualifies.
func SkewAngle(img image.Image) float64 {
	edges := imaging.Canny(imaging.ToGray(img), 50, 150)
	lines := HoughLines(edges, 100)
	if len(lines) == 0 {
		return 0
	}

	var sum float64
	for _, l := range lines {
		sum += l.Theta * 180 / math.Pi
	}
	return sum / float64(len(lines))
}
