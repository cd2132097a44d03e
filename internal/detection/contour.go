package detection

import (
	"image"
	"math"
)

// Contour is an ordered, closed sequence of boundary pixels.
type Contour []image.Point

// moore lists the 8 neighbors clockwise (on screen) starting from west.
var moore = [8]image.Point{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
	{1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

// FindExternalContours traces the outer boundary of every 8-connected
// foreground component of bin (non-zero pixels) that is not nested inside a
// hole of another component.
//
// Contours are returned in raster order of their first pixel.
func FindExternalContours(bin *image.Gray) []Contour {
	bounds := bin.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil
	}

	fg := make([]bool, width*height)
	for y := 0; y < height; y++ {
		row := bin.Pix[bin.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		for x := 0; x < width; x++ {
			fg[y*width+x] = row[x] != 0
		}
	}
	isFG := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < width && y < height && fg[y*width+x]
	}

	outside := markOutside(fg, width, height)
	visited := make([]bool, width*height)

	contours := make([]Contour, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			if !fg[i] || visited[i] {
				continue
			}

			size := floodFill(fg, visited, x, y, width, height)

			// The first pixel of a component in raster order always has a
			// background pixel (or the image edge) to its left.
			if x > 0 && !outside[i-1] {
				continue
			}
			contours = append(contours, traceBoundary(isFG, image.Pt(x, y), 8*size+16))
		}
	}

	return contours
}

// floodFill marks the 8-connected foreground component containing
// (startX, startY) as visited and returns its pixel count.
func floodFill(fg, visited []bool, startX, startY, width, height int) int {
	stack := []image.Point{{X: startX, Y: startY}}
	count := 0

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		i := p.Y*width + p.X
		if visited[i] || !fg[i] {
			continue
		}

		visited[i] = true
		count++

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, image.Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}

	return count
}

// markOutside flags every background pixel 4-connected to the image border.
// Background pixels left unflagged sit inside holes of some component.
func markOutside(fg []bool, width, height int) []bool {
	outside := make([]bool, width*height)
	stack := make([]int, 0, 2*(width+height))

	push := func(x, y int) {
		if x < 0 || y < 0 || x >= width || y >= height {
			return
		}
		i := y*width + x
		if fg[i] || outside[i] {
			return
		}
		outside[i] = true
		stack = append(stack, i)
	}

	for x := 0; x < width; x++ {
		push(x, 0)
		push(x, height-1)
	}
	for y := 0; y < height; y++ {
		push(0, y)
		push(width-1, y)
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%width, i/width
		push(x-1, y)
		push(x+1, y)
		push(x, y-1)
		push(x, y+1)
	}

	return outside
}

// traceBoundary walks the outer boundary clockwise with Moore-neighbor
// tracing, starting from the top-left pixel of a component.
func traceBoundary(isFG func(x, y int) bool, start image.Point, limit int) Contour {
	contour := Contour{start}
	cur := start
	back := 0 // entered from the west

	var first image.Point
	for step := 0; step < limit; step++ {
		found := -1
		for i := 1; i <= 8; i++ {
			d := (back + i) % 8
			p := cur.Add(moore[d])
			if isFG(p.X, p.Y) {
				found = d
				break
			}
		}
		if found < 0 {
			break // isolated pixel
		}

		next := cur.Add(moore[found])
		if step == 0 {
			first = next
		} else if cur == start && next == first {
			break
		}

		prev := cur.Add(moore[(found+7)%8])
		back = direction(prev.Sub(next))
		contour = append(contour, next)
		cur = next
	}

	if n := len(contour); n > 1 && contour[n-1] == start {
		contour = contour[:n-1]
	}
	return contour
}

func direction(d image.Point) int {
	for i, m := range moore {
		if m == d {
			return i
		}
	}
	return 0
}

// Area returns the polygon area enclosed by the contour (shoelace formula).
func (c Contour) Area() float64 {
	if len(c) < 3 {
		return 0
	}
	var sum float64
	for i := range c {
		j := (i + 1) % len(c)
		sum += float64(c[i].X*c[j].Y - c[j].X*c[i].Y)
	}
	return math.Abs(sum) / 2
}

// Perimeter returns the closed arc length of the contour.
func (c Contour) Perimeter() float64 {
	if len(c) < 2 {
		return 0
	}
	var sum float64
	for i := range c {
		sum += dist(c[i], c[(i+1)%len(c)])
	}
	return sum
}

// Bounds returns the smallest box containing every contour pixel.
func (c Contour) Bounds() Box {
	if len(c) == 0 {
		return NoDetection
	}
	minX, minY := c[0].X, c[0].Y
	maxX, maxY := minX, minY
	for _, p := range c[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return Box{X: minX, Y: minY, Width: maxX - minX + 1, Height: maxY - minY + 1}
}

// Approx simplifies the closed contour with the Douglas-Peucker algorithm.
// Points closer than epsilon to the simplified outline are dropped.
func (c Contour) Approx(epsilon float64) Contour {
	if len(c) < 3 {
		return append(Contour(nil), c...)
	}

	// Split the closed curve at the point farthest from the start.
	far, farDist := 0, -1.0
	for i, p := range c {
		if d := dist(c[0], p); d > farDist {
			far, farDist = i, d
		}
	}
	if far == 0 {
		return Contour{c[0]}
	}

	head := douglasPeucker(c[:far+1], epsilon)
	tail := make([]image.Point, 0, len(c)-far+1)
	tail = append(tail, c[far:]...)
	tail = append(tail, c[0])
	tailSimplified := douglasPeucker(tail, epsilon)

	out := make(Contour, 0, len(head)+len(tailSimplified))
	out = append(out, head[:len(head)-1]...)
	out = append(out, tailSimplified[:len(tailSimplified)-1]...)
	return out
}

func douglasPeucker(pts []image.Point, epsilon float64) []image.Point {
	if len(pts) < 3 {
		return append([]image.Point(nil), pts...)
	}

	a, b := pts[0], pts[len(pts)-1]
	idx, maxDist := 0, -1.0
	for i := 1; i < len(pts)-1; i++ {
		if d := segmentDistance(pts[i], a, b); d > maxDist {
			idx, maxDist = i, d
		}
	}

	if maxDist <= epsilon {
		return []image.Point{a, b}
	}

	left := douglasPeucker(pts[:idx+1], epsilon)
	right := douglasPeucker(pts[idx:], epsilon)
	return append(left[:len(left)-1], right...)
}

// segmentDistance is the distance from p to the line through a and b, or to a
// when a and b coincide.
func segmentDistance(p, a, b image.Point) float64 {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return dist(p, a)
	}
	return math.Abs(dy*float64(p.X-a.X)-dx*float64(p.Y-a.Y)) / length
}

func dist(a, b image.Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
