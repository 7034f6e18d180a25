// Package shapes generates barrier outlines as lists of lattice cells.
// Every generator is a pure function; nothing here touches a solver.
package shapes

import (
	"fmt"
	"image"
	"math"
	"sort"
)

// Preset names accepted by Preset.
const (
	None           = "none"
	LineShape      = "line"
	CircleShape    = "circle"
	RectangleShape = "rectangle"
	TriangleShape  = "triangle"
	StarShape      = "star"
	AirfoilShape   = "airfoil"
)

var presets = map[string]func(xdim, ydim, size int) []image.Point{
	None: func(_, _, _ int) []image.Point { return nil },
	LineShape: func(_, ydim, size int) []image.Point {
		return Line(ydim/2-1, ydim/2-size/2-1, size)
	},
	CircleShape: func(_, ydim, size int) []image.Point {
		c := float64(ydim/2 - 1)
		if size%2 == 0 {
			c -= 0.5
		}
		return Circle(c, c, size)
	},
	RectangleShape: func(_, ydim, size int) []image.Point {
		return Rectangle(ydim/2-size/2, ydim/2-size/2, size, size)
	},
	TriangleShape: func(_, ydim, size int) []image.Point {
		return Triangle(ydim/2, ydim/2, size)
	},
	StarShape: func(_, ydim, size int) []image.Point {
		return Star(ydim/2, ydim/2, size)
	},
	AirfoilShape: func(xdim, ydim, size int) []image.Point {
		return Airfoil(xdim/4, ydim/2, 5*size, 12)
	},
}

// Names lists the known presets in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Preset builds the named obstacle for a xdim×ydim lattice, clipped to it.
// Shapes are placed upstream, one half-height from the inflow edge.
func Preset(name string, xdim, ydim, size int) ([]image.Point, error) {
	fn, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown shape %q, expected one of %v", name, Names())
	}
	if size < 1 {
		return nil, fmt.Errorf("shape size must be positive, got %d", size)
	}
	return Clip(fn(xdim, ydim, size), xdim, ydim), nil
}

// Clip drops the points outside a xdim×ydim lattice.
func Clip(pts []image.Point, xdim, ydim int) []image.Point {
	r := image.Rect(0, 0, xdim, ydim)
	out := pts[:0:0]
	for _, p := range pts {
		if p.In(r) {
			out = append(out, p)
		}
	}
	return out
}

// pointSet collects points once each, keeping insertion order.
type pointSet struct {
	seen map[image.Point]struct{}
	pts  []image.Point
}

func newPointSet() *pointSet {
	return &pointSet{seen: make(map[image.Point]struct{})}
}

func (s *pointSet) add(x, y int) {
	p := image.Pt(x, y)
	if _, ok := s.seen[p]; ok {
		return
	}
	s.seen[p] = struct{}{}
	s.pts = append(s.pts, p)
}

// round rounds half up, so -0.5 goes to 0.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}

// Line is a vertical segment of length cells at column x starting at y0.
func Line(x, y0, length int) []image.Point {
	s := newPointSet()
	for y := y0; y < y0+length; y++ {
		s.add(x, y)
	}
	return s.pts
}

// Circle is a two-cell thick ring of the given diameter centred at (cx, cy).
func Circle(cx, cy float64, diameter int) []image.Point {
	s := newPointSet()
	radius := float64(diameter-1) / 2
	if radius <= 0 {
		s.add(round(cx), round(cy))
		return s.pts
	}
	for theta := 0.0; theta < 2*math.Pi; theta += 0.1 / radius {
		sin, cos := math.Sincos(theta)
		s.add(round(cx+radius*cos), round(cy+radius*sin))
		if radius > 1 {
			s.add(round(cx+(radius-0.5)*cos), round(cy+(radius-0.5)*sin))
		}
	}
	return s.pts
}

// Rectangle is the outline of a w×h box with its lower left corner at (x0, y0).
func Rectangle(x0, y0, w, h int) []image.Point {
	s := newPointSet()
	for x := x0; x < x0+w; x++ {
		s.add(x, y0)
		s.add(x, y0+h-1)
	}
	for y := y0; y < y0+h; y++ {
		s.add(x0, y)
		s.add(x0+w-1, y)
	}
	return s.pts
}

// Triangle is the outline of an isosceles triangle of the given size centred
// at (cx, cy), apex towards -y.
func Triangle(cx, cy, size int) []image.Point {
	vx := [3]int{cx, cx - size/2, cx + size/2}
	vy := [3]int{cy - size/2, cy + size/2, cy + size/2}

	s := newPointSet()
	for i := range vx {
		j := (i + 1) % 3
		bresenham(s, vx[i], vy[i], vx[j], vy[j])
	}
	return s.pts
}

// Star is a five-pointed star outline with outer radius size centred at
// (cx, cy).
func Star(cx, cy, size int) []image.Point {
	s := newPointSet()

	vertex := func(i int) (int, int) {
		r := float64(size)
		if i%2 == 1 {
			r /= 2
		}
		sin, cos := math.Sincos(float64(i)*math.Pi/5 - math.Pi/2)
		return round(float64(cx) + r*cos), round(float64(cy) + r*sin)
	}

	px, py := vertex(0)
	for i := 1; i <= 10; i++ {
		x, y := vertex(i % 10)
		bresenham(s, px, py, x, y)
		px, py = x, y
	}
	return s.pts
}

// Airfoil is a cambered NACA-style wing section of the given chord length
// starting at (x0, cy). Thickness is in percent of the chord.
func Airfoil(x0, cy, length, thickness int) []image.Point {
	const (
		camber    = -0.04
		camberPos = 0.4
	)
	maxThickness := float64(thickness) / 100
	chord := float64(length)

	s := newPointSet()
	for x := 0; x < length; x++ {
		xn := float64(x) / chord

		var yc float64
		if xn <= camberPos {
			yc = camber / (camberPos * camberPos) * (2*camberPos*xn - xn*xn)
		} else {
			yc = camber / ((1 - camberPos) * (1 - camberPos)) * ((1 - 2*camberPos) + 2*camberPos*xn - xn*xn)
		}
		yt := 5 * maxThickness * (0.2969*math.Sqrt(xn) -
			0.1260*xn -
			0.3516*xn*xn +
			0.2843*xn*xn*xn -
			0.1015*xn*xn*xn*xn)

		s.add(x0+x, round(float64(cy)-(yc+yt)*chord))
		s.add(x0+x, round(float64(cy)-(yc-yt)*chord))
	}
	return s.pts
}

// Bresenham returns the cells of the straight segment from (x0, y0) to
// (x1, y1), both ends included.
func Bresenham(x0, y0, x1, y1 int) []image.Point {
	s := newPointSet()
	bresenham(s, x0, y0, x1, y1)
	return s.pts
}

func bresenham(s *pointSet, x0, y0, x1, y1 int) {
	dx, dy := abs(x1-x0), abs(y1-y0)
	sx, sy := 1, 1
	if x0 >= x1 {
		sx = -1
	}
	if y0 >= y1 {
		sy = -1
	}
	err := dx - dy

	for {
		s.add(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
