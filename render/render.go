// Package render turns solver frames into pictures: a colour image of the
// curl field and an ASCII ramp for the terminal.
package render

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"

	fluid "github.com/esimov/ascii-lbm/fluid-solver"
)

const (
	// DefaultColors is the size of the curl palette.
	DefaultColors = 600
	// DefaultContrast scales curl values before they are mapped to colours.
	DefaultContrast = 20.0
)

// Palette maps curl values onto a red to blue hue ramp. Hues are spread
// logarithmically so that small vortices stay visible.
type Palette struct {
	colors   []color.RGBA
	Contrast float64
}

// NewPalette builds a palette of n colours.
func NewPalette(n int, contrast float64) *Palette {
	if n < 1 {
		n = DefaultColors
	}
	p := &Palette{
		colors:   make([]color.RGBA, n),
		Contrast: contrast,
	}
	for c := range p.colors {
		h := math.Log2(1 + float64(c)/float64(n))
		r, g, b := colorful.Hsv(2.0/3*h*360, 1, 1).RGB255()
		p.colors[c] = color.RGBA{R: r, G: g, B: b, A: 0xff}
	}
	return p
}

func (p *Palette) Len() int { return len(p.colors) }

// Index returns the palette entry used for a curl value.
func (p *Palette) Index(curl float64) int {
	n := len(p.colors)
	v := float64(n) * (0.5 + curl*p.Contrast*0.3)
	switch {
	case math.IsNaN(v):
		return n / 2
	case v < 0:
		return 0
	case v >= float64(n):
		return n - 1
	}
	return int(v)
}

func (p *Palette) Color(curl float64) color.RGBA {
	return p.colors[p.Index(curl)]
}

// Image draws the curl of f with pixelsPerCell×pixelsPerCell squares per
// lattice cell. Barriers are black and y grows upwards.
func Image(f *fluid.Frame, p *Palette, pixelsPerCell int) *image.RGBA {
	if pixelsPerCell < 1 {
		pixelsPerCell = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, f.XDim*pixelsPerCell, f.YDim*pixelsPerCell))
	black := color.RGBA{A: 0xff}

	for y := 0; y < f.YDim; y++ {
		row := (f.YDim - 1 - y) * pixelsPerCell
		for x := 0; x < f.XDim; x++ {
			i := f.Index(x, y)
			c := black
			if !f.Barrier[i] {
				c = p.Color(f.Curl[i])
			}
			for j := 0; j < pixelsPerCell; j++ {
				for k := 0; k < pixelsPerCell; k++ {
					img.SetRGBA(x*pixelsPerCell+k, row+j, c)
				}
			}
		}
	}
	return img
}

// WritePNG encodes the curl image of f as PNG.
func WritePNG(w io.Writer, f *fluid.Frame, p *Palette, pixelsPerCell int) error {
	return png.Encode(w, Image(f, p, pixelsPerCell))
}

// Ramp is the ASCII intensity scale used for the terminal view, from calm to
// strongly rotating.
const Ramp = " .:-=+*#%@"

// Glyph returns the ramp character for the magnitude of a curl value. A
// diverged cell, whose curl is NaN or infinite, gets the strongest glyph.
func Glyph(curl, contrast float64) rune {
	n := len(Ramp)
	v := math.Abs(curl) * contrast * 0.6 * float64(n)
	if math.IsNaN(v) || v >= float64(n) {
		return rune(Ramp[n-1])
	}
	if v < 0 {
		return rune(Ramp[0])
	}
	return rune(Ramp[int(v)])
}
