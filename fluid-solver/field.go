package fluid

import "fmt"

// ScalarField is a read-only copy of one value per lattice cell.
type ScalarField struct {
	NumX, NumY int
	values     []float64
}

func newScalarField(numX, numY int, values []float64) ScalarField {
	cp := make([]float64, len(values))
	copy(cp, values)
	return ScalarField{NumX: numX, NumY: numY, values: cp}
}

// Value returns the field value at cell (i, j).
func (s ScalarField) Value(i, j int) (float64, error) {
	if i < 0 || i >= s.NumX {
		return 0.0, fmt.Errorf("x index out of range, must be between 0 and %d", s.NumX-1)
	}
	if j < 0 || j >= s.NumY {
		return 0.0, fmt.Errorf("y index out of range, must be between 0 and %d", s.NumY-1)
	}

	return s.values[i+s.NumX*j], nil
}

// Frame is a consistent snapshot of the macroscopic fields after a step.
// All slices are laid out row by row, see Index.
type Frame struct {
	Step    int       `json:"step"`
	XDim    int       `json:"xdim"`
	YDim    int       `json:"ydim"`
	Density []float64 `json:"density"`
	UX      []float64 `json:"ux"`
	UY      []float64 `json:"uy"`
	Speed2  []float64 `json:"speed2"`
	Curl    []float64 `json:"curl"`
	Barrier []bool    `json:"barrier"`
}

// Index returns the slice offset of cell (x, y).
func (f *Frame) Index(x, y int) int {
	return x + f.XDim*y
}

// Inside reports whether (x, y) is a cell of the frame.
func (f *Frame) Inside(x, y int) bool {
	return x >= 0 && x < f.XDim && y >= 0 && y < f.YDim
}
