package fluid

import "gonum.org/v1/gonum/floats"

type cell []float64

// Direction indexes one of the nine D2Q9 lattice velocities.
// North points towards increasing y.
type Direction int

const (
	Rest Direction = iota
	North
	South
	East
	West
	NorthEast
	NorthWest
	SouthEast
	SouthWest
)

const numDirections = 9

var (
	ex = [numDirections]int{0, 0, 0, 1, -1, 1, -1, 1, -1}
	ey = [numDirections]int{0, 1, -1, 0, 0, 1, 1, -1, -1}

	weights = [numDirections]float64{
		Rest:  4.0 / 9,
		North: 1.0 / 9, South: 1.0 / 9, East: 1.0 / 9, West: 1.0 / 9,
		NorthEast: 1.0 / 36, NorthWest: 1.0 / 36, SouthEast: 1.0 / 36, SouthWest: 1.0 / 36,
	}

	opposite = [numDirections]Direction{
		Rest:      Rest,
		North:     South,
		South:     North,
		East:      West,
		West:      East,
		NorthEast: SouthWest,
		NorthWest: SouthEast,
		SouthEast: NorthWest,
		SouthWest: NorthEast,
	}

	directionNames = [numDirections]string{"rest", "N", "S", "E", "W", "NE", "NW", "SE", "SW"}
)

// Opposite returns the direction pointing the other way.
func (d Direction) Opposite() Direction { return opposite[d] }

// Velocity returns the unit lattice velocity of d.
func (d Direction) Velocity() (int, int) { return ex[d], ey[d] }

func (d Direction) String() string {
	if d < 0 || d >= numDirections {
		return "invalid"
	}
	return directionNames[d]
}

// lattice holds the per-cell state of a D2Q9 grid. Distributions are stored
// one flat slice per direction, indexed by idx(x, y).
type lattice struct {
	xdim, ydim int
	numOfCells int

	f   [numDirections]cell
	tmp [numDirections]cell // streaming write buffer

	// Derived fields, refreshed by the collision step.
	density cell
	ux      cell
	uy      cell
	speed2  cell

	barrier []bool
}

func newLattice(xdim, ydim int) *lattice {
	l := &lattice{
		xdim:       xdim,
		ydim:       ydim,
		numOfCells: xdim * ydim,
	}
	for d := range l.f {
		l.f[d] = make(cell, l.numOfCells)
		l.tmp[d] = make(cell, l.numOfCells)
	}
	l.density = make(cell, l.numOfCells)
	l.ux = make(cell, l.numOfCells)
	l.uy = make(cell, l.numOfCells)
	l.speed2 = make(cell, l.numOfCells)
	l.barrier = make([]bool, l.numOfCells)

	return l
}

func (l *lattice) idx(x, y int) int {
	return x + l.xdim*y
}

func (l *lattice) inside(x, y int) bool {
	return x >= 0 && x < l.xdim && y >= 0 && y < l.ydim
}

// equilibrium returns the closed-form distributions for density 1 moving
// with velocity (v, 0).
func equilibrium(v float64) [numDirections]float64 {
	v2 := v * v
	east := 1 + 3*v + 3*v2
	west := 1 - 3*v + 3*v2
	still := 1 - 1.5*v2

	return [numDirections]float64{
		Rest:      4.0 / 9 * still,
		North:     1.0 / 9 * still,
		South:     1.0 / 9 * still,
		East:      1.0 / 9 * east,
		West:      1.0 / 9 * west,
		NorthEast: 1.0 / 36 * east,
		SouthEast: 1.0 / 36 * east,
		NorthWest: 1.0 / 36 * west,
		SouthWest: 1.0 / 36 * west,
	}
}

// equilibriumInit seeds every fluid cell with uniform flow at speed v and
// zeroes every barrier cell.
func (l *lattice) equilibriumInit(v float64) {
	eq := equilibrium(v)
	for i := 0; i < l.numOfCells; i++ {
		if l.barrier[i] {
			l.zeroAt(i)
			continue
		}
		l.seed(i, &eq)
		l.density[i] = 1
		l.ux[i] = v
		l.uy[i] = 0
		l.speed2[i] = v * v
	}
}

func (l *lattice) seed(i int, eq *[numDirections]float64) {
	for d := range l.f {
		l.f[d][i] = eq[d]
	}
}

// zero clears the distributions and derived fields of the cell at (x, y).
func (l *lattice) zero(x, y int) {
	l.zeroAt(l.idx(x, y))
}

func (l *lattice) zeroAt(i int) {
	for d := range l.f {
		l.f[d][i] = 0
	}
	l.density[i] = 0
	l.ux[i] = 0
	l.uy[i] = 0
	l.speed2[i] = 0
}

func (l *lattice) swap() {
	l.f, l.tmp = l.tmp, l.f
}

// cellDensity sums the nine distributions of cell i.
func (l *lattice) cellDensity(i int) float64 {
	var n float64
	for d := range l.f {
		n += l.f[d][i]
	}
	return n
}

// totalMass sums every distribution in the grid. Barrier cells hold zeros,
// so this is the fluid mass.
func (l *lattice) totalMass() float64 {
	var mass float64
	for d := range l.f {
		mass += floats.Sum(l.f[d])
	}
	return mass
}

// minDensity returns the smallest density of a fluid cell as seen by the
// last collision step.
func (l *lattice) minDensity() float64 {
	min, found := 0.0, false
	for i, n := range l.density {
		if l.barrier[i] {
			continue
		}
		if !found || n < min {
			min, found = n, true
		}
	}
	return min
}
