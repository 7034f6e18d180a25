package fluid

import (
	"fmt"
	"image"
	"math"
	"sync"
	"time"
)

const (
	DefaultViscosity   = 0.02
	DefaultInflowSpeed = 0.1
)

// StepStats describes one completed step.
type StepStats struct {
	Step       int
	Duration   time.Duration
	Mass       float64
	MinDensity float64
}

// Observer is notified after every step. It is called outside the solver
// lock and may read from the solver.
type Observer interface {
	ObserveStep(StepStats)
}

// Option configures a Solver at construction time.
type Option func(*Solver)

func WithViscosity(v float64) Option {
	return func(s *Solver) { s.viscosity = v }
}

func WithInflowSpeed(v float64) Option {
	return func(s *Solver) { s.speed = v }
}

func WithObserver(o Observer) Option {
	return func(s *Solver) { s.observer = o }
}

// Solver owns a lattice and advances it with the collide, stream and
// bounce-back operators. All methods are safe for concurrent use; a step,
// a reset or a barrier edit is applied as one unit under the solver lock.
type Solver struct {
	mu sync.RWMutex

	grid      *lattice
	viscosity float64
	speed     float64
	steps     int

	observer Observer
}

// NewSolver builds a xdim×ydim lattice at equilibrium for the configured
// inflow speed.
func NewSolver(xdim, ydim int, opts ...Option) (*Solver, error) {
	s := &Solver{
		viscosity: DefaultViscosity,
		speed:     DefaultInflowSpeed,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := ValidateViscosity(s.viscosity); err != nil {
		return nil, err
	}
	if err := s.Initialize(xdim, ydim, s.speed); err != nil {
		return nil, err
	}
	return s, nil
}

func validDimensions(xdim, ydim int) error {
	if xdim < 3 || ydim < 3 {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, xdim, ydim)
	}
	return nil
}

// ValidateViscosity reports ErrInvalidViscosity unless v is finite and
// positive.
func ValidateViscosity(v float64) error {
	if !(v > 0) || math.IsInf(v, 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidViscosity, v)
	}
	return nil
}

// Initialize replaces the lattice with a barrier-free xdim×ydim grid in
// equilibrium at the given inflow speed.
func (s *Solver) Initialize(xdim, ydim int, speed float64) error {
	if err := validDimensions(xdim, ydim); err != nil {
		return err
	}
	grid := newLattice(xdim, ydim)
	grid.equilibriumInit(speed)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.grid = grid
	s.speed = speed
	s.steps = 0
	return nil
}

// Reset brings every fluid cell back to equilibrium at the current inflow
// speed. Barriers stay where they are.
func (s *Solver) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.grid.equilibriumInit(s.speed)
	s.steps = 0
}

// Step advances the simulation by one tick: collision, streaming and
// bounce-back.
func (s *Solver) Step() {
	s.mu.Lock()
	start := time.Now()

	newCollision(s.viscosity).apply(s.grid)
	streaming{speed: s.speed}.apply(s.grid)
	bounceBack{}.apply(s.grid)
	s.steps++

	observer := s.observer
	var stats StepStats
	if observer != nil {
		stats = StepStats{
			Step:       s.steps,
			Duration:   time.Since(start),
			Mass:       s.grid.totalMass(),
			MinDensity: s.grid.minDensity(),
		}
	}
	s.mu.Unlock()

	if observer != nil {
		observer.ObserveStep(stats)
	}
}

// SetViscosity changes the viscosity used by the next step.
func (s *Solver) SetViscosity(v float64) error {
	if err := ValidateViscosity(v); err != nil {
		return err
	}
	s.mu.Lock()
	s.viscosity = v
	s.mu.Unlock()
	return nil
}

// SetInflowSpeed changes the speed injected at the open edges by the next
// step and used by the next Reset.
func (s *Solver) SetInflowSpeed(v float64) {
	s.mu.Lock()
	s.speed = v
	s.mu.Unlock()
}

func (s *Solver) Viscosity() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viscosity
}

func (s *Solver) InflowSpeed() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.speed
}

// Steps returns the number of steps since the last Initialize or Reset.
func (s *Solver) Steps() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.steps
}

// Size returns the lattice dimensions.
func (s *Solver) Size() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grid.xdim, s.grid.ydim
}

func (s *Solver) checkRange(x, y int) error {
	if !s.grid.inside(x, y) {
		return fmt.Errorf("%w: (%d,%d) on a %dx%d lattice", ErrOutOfRange, x, y, s.grid.xdim, s.grid.ydim)
	}
	return nil
}

// SetBarrier marks (occupied) or clears the obstruction at (x, y).
func (s *Solver) SetBarrier(x, y int, occupied bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRange(x, y); err != nil {
		return err
	}
	s.grid.setBarrier(x, y, occupied)
	return nil
}

// SetBarriers applies SetBarrier to every point. If any point is outside the
// lattice nothing is changed.
func (s *Solver) SetBarriers(pts []image.Point, occupied bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range pts {
		if err := s.checkRange(p.X, p.Y); err != nil {
			return err
		}
	}
	for _, p := range pts {
		s.grid.setBarrier(p.X, p.Y, occupied)
	}
	return nil
}

// ClearBarriers removes every barrier, leaving motionless fluid behind.
func (s *Solver) ClearBarriers() {
	s.mu.Lock()
	s.grid.clearBarriers()
	s.mu.Unlock()
}

// BarrierCount returns the number of obstructed cells.
func (s *Solver) BarrierCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grid.barrierCount()
}

// DensityAt returns the density of (x, y) as of the last collision.
// Barrier cells report zero.
func (s *Solver) DensityAt(x, y int) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkRange(x, y); err != nil {
		return 0, err
	}
	return s.grid.density[s.grid.idx(x, y)], nil
}

// VelocityAt returns the macroscopic velocity of (x, y).
func (s *Solver) VelocityAt(x, y int) (float64, float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkRange(x, y); err != nil {
		return 0, 0, err
	}
	i := s.grid.idx(x, y)
	return s.grid.ux[i], s.grid.uy[i], nil
}

// SpeedSquaredAt returns ux²+uy² at (x, y).
func (s *Solver) SpeedSquaredAt(x, y int) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkRange(x, y); err != nil {
		return 0, err
	}
	return s.grid.speed2[s.grid.idx(x, y)], nil
}

func (s *Solver) IsBarrierAt(x, y int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkRange(x, y); err != nil {
		return false, err
	}
	return s.grid.barrier[s.grid.idx(x, y)], nil
}

// TotalMass sums every distribution in the lattice.
func (s *Solver) TotalMass() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grid.totalMass()
}

// CurlField computes the vorticity of the current velocity field. Values in
// the first and last row are always zero and carry no meaning.
func (s *Solver) CurlField() ScalarField {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(cell, s.grid.numOfCells)
	computeCurl(s.grid, out)
	return ScalarField{NumX: s.grid.xdim, NumY: s.grid.ydim, values: out}
}

// DensityField returns a copy of the density field.
func (s *Solver) DensityField() ScalarField {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newScalarField(s.grid.xdim, s.grid.ydim, s.grid.density)
}

// Snapshot copies every macroscopic field, including the curl, in one read.
func (s *Solver) Snapshot() Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g := s.grid
	f := Frame{
		Step:    s.steps,
		XDim:    g.xdim,
		YDim:    g.ydim,
		Density: append(cell(nil), g.density...),
		UX:      append(cell(nil), g.ux...),
		UY:      append(cell(nil), g.uy...),
		Speed2:  append(cell(nil), g.speed2...),
		Curl:    make(cell, g.numOfCells),
		Barrier: append([]bool(nil), g.barrier...),
	}
	computeCurl(g, f.Curl)
	return f
}
