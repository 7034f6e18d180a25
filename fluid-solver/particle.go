package fluid

import "math"

// Particle is a passive tracer carried along by the lattice velocity.
type Particle struct {
	x, y float64
	y0   float64
	age  int
	dead bool
}

// NewParticle spawns a new particle at coordinates defined by {x, y}.
func NewParticle(x, y float64) *Particle {
	return &Particle{x: x, y: y, y0: y}
}

// SeedParticles places rows×cols particles evenly over a xdim×ydim lattice.
func SeedParticles(rows, cols, xdim, ydim int) []*Particle {
	ps := make([]*Particle, 0, rows*cols)
	dx := float64(xdim) / float64(cols)
	dy := float64(ydim) / float64(rows)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			ps = append(ps, NewParticle((float64(c)+0.5)*dx, (float64(r)+0.5)*dy))
		}
	}
	return ps
}

// GetX retrieve the particle value at {x} position.
func (p *Particle) GetX() float64 {
	return p.x
}

// GetY retrieve the particle value at {y} position.
func (p *Particle) GetY() float64 {
	return p.y
}

// GetAge returns the number of moves since the particle was last spawned.
func (p *Particle) GetAge() int {
	return p.age
}

// GetDeath check if a particle is dead.
func (p *Particle) GetDeath() bool {
	return p.dead
}

// Cell returns the lattice cell holding the particle.
func (p *Particle) Cell() (int, int) {
	return int(math.Floor(p.x)), int(math.Floor(p.y))
}

// Advect moves the particle by the velocity of its cell in f, scaled by
// speed. A particle that leaves the lattice or hits a barrier dies.
func (p *Particle) Advect(f *Frame, speed float64) {
	if p.dead {
		return
	}
	x, y := p.Cell()
	if !f.Inside(x, y) {
		p.dead = true
		return
	}
	i := f.Index(x, y)
	p.x += f.UX[i] * speed
	p.y += f.UY[i] * speed
	p.age++

	x, y = p.Cell()
	if !f.Inside(x, y) || f.Barrier[f.Index(x, y)] {
		p.dead = true
	}
}

// Respawn brings a dead particle back at the inflow edge, on the row it was
// first seeded on.
func (p *Particle) Respawn() {
	p.x, p.y = 0.5, p.y0
	p.age = 0
	p.dead = false
}
