package fluid

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollisionKeepsEquilibrium(t *testing.T) {
	l := newLattice(8, 6)
	l.equilibriumInit(0.1)
	before := cloneLattice(l)

	newCollision(0.02).apply(l)

	for d := range l.f {
		assert.InDeltaSlice(t, before.f[d], l.f[d], 1e-12, "direction %s", Direction(d))
	}
	for i := 0; i < l.numOfCells; i++ {
		assert.InDelta(t, 1.0, l.density[i], 1e-12)
		assert.InDelta(t, 0.1, l.ux[i], 1e-12)
		assert.InDelta(t, 0.0, l.uy[i], 1e-12)
		assert.InDelta(t, 0.01, l.speed2[i], 1e-12)
	}
}

func TestCollisionConservesMassAndMomentum(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	l := newLattice(7, 5)
	fillRandom(l, rng)
	before := cloneLattice(l)

	newCollision(0.05).apply(l)

	for i := 0; i < l.numOfCells; i++ {
		var n0, n1, jx0, jx1, jy0, jy1 float64
		for d := range l.f {
			n0 += before.f[d][i]
			n1 += l.f[d][i]
			jx0 += float64(ex[d]) * before.f[d][i]
			jx1 += float64(ex[d]) * l.f[d][i]
			jy0 += float64(ey[d]) * before.f[d][i]
			jy1 += float64(ey[d]) * l.f[d][i]
		}
		assert.InDelta(t, n0, n1, 1e-12, "mass at cell %d", i)
		assert.InDelta(t, jx0, jx1, 1e-12, "x momentum at cell %d", i)
		assert.InDelta(t, jy0, jy1, 1e-12, "y momentum at cell %d", i)

		assert.InDelta(t, n0, l.density[i], 1e-12)
		assert.InDelta(t, jx0/n0, l.ux[i], 1e-12)
		assert.InDelta(t, jy0/n0, l.uy[i], 1e-12)
		assert.InDelta(t, l.ux[i]*l.ux[i]+l.uy[i]*l.uy[i], l.speed2[i], 1e-15)
	}
}

func TestCollisionRelaxationRate(t *testing.T) {
	c := newCollision(0.02)
	assert.InDelta(t, 1/0.56, c.omega, 1e-12)

	// omega = 1 at viscosity 1/6: one step lands exactly on equilibrium.
	rng := rand.New(rand.NewSource(11))
	l := newLattice(3, 3)
	fillRandom(l, rng)
	newCollision(1.0 / 6).apply(l)

	i := l.idx(1, 1)
	n, vx, vy := l.density[i], l.ux[i], l.uy[i]
	for d := Rest; d < numDirections; d++ {
		eu := float64(ex[d])*vx + float64(ey[d])*vy
		feq := weights[d] * n * (1 + 3*eu + 4.5*eu*eu - 1.5*(vx*vx+vy*vy))
		assert.InDelta(t, feq, l.f[d][i], 1e-12, "direction %s", d)
	}
}

func TestCollisionZeroDensity(t *testing.T) {
	l := newLattice(3, 3)
	newCollision(0.02).apply(l)

	for i := 0; i < l.numOfCells; i++ {
		assert.False(t, math.IsNaN(l.ux[i]))
		assert.Zero(t, l.ux[i])
		assert.Zero(t, l.uy[i])
		assert.Zero(t, l.density[i])
		for d := range l.f {
			assert.Zero(t, l.f[d][i])
		}
	}
}

func TestCollisionSkipsBarriers(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	l := newLattice(5, 5)
	fillRandom(l, rng)
	l.setBarrier(2, 2, true)

	newCollision(0.02).apply(l)

	i := l.idx(2, 2)
	for d := range l.f {
		assert.Zero(t, l.f[d][i])
	}
	assert.Zero(t, l.density[i])
	assert.Zero(t, l.speed2[i])
}
