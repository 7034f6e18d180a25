package fluid

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func cloneLattice(l *lattice) *lattice {
	c := newLattice(l.xdim, l.ydim)
	for d := range l.f {
		copy(c.f[d], l.f[d])
	}
	copy(c.density, l.density)
	copy(c.ux, l.ux)
	copy(c.uy, l.uy)
	copy(c.speed2, l.speed2)
	copy(c.barrier, l.barrier)
	return c
}

// fillRandom puts positive, roughly unit-density distributions in every
// fluid cell.
func fillRandom(l *lattice, rng *rand.Rand) {
	for i := 0; i < l.numOfCells; i++ {
		if l.barrier[i] {
			continue
		}
		for d := range l.f {
			l.f[d][i] = weights[d] * (0.5 + rng.Float64())
		}
	}
}

func TestDirectionOpposites(t *testing.T) {
	for d := Rest; d < numDirections; d++ {
		o := d.Opposite()
		assert.Equal(t, d, o.Opposite(), "opposite of %s", d)

		dx, dy := d.Velocity()
		ox, oy := o.Velocity()
		assert.Equal(t, -dx, ox, "x velocity of %s", o)
		assert.Equal(t, -dy, oy, "y velocity of %s", o)
	}
	assert.Equal(t, South, North.Opposite())
	assert.Equal(t, SouthWest, NorthEast.Opposite())
	assert.Equal(t, SouthEast, NorthWest.Opposite())
	assert.Equal(t, "NE", NorthEast.String())
}

func TestWeightsSumToOne(t *testing.T) {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-15)
}

func TestEquilibriumInit(t *testing.T) {
	l := newLattice(10, 5)
	l.barrier[l.idx(4, 2)] = true
	l.equilibriumInit(0.1)

	want := map[Direction]float64{
		Rest:      0.437778,
		East:      0.147778,
		West:      0.081111,
		North:     0.109444,
		South:     0.109444,
		NorthEast: 0.036944,
		SouthEast: 0.036944,
		NorthWest: 0.020278,
		SouthWest: 0.020278,
	}

	for y := 0; y < l.ydim; y++ {
		for x := 0; x < l.xdim; x++ {
			i := l.idx(x, y)
			if x == 4 && y == 2 {
				for d := range l.f {
					assert.Zero(t, l.f[d][i])
				}
				continue
			}
			for d, v := range want {
				assert.InDelta(t, v, l.f[d][i], 1e-6, "%s at (%d,%d)", d, x, y)
			}
			assert.InDelta(t, 1.0, l.cellDensity(i), 1e-12)
			assert.Equal(t, 1.0, l.density[i])
			assert.Equal(t, 0.1, l.ux[i])
			assert.InDelta(t, 0.01, l.speed2[i], 1e-15)
		}
	}
}

func TestEquilibriumClosedForm(t *testing.T) {
	for _, v := range []float64{0, 0.05, 0.1, 0.12} {
		eq := equilibrium(v)
		v2 := v * v
		assert.InDelta(t, 4.0/9*(1-1.5*v2), eq[Rest], 1e-15)
		assert.InDelta(t, 1.0/9*(1+3*v+3*v2), eq[East], 1e-15)
		assert.InDelta(t, 1.0/9*(1-3*v+3*v2), eq[West], 1e-15)
		assert.InDelta(t, 1.0/9*(1-1.5*v2), eq[North], 1e-15)
		assert.InDelta(t, 1.0/9*(1-1.5*v2), eq[South], 1e-15)
		assert.InDelta(t, 1.0/36*(1+3*v+3*v2), eq[NorthEast], 1e-15)
		assert.InDelta(t, 1.0/36*(1+3*v+3*v2), eq[SouthEast], 1e-15)
		assert.InDelta(t, 1.0/36*(1-3*v+3*v2), eq[NorthWest], 1e-15)
		assert.InDelta(t, 1.0/36*(1-3*v+3*v2), eq[SouthWest], 1e-15)

		var rho, jx float64
		for d, n := range eq {
			rho += n
			jx += float64(ex[d]) * n
		}
		assert.InDelta(t, 1.0, rho, 1e-14)
		assert.InDelta(t, v, jx, 1e-14)
	}
}

func TestZero(t *testing.T) {
	l := newLattice(4, 4)
	l.equilibriumInit(0.1)
	l.zero(2, 1)

	i := l.idx(2, 1)
	for d := range l.f {
		assert.Zero(t, l.f[d][i])
	}
	assert.Zero(t, l.density[i])
	assert.Zero(t, l.ux[i])
	assert.Zero(t, l.uy[i])
	assert.Zero(t, l.speed2[i])
	assert.InDelta(t, 1.0, l.cellDensity(l.idx(1, 1)), 1e-12)
}

func TestTotalMassAndMinDensity(t *testing.T) {
	l := newLattice(6, 4)
	l.equilibriumInit(0.05)
	assert.InDelta(t, 24.0, l.totalMass(), 1e-12)

	l.setBarrier(3, 2, true)
	assert.InDelta(t, 23.0, l.totalMass(), 1e-12)
	assert.Equal(t, 1.0, l.minDensity())

	l.density[l.idx(1, 1)] = -0.25
	assert.Equal(t, -0.25, l.minDensity())
	assert.False(t, math.IsNaN(l.minDensity()))
}

func TestParallelRangeVisitsEveryIndexOnce(t *testing.T) {
	seen := make([]int32, 97)
	parallelRange(0, len(seen), func(i int) {
		seen[i]++
	})
	for i, n := range seen {
		assert.Equal(t, int32(1), n, "index %d", i)
	}

	parallelRange(5, 5, func(int) { t.Fatal("empty range must not call fn") })
}
