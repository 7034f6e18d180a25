package fluid

// collision relaxes every fluid cell towards its local equilibrium (BGK).
type collision struct {
	omega float64
}

// newCollision derives the relaxation rate from the kinematic viscosity.
// The scheme is only stable while omega stays in (0, 2).
func newCollision(viscosity float64) collision {
	return collision{omega: 1 / (3*viscosity + 0.5)}
}

func (c collision) apply(l *lattice) {
	parallelRange(0, l.ydim, func(y int) {
		for x := 0; x < l.xdim; x++ {
			i := l.idx(x, y)
			if l.barrier[i] {
				continue
			}
			c.relax(l, i)
		}
	})
}

func (c collision) relax(l *lattice, i int) {
	var n, jx, jy float64
	for d := Rest; d < numDirections; d++ {
		fd := l.f[d][i]
		n += fd
		jx += float64(ex[d]) * fd
		jy += float64(ey[d]) * fd
	}

	var vx, vy float64
	if n > 0 {
		vx = jx / n
		vy = jy / n
	}
	v2 := vx*vx + vy*vy
	v215 := 1.5 * v2

	l.density[i] = n
	l.ux[i] = vx
	l.uy[i] = vy
	l.speed2[i] = v2

	for d := Rest; d < numDirections; d++ {
		eu := float64(ex[d])*vx + float64(ey[d])*vy
		feq := weights[d] * n * (1 + 3*eu + 4.5*eu*eu - v215)
		l.f[d][i] += c.omega * (feq - l.f[d][i])
	}
}
