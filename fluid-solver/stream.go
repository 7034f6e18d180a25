package fluid

// streaming moves every component one cell along its lattice velocity and
// then re-injects the open boundaries at the configured inflow speed.
//
// The shift reads from one buffer and writes into the other, so the sweep
// order does not matter. A cell whose upstream neighbour lies outside the
// grid keeps its previous value, which is what the ordered in-place sweep
// leaves behind.
type streaming struct {
	speed float64
}

func (s streaming) apply(l *lattice) {
	copy(l.tmp[Rest], l.f[Rest])
	parallelRange(int(North), numDirections, func(k int) {
		s.shift(l, Direction(k))
	})
	l.swap()
	s.inject(l)
}

func (s streaming) shift(l *lattice, d Direction) {
	src, dst := l.f[d], l.tmp[d]
	dx, dy := ex[d], ey[d]

	for y := 0; y < l.ydim; y++ {
		sy := y - dy
		for x := 0; x < l.xdim; x++ {
			i := l.idx(x, y)
			sx := x - dx
			if l.inside(sx, sy) {
				dst[i] = src[l.idx(sx, sy)]
			} else {
				dst[i] = src[i]
			}
		}
	}
}

// inject applies the open boundary: the side columns only get the
// components entering the domain, while the top and bottom rows are
// re-seeded completely. Corners end up fully re-seeded.
func (s streaming) inject(l *lattice) {
	eq := equilibrium(s.speed)
	last := l.xdim - 1

	for y := 0; y < l.ydim; y++ {
		if i := l.idx(0, y); !l.barrier[i] {
			l.f[East][i] = eq[East]
			l.f[NorthEast][i] = eq[NorthEast]
			l.f[SouthEast][i] = eq[SouthEast]
		}
		if i := l.idx(last, y); !l.barrier[i] {
			l.f[West][i] = eq[West]
			l.f[NorthWest][i] = eq[NorthWest]
			l.f[SouthWest][i] = eq[SouthWest]
		}
	}

	for x := 0; x < l.xdim; x++ {
		for _, y := range [2]int{0, l.ydim - 1} {
			i := l.idx(x, y)
			if l.barrier[i] {
				continue
			}
			l.seed(i, &eq)
		}
	}
}
