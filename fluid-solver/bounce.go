package fluid

// bounceBack sends every population that streamed into a barrier cell back
// to the cell it came from, reversed.
type bounceBack struct{}

func (bounceBack) apply(l *lattice) {
	for y := 0; y < l.ydim; y++ {
		for x := 0; x < l.xdim; x++ {
			i := l.idx(x, y)
			if !l.barrier[i] {
				continue
			}
			for d := North; d < numDirections; d++ {
				n := l.f[d][i]
				if n == 0 {
					continue
				}
				l.f[d][i] = 0

				// A barrier on the outer edge has no upstream cell for some
				// directions; that population leaves through the open boundary.
				tx, ty := x-ex[d], y-ey[d]
				if !l.inside(tx, ty) {
					continue
				}
				l.f[d.Opposite()][l.idx(tx, ty)] += n
			}
		}
	}
}
