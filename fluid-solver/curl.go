package fluid

// computeCurl writes the curl of the velocity field into out. Rows 0 and
// ydim-1 are not computed. The side columns use a doubled one-sided
// difference in x.
func computeCurl(l *lattice, out cell) {
	last := l.xdim - 1
	for y := 1; y < l.ydim-1; y++ {
		for x := 1; x < last; x++ {
			out[l.idx(x, y)] = (l.uy[l.idx(x+1, y)] - l.uy[l.idx(x-1, y)]) -
				(l.ux[l.idx(x, y+1)] - l.ux[l.idx(x, y-1)])
		}
		out[l.idx(0, y)] = 2*(l.uy[l.idx(1, y)]-l.uy[l.idx(0, y)]) -
			(l.ux[l.idx(0, y+1)] - l.ux[l.idx(0, y-1)])
		out[l.idx(last, y)] = 2*(l.uy[l.idx(last, y)]-l.uy[l.idx(last-1, y)]) -
			(l.ux[l.idx(last, y+1)] - l.ux[l.idx(last, y-1)])
	}
}
