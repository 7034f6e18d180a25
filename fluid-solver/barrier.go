package fluid

// setBarrier marks or clears the obstruction at (x, y). Clearing a cell that
// is not a barrier does nothing. A freshly cleared cell holds motionless
// fluid of density 1 in its rest component; streaming fills in the rest.
func (l *lattice) setBarrier(x, y int, occupied bool) {
	i := l.idx(x, y)
	if occupied {
		l.barrier[i] = true
		l.zeroAt(i)
		return
	}
	if !l.barrier[i] {
		return
	}
	l.barrier[i] = false
	l.f[Rest][i] = 1
	l.density[i] = 1
	l.ux[i] = 0
	l.uy[i] = 0
	l.speed2[i] = 0
}

func (l *lattice) clearBarriers() {
	for y := 0; y < l.ydim; y++ {
		for x := 0; x < l.xdim; x++ {
			l.setBarrier(x, y, false)
		}
	}
}

func (l *lattice) barrierCount() int {
	var n int
	for _, b := range l.barrier {
		if b {
			n++
		}
	}
	return n
}
