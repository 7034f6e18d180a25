package terminal

import (
	"context"
	"fmt"

	"github.com/mattn/go-runewidth"
	"github.com/nsf/termbox-go"
	"github.com/sirupsen/logrus"

	fluid "github.com/esimov/ascii-lbm/fluid-solver"
	"github.com/esimov/ascii-lbm/render"
	"github.com/esimov/ascii-lbm/shapes"
)

const (
	barrierRune = '█'
	tracerRune  = '•'

	minViscosity  = 0.005
	maxViscosity  = 1.0
	viscosityStep = 0.01
	maxSpeed      = 0.12
	speedStep     = 0.005
)

type attrFunc func() (rune, termbox.Attribute, termbox.Attribute)

// Terminal draws the curl of a running simulation with termbox and lets the
// user edit barriers with the mouse.
type Terminal struct {
	solver *fluid.Solver
	runner *fluid.Runner
	log    logrus.FieldLogger

	Contrast  float64
	ShapeSize int

	backbuf   []termbox.Cell
	bbw, bbh  int
	view      viewport
	frame     fluid.Frame
	particles []*fluid.Particle
	erase     bool
	shape     int
}

func New(s *fluid.Solver, r *fluid.Runner, log logrus.FieldLogger) *Terminal {
	return &Terminal{
		solver:    s,
		runner:    r,
		log:       log,
		Contrast:  render.DefaultContrast,
		ShapeSize: 20,
	}
}

// Render takes over the terminal until the user quits or ctx is done.
func (t *Terminal) Render(ctx context.Context) error {
	err := termbox.Init()
	if err != nil {
		return err
	}
	defer termbox.Close()
	termbox.SetInputMode(termbox.InputEsc | termbox.InputMouse)
	t.reallocBackBuffer(termbox.Size())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan fluid.Frame, 1)
	go t.runner.Run(ctx, func(f fluid.Frame) {
		select {
		case frames <- f:
		default:
		}
	})

	events := make(chan termbox.Event)
	go func() {
		for {
			ev := termbox.PollEvent()
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
			if ev.Type == termbox.EventInterrupt {
				return
			}
		}
	}()
	defer termbox.Interrupt()

	t.frame = t.solver.Snapshot()
	t.redraw()

	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-frames:
			t.frame = f
			t.advect()
			t.redraw()
		case ev := <-events:
			switch ev.Type {
			case termbox.EventKey:
				if !t.handleKey(ev) {
					return nil
				}
			case termbox.EventMouse:
				if ev.Key == termbox.MouseLeft {
					t.draw(ev.MouseX, ev.MouseY)
				}
			case termbox.EventResize:
				t.reallocBackBuffer(ev.Width, ev.Height)
			case termbox.EventError:
				return ev.Err
			}
			t.frame = t.solver.Snapshot()
			t.redraw()
		}
	}
}

// handleKey applies a key press and reports whether to keep running.
func (t *Terminal) handleKey(ev termbox.Event) bool {
	switch {
	case ev.Key == termbox.KeyEsc || ev.Ch == 'q':
		return false
	case ev.Key == termbox.KeySpace:
		t.runner.Toggle()
	case ev.Ch == 'r':
		t.solver.Reset()
		t.seedParticles()
	case ev.Ch == 'c':
		t.solver.ClearBarriers()
	case ev.Ch == 'e':
		t.erase = !t.erase
	case ev.Ch == 'n':
		t.nextShape()
	case ev.Ch == '+' || ev.Ch == '=':
		t.setViscosity(viscosityStep)
	case ev.Ch == '-':
		t.setViscosity(-viscosityStep)
	case ev.Key == termbox.KeyArrowRight || ev.Key == termbox.KeyArrowUp:
		t.solver.SetInflowSpeed(clamp(t.solver.InflowSpeed()+speedStep, 0, maxSpeed))
	case ev.Key == termbox.KeyArrowLeft || ev.Key == termbox.KeyArrowDown:
		t.solver.SetInflowSpeed(clamp(t.solver.InflowSpeed()-speedStep, 0, maxSpeed))
	}
	return true
}

func (t *Terminal) setViscosity(delta float64) {
	v := clamp(t.solver.Viscosity()+delta, minViscosity, maxViscosity)
	if err := t.solver.SetViscosity(v); err != nil {
		t.log.WithError(err).Warn("viscosity not changed")
	}
}

func (t *Terminal) nextShape() {
	names := presetCycle()
	t.shape = (t.shape + 1) % len(names)
	xdim, ydim := t.solver.Size()
	pts, err := shapes.Preset(names[t.shape], xdim, ydim, t.ShapeSize)
	if err != nil {
		t.log.WithError(err).Warn("shape not placed")
		return
	}
	t.solver.ClearBarriers()
	if err := t.solver.SetBarriers(pts, true); err != nil {
		t.log.WithError(err).Warn("shape not placed")
		return
	}
	t.log.WithField("shape", names[t.shape]).Debug("placed shape")
}

// draw places or erases a barrier under the mouse.
func (t *Terminal) draw(mx, my int) {
	x, y, ok := t.view.toLattice(mx, my)
	if !ok {
		return
	}
	if err := t.solver.SetBarrier(x, y, !t.erase); err != nil {
		t.log.WithError(err).Debug("barrier edit")
		return
	}
	t.log.WithFields(logrus.Fields{"x": x, "y": y, "erase": t.erase}).Debug("barrier edit")
}

func (t *Terminal) reallocBackBuffer(w, h int) {
	t.bbw, t.bbh = w, h
	t.backbuf = make([]termbox.Cell, w*h)
	xdim, ydim := t.solver.Size()
	t.view = newViewport(w, h-1, xdim, ydim)
	t.seedParticles()
}

func (t *Terminal) seedParticles() {
	xdim, ydim := t.solver.Size()
	t.particles = fluid.SeedParticles(t.view.h/4+1, t.view.w/8+1, xdim, ydim)
}

func (t *Terminal) advect() {
	speed := float64(t.runner.StepsPerFrame)
	if !t.runner.Running() {
		return
	}
	for _, p := range t.particles {
		p.Advect(&t.frame, speed)
		if p.GetDeath() {
			p.Respawn()
		}
	}
}

func (t *Terminal) redraw() {
	for i := range t.backbuf {
		t.backbuf[i] = termbox.Cell{Ch: ' ', Fg: termbox.ColorDefault, Bg: termbox.ColorDefault}
	}

	f := &t.frame
	for row := 0; row < t.view.h && row < t.bbh; row++ {
		for col := 0; col < t.view.w && col < t.bbw; col++ {
			x, y, ok := t.view.toLattice(col, row)
			if !ok || !f.Inside(x, y) {
				continue
			}
			r, fg, bg := t.cellAttr(f, f.Index(x, y))()
			t.backbuf[t.bbw*row+col] = termbox.Cell{Ch: r, Fg: fg, Bg: bg}
		}
	}
	for _, p := range t.particles {
		if p.GetDeath() {
			continue
		}
		x, y := p.Cell()
		col, row := t.view.toScreen(x, y)
		if col >= 0 && col < t.bbw && row >= 0 && row < t.view.h {
			t.backbuf[t.bbw*row+col].Ch = tracerRune
			t.backbuf[t.bbw*row+col].Fg = termbox.ColorYellow
		}
	}
	if t.bbh > 0 {
		t.status(t.bbh - 1)
	}

	copy(termbox.CellBuffer(), t.backbuf)
	termbox.Flush()
}

func (t *Terminal) cellAttr(f *fluid.Frame, i int) attrFunc {
	if f.Barrier[i] {
		return func() (rune, termbox.Attribute, termbox.Attribute) {
			return barrierRune, termbox.ColorWhite, termbox.ColorDefault
		}
	}
	curl := f.Curl[i]
	return func() (rune, termbox.Attribute, termbox.Attribute) {
		fg := termbox.ColorBlue
		if curl > 0 {
			fg = termbox.ColorRed
		}
		return render.Glyph(curl, t.Contrast), fg, termbox.ColorDefault
	}
}

func (t *Terminal) status(row int) {
	line := statusLine(t.frame.Step, t.solver.Viscosity(), t.solver.InflowSpeed(), t.runner.Running(), t.erase)
	line = runewidth.Truncate(line, t.bbw, "…")

	col := 0
	for _, r := range line {
		if col >= t.bbw {
			break
		}
		t.backbuf[t.bbw*row+col] = termbox.Cell{Ch: r, Fg: termbox.ColorBlack, Bg: termbox.ColorWhite}
		col += runewidth.RuneWidth(r)
	}
}

func statusLine(step int, viscosity, speed float64, running, erase bool) string {
	state := "paused"
	if running {
		state = "running"
	}
	mode := "draw"
	if erase {
		mode = "erase"
	}
	return fmt.Sprintf(" %s  step %d  ν=%.3f  u=%.3f  %s │ space run  r reset  c clear  e draw/erase  n shape  +/- ν  ←/→ u  q quit",
		state, step, viscosity, speed, mode)
}

func presetCycle() []string {
	var names []string
	for _, n := range shapes.Names() {
		if n != shapes.None {
			names = append(names, n)
		}
	}
	return names
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// viewport maps a w×h block of terminal cells onto a xdim×ydim lattice,
// flipping rows so that y grows upwards.
type viewport struct {
	w, h       int
	xdim, ydim int
}

func newViewport(w, h, xdim, ydim int) viewport {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return viewport{w: w, h: h, xdim: xdim, ydim: ydim}
}

func (v viewport) toLattice(col, row int) (int, int, bool) {
	if col < 0 || col >= v.w || row < 0 || row >= v.h {
		return 0, 0, false
	}
	x := col * v.xdim / v.w
	y := v.ydim - 1 - row*v.ydim/v.h
	return x, y, true
}

func (v viewport) toScreen(x, y int) (int, int) {
	col := x * v.w / v.xdim
	row := (v.ydim - 1 - y) * v.h / v.ydim
	return col, row
}
