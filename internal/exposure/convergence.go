package exposure

// DefaultConvergenceCycles is the number of identical consecutive EVs after
// which a control session is considered settled.
const DefaultConvergenceCycles = 10

// Convergence tracks the EVs returned by Controller.Step and reports when
// they have stopped changing.
//
// The first observed EV is compared with the starting EV. Each EV equal to its
// predecessor extends the streak by one; a different EV restarts the streak at
// one, counting itself.
type Convergence struct {
	cycles int
	last   float64
	streak int
}

// NewConvergence returns a tracker that fires after cycles identical EVs.
// Values below one are treated as one.
func NewConvergence(cycles int, startEV float64) *Convergence {
	if cycles < 1 {
		cycles = 1
	}
	return &Convergence{cycles: cycles, last: startEV}
}

// Observe records the EV returned by one step and reports whether the session
// has converged.
func (c *Convergence) Observe(ev float64) bool {
	if ev == c.last {
		c.streak++
	} else {
		c.streak = 1
		c.last = ev
	}
	return c.streak >= c.cycles
}

// Streak returns the number of consecutive observations equal to the last EV.
func (c *Convergence) Streak() int {
	return c.streak
}

// Reset clears the streak and sets the reference EV.
func (c *Convergence) Reset(ev float64) {
	c.last = ev
	c.streak = 0
}
