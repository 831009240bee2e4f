package engine

type timerState int

const (
	timerIdle timerState = iota
	timerRunning
	timerPaused
)

func (s timerState) String() string {
	switch s {
	case timerRunning:
		return "running"
	case timerPaused:
		return "paused"
	default:
		return "idle"
	}
}

// countdown is the single exercise timer of an engine. Arming it always
// cancels whatever countdown was there before.
type countdown struct {
	state     timerState
	remaining int
}

func (c *countdown) arm(seconds int) {
	c.cancel()
	c.state = timerRunning
	c.remaining = seconds
}

func (c *countdown) cancel() {
	c.state = timerIdle
	c.remaining = 0
}

func (c *countdown) pause() {
	if c.state == timerRunning {
		c.state = timerPaused
	}
}

func (c *countdown) resume() {
	if c.state == timerPaused {
		c.state = timerRunning
	}
}

// tick moves a running countdown one second down and reports whether it ticked.
func (c *countdown) tick() bool {
	if c.state != timerRunning || c.remaining <= 0 {
		return false
	}
	c.remaining--
	return true
}

func (c *countdown) expired() bool {
	return c.state == timerRunning && c.remaining <= 0
}
