package gesture

// Tracker holds the drag offset of one card for the duration of a gesture.
// A tracker created for a card below the top of the stack is inert.
type Tracker struct {
	cfg    Config
	active bool
	offset float64
}

func NewTracker(cfg Config, active bool) *Tracker {
	return &Tracker{cfg: cfg.WithDefaults(), active: active}
}

func (t *Tracker) Active() bool { return t.active }

func (t *Tracker) Offset() float64 { return t.offset }

// Move records the current offset and returns the live visual parameters.
func (t *Tracker) Move(x float64) Params {
	if !t.active {
		return Rest()
	}
	t.offset = x
	return t.cfg.VisualParams(x)
}

// Release ends the gesture. The offset always snaps back to zero; the
// returned direction is None when the card should stay.
func (t *Tracker) Release(velocity float64) Direction {
	if !t.active {
		return None
	}
	dir := t.cfg.Decide(t.offset, velocity)
	t.offset = 0
	return dir
}
