// Package deck sequences the review of a fixed queue of profiles.
//
// A deck is a small state machine:
//
//	Reviewing(cursor < len) --Commit--> Transitioning --settle--> Reviewing(cursor+1)
//	Reviewing(cursor == len) == Exhausted
//
// Transitioning rejects commits, so the cursor can never move more than one
// record per user action. Exhausted has no outgoing edges.
package deck

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/matchdeck/internal/gesture"
	"github.com/spigell/matchdeck/internal/logger"
	"github.com/spigell/matchdeck/internal/profiles"
)

// DefaultSettleDelay matches the exit animation of the top card.
const DefaultSettleDelay = 300 * time.Millisecond

type State int

const (
	StateReviewing State = iota
	StateTransitioning
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateReviewing:
		return "reviewing"
	case StateTransitioning:
		return "transitioning"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Callbacks are invoked without any deck lock held. They must not block.
type Callbacks struct {
	OnMatch    func(profiles.Profile)
	OnSkip     func(profiles.Profile)
	OnComplete func()
	// OnAdvance fires after every settle, including the final one.
	OnAdvance func(Snapshot)
}

// Snapshot is a read-only copy of the deck position.
type Snapshot struct {
	Cursor  int    `json:"cursor"`
	Total   int    `json:"total"`
	State   string `json:"state"`
	Pending string `json:"pending"`
	// Empty is set for a deck built from no records at all.
	Empty    bool   `json:"empty"`
	Progress string `json:"progress"`
}

type Controller struct {
	mu sync.Mutex

	queue     []profiles.Profile
	cursor    int
	state     State
	pending   gesture.Direction
	completed bool
	closed    bool
	timer     Timer

	settleDelay time.Duration
	scheduler   Scheduler
	callbacks   Callbacks
	logger      *zap.Logger
}

type Option func(*Controller)

// WithSettleDelay sets the time between a commit and the cursor advance.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.settleDelay = d
		}
	}
}

func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		if s != nil {
			c.scheduler = s
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds a deck over a copy of queue. An empty queue yields a deck that
// is exhausted from the start and never completes.
func New(queue []profiles.Profile, cb Callbacks, opts ...Option) *Controller {
	q := make([]profiles.Profile, len(queue))
	copy(q, queue)

	c := &Controller{
		queue:       q,
		settleDelay: DefaultSettleDelay,
		scheduler:   realScheduler{},
		callbacks:   cb,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if len(q) == 0 {
		c.state = StateExhausted
	}

	return c
}

// ActiveCard returns the record under the cursor. While a transition is in
// flight this is still the committing card.
func (c *Controller) ActiveCard() (profiles.Profile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cursor >= len(c.queue) {
		return profiles.Profile{}, false
	}
	return c.queue[c.cursor], true
}

// Lookahead returns up to n records starting at the cursor.
func (c *Controller) Lookahead(n int) []profiles.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n <= 0 || c.cursor >= len(c.queue) {
		return nil
	}

	end := c.cursor + n
	if end > len(c.queue) {
		end = len(c.queue)
	}

	out := make([]profiles.Profile, end-c.cursor)
	copy(out, c.queue[c.cursor:end])
	return out
}

// Commit records a decision on the active card. It is a no-op returning false
// when a transition is in flight, the deck is exhausted or closed, or dir is None.
func (c *Controller) Commit(dir gesture.Direction) bool {
	if dir != gesture.Left && dir != gesture.Right {
		return false
	}

	c.mu.Lock()
	if c.closed || c.state != StateReviewing || c.cursor >= len(c.queue) {
		c.logger.Debug("commit ignored", append(
			logger.DeckFields(c.cursor, len(c.queue), c.state.String()),
			zap.String("direction", dir.String()),
			zap.Bool("closed", c.closed),
		)...)
		c.mu.Unlock()
		return false
	}

	card := c.queue[c.cursor]
	c.state = StateTransitioning
	c.pending = dir
	c.mu.Unlock()

	c.logger.Debug("commit",
		zap.String("profile_id", card.ID),
		zap.String("direction", dir.String()),
	)

	if dir == gesture.Right {
		if c.callbacks.OnMatch != nil {
			c.callbacks.OnMatch(card)
		}
	} else if c.callbacks.OnSkip != nil {
		c.callbacks.OnSkip(card)
	}

	c.mu.Lock()
	if !c.closed {
		c.timer = c.scheduler.AfterFunc(c.settleDelay, c.settle)
	}
	c.mu.Unlock()

	return true
}

func (c *Controller) settle() {
	c.mu.Lock()
	if c.closed || c.state != StateTransitioning {
		c.mu.Unlock()
		return
	}

	c.timer = nil
	c.cursor++
	c.pending = gesture.None
	c.state = StateReviewing

	complete := false
	if c.cursor >= len(c.queue) {
		c.state = StateExhausted
		if !c.completed {
			c.completed = true
			complete = true
		}
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if complete {
		c.logger.Debug("deck exhausted", logger.DeckFields(snap.Cursor, snap.Total, snap.State)...)
		if c.callbacks.OnComplete != nil {
			c.callbacks.OnComplete()
		}
	}

	if c.callbacks.OnAdvance != nil {
		c.callbacks.OnAdvance(snap)
	}
}

// Close stops a pending settle edge and makes the deck inert.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		Cursor:  c.cursor,
		Total:   len(c.queue),
		State:   c.state.String(),
		Pending: c.pending.String(),
		Empty:   len(c.queue) == 0,
	}
	if c.cursor < len(c.queue) {
		snap.Progress = fmt.Sprintf("%d / %d", c.cursor+1, len(c.queue))
	}
	return snap
}

// Progress is the "n / total" label, empty once the deck is exhausted.
func (c *Controller) Progress() string {
	return c.Snapshot().Progress
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Len() int {
	return len(c.queue)
}
