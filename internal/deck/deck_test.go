package deck

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/matchdeck/internal/gesture"
	"github.com/spigell/matchdeck/internal/profiles"
)

type recorder struct {
	matched   []string
	skipped   []string
	completed int
	advances  []Snapshot
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnMatch:    func(p profiles.Profile) { r.matched = append(r.matched, p.ID) },
		OnSkip:     func(p profiles.Profile) { r.skipped = append(r.skipped, p.ID) },
		OnComplete: func() { r.completed++ },
		OnAdvance:  func(s Snapshot) { r.advances = append(r.advances, s) },
	}
}

func records(ids ...string) []profiles.Profile {
	out := make([]profiles.Profile, 0, len(ids))
	for _, id := range ids {
		out = append(out, profiles.Profile{ID: id, Name: id})
	}
	return out
}

func newTestDeck(ids ...string) (*Controller, *recorder, *ManualScheduler) {
	rec := &recorder{}
	sched := NewManualScheduler()
	return New(records(ids...), rec.callbacks(), WithScheduler(sched)), rec, sched
}

func TestDeck_Scenario(t *testing.T) {
	c, rec, sched := newTestDeck("A", "B", "C")

	require.True(t, c.Commit(gesture.Right))
	assert.Equal(t, []string{"A"}, rec.matched, "match fires synchronously")
	assert.Equal(t, 0, c.Snapshot().Cursor, "cursor waits for the settle delay")
	assert.Equal(t, StateTransitioning, c.State())
	assert.Equal(t, "right", c.Snapshot().Pending)

	require.Equal(t, 1, sched.Fire())
	assert.Equal(t, 1, c.Snapshot().Cursor)
	assert.Equal(t, "none", c.Snapshot().Pending)

	require.True(t, c.Commit(gesture.Left))
	assert.Equal(t, []string{"B"}, rec.skipped)
	sched.Fire()
	assert.Equal(t, 2, c.Snapshot().Cursor)

	require.True(t, c.Commit(gesture.Right))
	assert.Equal(t, 0, rec.completed, "complete waits for the final settle")
	sched.Fire()

	snap := c.Snapshot()
	assert.Equal(t, 3, snap.Cursor)
	assert.Equal(t, StateExhausted.String(), snap.State)
	assert.Equal(t, []string{"A", "C"}, rec.matched)
	assert.Equal(t, 1, rec.completed)
	assert.Len(t, rec.advances, 3)

	_, ok := c.ActiveCard()
	assert.False(t, ok)
}

func TestDeck_CommitDuringTransitionIsDropped(t *testing.T) {
	c, rec, sched := newTestDeck("A", "B")

	require.True(t, c.Commit(gesture.Right))
	assert.False(t, c.Commit(gesture.Right))
	assert.False(t, c.Commit(gesture.Left))

	assert.Equal(t, []string{"A"}, rec.matched)
	assert.Empty(t, rec.skipped)
	assert.Equal(t, 1, sched.Pending(), "dropped commits schedule nothing")

	sched.Fire()
	assert.Equal(t, 1, c.Snapshot().Cursor, "cursor moves one record per action")

	card, ok := c.ActiveCard()
	require.True(t, ok)
	assert.Equal(t, "B", card.ID)
}

func TestDeck_ExactlyNCommitsThenOneComplete(t *testing.T) {
	for n := 1; n <= 6; n++ {
		ids := make([]string, n)
		for i := range ids {
			ids[i] = string(rune('a' + i))
		}
		c, rec, sched := newTestDeck(ids...)

		commits := 0
		for i := 0; i < n*2; i++ {
			dir := gesture.Left
			if i%3 == 0 {
				dir = gesture.Right
			}
			if c.Commit(dir) {
				commits++
			}
			// second attempt while in flight is always dropped
			c.Commit(dir)
			sched.Fire()
		}

		assert.Equal(t, n, commits, "n=%d", n)
		assert.Equal(t, n, len(rec.matched)+len(rec.skipped), "n=%d", n)
		assert.Equal(t, 1, rec.completed, "n=%d", n)
	}
}

func TestDeck_Empty(t *testing.T) {
	c, rec, sched := newTestDeck()

	snap := c.Snapshot()
	assert.True(t, snap.Empty)
	assert.Equal(t, StateExhausted.String(), snap.State)
	assert.Empty(t, snap.Progress)

	assert.False(t, c.Commit(gesture.Right))
	assert.Zero(t, sched.Pending())
	assert.Zero(t, rec.completed, "an empty deck never advances, so it never completes")
	assert.Nil(t, c.Lookahead(3))
}

func TestDeck_CommitOnExhaustedIsNoop(t *testing.T) {
	c, rec, sched := newTestDeck("A")

	require.True(t, c.Commit(gesture.Left))
	sched.Fire()
	require.Equal(t, StateExhausted, c.State())

	assert.False(t, c.Commit(gesture.Right))
	assert.Empty(t, rec.matched)
	assert.Equal(t, 1, rec.completed)
	assert.Equal(t, 1, c.Snapshot().Cursor)
}

func TestDeck_NoneDirectionIsIgnored(t *testing.T) {
	c, rec, sched := newTestDeck("A")

	assert.False(t, c.Commit(gesture.None))
	assert.Equal(t, StateReviewing, c.State())
	assert.Zero(t, sched.Pending())
	assert.Empty(t, rec.matched)
}

func TestDeck_Lookahead(t *testing.T) {
	c, _, sched := newTestDeck("A", "B", "C", "D")

	got := c.Lookahead(3)
	require.Len(t, got, 3)
	assert.Equal(t, "A", got[0].ID)
	assert.Equal(t, "C", got[2].ID)

	c.Commit(gesture.Left)
	// both the committing card and its successor are visible during the transition
	assert.Equal(t, "A", c.Lookahead(2)[0].ID)
	sched.Fire()

	got = c.Lookahead(10)
	require.Len(t, got, 3)
	assert.Equal(t, "B", got[0].ID)
	assert.Equal(t, "2 / 4", c.Snapshot().Progress)
	assert.Equal(t, "2 / 4", c.Progress())
}

func TestDeck_CloseStopsPendingSettle(t *testing.T) {
	c, rec, sched := newTestDeck("A")

	require.True(t, c.Commit(gesture.Right))
	c.Close()

	assert.Zero(t, sched.Pending())
	assert.Zero(t, sched.Fire())
	assert.Equal(t, 0, c.Snapshot().Cursor)
	assert.Zero(t, rec.completed)
	assert.False(t, c.Commit(gesture.Right))
}

func TestDeck_QueueIsCopied(t *testing.T) {
	queue := records("A", "B")
	c := New(queue, Callbacks{}, WithScheduler(NewManualScheduler()))

	queue[0].ID = "mutated"

	card, ok := c.ActiveCard()
	require.True(t, ok)
	assert.Equal(t, "A", card.ID)
}

func TestDeck_SettleDelayOption(t *testing.T) {
	sched := NewManualScheduler()
	c := New(records("A"), Callbacks{}, WithScheduler(sched), WithSettleDelay(50*time.Millisecond))

	c.Commit(gesture.Right)
	assert.Equal(t, 50*time.Millisecond, sched.LastDelay())

	d := New(records("A"), Callbacks{}, WithScheduler(sched))
	d.Commit(gesture.Right)
	assert.Equal(t, DefaultSettleDelay, sched.LastDelay())
}

func TestDeck_RealScheduler(t *testing.T) {
	done := make(chan struct{})
	c := New(records("A"), Callbacks{OnComplete: func() { close(done) }}, WithSettleDelay(time.Millisecond))

	require.True(t, c.Commit(gesture.Right))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("deck did not complete")
	}
	assert.Equal(t, StateExhausted, c.State())
}

func TestDeck_CallbacksMayReadDeck(t *testing.T) {
	sched := NewManualScheduler()
	var c *Controller
	var seen string
	c = New(records("A", "B"), Callbacks{
		OnMatch: func(profiles.Profile) {
			card, _ := c.ActiveCard()
			seen = card.ID
		},
	}, WithScheduler(sched))

	require.True(t, c.Commit(gesture.Right))
	assert.Equal(t, "A", seen)
}
