package card

import (
	"github.com/spigell/matchdeck/internal/deck"
	"github.com/spigell/matchdeck/internal/gesture"
	"github.com/spigell/matchdeck/internal/profiles"
)

// Committer receives the decision of the top card. *deck.Controller satisfies it.
type Committer interface {
	Commit(dir gesture.Direction) bool
}

// Presenter binds one profile to its place in the stack. Only the top card
// has a live tracker; cards underneath never capture a gesture.
type Presenter struct {
	profile   profiles.Profile
	depth     int
	tracker   *gesture.Tracker
	committer Committer
}

func NewPresenter(p profiles.Profile, depth int, cfg gesture.Config, committer Committer) *Presenter {
	return &Presenter{
		profile:   p,
		depth:     depth,
		tracker:   gesture.NewTracker(cfg, depth == 0),
		committer: committer,
	}
}

func (p *Presenter) Profile() profiles.Profile { return p.profile }

func (p *Presenter) Active() bool { return p.tracker.Active() }

func (p *Presenter) View() View { return Render(p.profile, p.depth) }

// Drag updates the offset of the gesture in progress.
func (p *Presenter) Drag(x float64) gesture.Params {
	return p.tracker.Move(x)
}

// Release ends the gesture and forwards a commit to the deck. The returned
// direction is None on snap-back; committed reports whether the deck accepted it.
func (p *Presenter) Release(velocity float64) (dir gesture.Direction, committed bool) {
	dir = p.tracker.Release(velocity)
	if dir == gesture.None || p.committer == nil {
		return dir, false
	}
	return dir, p.committer.Commit(dir)
}

// Stack builds presenters for the top n cards of the deck.
func Stack(ctrl *deck.Controller, n int, cfg gesture.Config) []*Presenter {
	cards := ctrl.Lookahead(n)
	out := make([]*Presenter, 0, len(cards))
	for depth, p := range cards {
		out = append(out, NewPresenter(p, depth, cfg, ctrl))
	}
	return out
}

// Views renders a stack top first.
func Views(stack []*Presenter) []View {
	out := make([]View, 0, len(stack))
	for _, p := range stack {
		out = append(out, p.View())
	}
	return out
}
