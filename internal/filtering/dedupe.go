package filtering

import (
	"context"

	"github.com/spigell/matchdeck/internal/profiles"
)

type dedupeFilter struct{}

// NewDedupe creates a filter that keeps only the first profile for every ID.
// Deck cards are keyed by ID, so it always runs.
func NewDedupe() Filter {
	return &dedupeFilter{}
}

func (f *dedupeFilter) Name() string { return "dedupe" }

func (f *dedupeFilter) Disable(string) {}

func (f *dedupeFilter) IsEnabled() bool { return true }

func (f *dedupeFilter) Validate() error { return nil }

func (f *dedupeFilter) Apply(_ context.Context, p *profiles.Profiles) (*profiles.Profiles, Step, error) {
	initial := p.Len()
	seen := make(map[string]struct{}, initial)
	dropped := p.Exclude(func(item profiles.Profile) bool {
		if _, ok := seen[item.ID]; ok {
			return true
		}
		seen[item.ID] = struct{}{}
		return false
	})

	return p, Step{Initial: initial, Dropped: len(dropped), Left: p.Len()}, nil
}
