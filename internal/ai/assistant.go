package ai

import (
	"context"

	"github.com/spigell/matchdeck/internal/profiles"
)

// Summarizer writes the short match narrative shown on a card when the search
// service did not provide one.
type Summarizer interface {
	Summarize(ctx context.Context, query string, profile profiles.Profile) (string, error)
}
