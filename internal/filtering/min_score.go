package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/matchdeck/internal/profiles"
)

type minScoreFilter struct {
	enabled bool
	reason  string
	min     float64
	logger  *zap.Logger
}

// NewMinScore creates a filter that drops scored profiles below min.
// Profiles the service did not score are kept. A zero min disables the step.
func NewMinScore(min float64, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &minScoreFilter{enabled: min > 0, min: min, logger: logger}
	if !f.enabled {
		f.reason = "minimum score is not set"
	}
	return f
}

func (f *minScoreFilter) Name() string { return "min_score" }

func (f *minScoreFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *minScoreFilter) IsEnabled() bool { return f.enabled }

func (f *minScoreFilter) Validate() error {
	if f.min < 0 || f.min > 1 {
		return fmt.Errorf("minimum score must be within [0, 1], got %.2f", f.min)
	}
	return nil
}

func (f *minScoreFilter) Apply(_ context.Context, p *profiles.Profiles) (*profiles.Profiles, Step, error) {
	initial := p.Len()
	dropped := p.Exclude(func(item profiles.Profile) bool {
		return item.Scores != nil && item.Scores.Final < f.min
	})

	if len(dropped) > 0 {
		f.logger.Info("excluding profiles below the minimum score",
			zap.Float64("min_score", f.min),
			zap.Strings("excluded_profiles", dropped),
			zap.Int("profiles_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(dropped), Left: p.Len()}, nil
}

func (f *minScoreFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.enabled,
		Reason:  f.reason,
		Details: map[string]string{"min_score": fmt.Sprintf("%.2f", f.min)},
	}
}
