package filtering

import (
	"context"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/matchdeck/internal/ai"
	"github.com/spigell/matchdeck/internal/profiles"
)

type queryKey struct{}

// WithQuery attaches the user query to ctx for steps that need it.
func WithQuery(ctx context.Context, query string) context.Context {
	return context.WithValue(ctx, queryKey{}, query)
}

func queryFrom(ctx context.Context) string {
	q, _ := ctx.Value(queryKey{}).(string)
	return strings.TrimSpace(q)
}

// Summaries are requested in parallel, at most this many at a time.
const summaryConcurrency = 4

type aiSummaryFilter struct {
	enabled    bool
	reason     string
	summarizer ai.Summarizer
	logger     *zap.Logger
}

// NewAISummary creates a step that fills MatchSummary for profiles the search
// service returned without one. It never drops a profile.
func NewAISummary(summarizer ai.Summarizer, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &aiSummaryFilter{enabled: summarizer != nil, summarizer: summarizer, logger: logger}
	if !f.enabled {
		f.reason = "summarizer is not configured"
	}
	return f
}

func (f *aiSummaryFilter) Name() string { return "ai_summary" }

func (f *aiSummaryFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *aiSummaryFilter) IsEnabled() bool { return f.enabled }

func (f *aiSummaryFilter) Validate() error { return nil }

func (f *aiSummaryFilter) Apply(ctx context.Context, p *profiles.Profiles) (*profiles.Profiles, Step, error) {
	initial := p.Len()
	step := Step{Initial: initial, Left: initial}

	query := queryFrom(ctx)
	if query == "" {
		f.logger.Debug("skipping ai summaries", zap.String("reason", "no query in context"))
		return p, step, nil
	}

	var filled atomic.Int32
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(summaryConcurrency)

	// Each goroutine writes only its own index.
	for i, item := range p.Items {
		if strings.TrimSpace(item.MatchSummary) != "" {
			continue
		}

		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			summary, err := f.summarizer.Summarize(gCtx, query, item)
			if err != nil {
				f.logger.Warn("ai summary failed, keeping profile as is",
					zap.String("profile_id", item.ID),
					zap.Error(err),
				)
				return nil
			}

			p.Items[i] = item.WithMatchSummary(summary)
			filled.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, step, err
	}

	f.logger.Debug("ai summaries filled", zap.Int32("filled", filled.Load()), zap.Int("total", initial))

	return p, step, nil
}

func (f *aiSummaryFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.enabled, Reason: f.reason}
}
