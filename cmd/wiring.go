package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/matchdeck/internal/ai/gemini"
	"github.com/spigell/matchdeck/internal/deck"
	"github.com/spigell/matchdeck/internal/filtering"
	"github.com/spigell/matchdeck/internal/profiles"
	"github.com/spigell/matchdeck/internal/secrets"
	"github.com/spigell/matchdeck/internal/session"
)

// newSession wires the search client, the filter steps and the deck options
// from config into a fresh review session.
func newSession(ctx context.Context, config *Config, logger *zap.Logger, onChange func(session.Snapshot)) (*session.Session, error) {
	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	token, err := secrets.LoadOptional(secrets.Source{
		Name: "search token",
		File: config.Search.TokenFile,
		Env:  tokenEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("loading search token: %w", err)
	}

	client := profiles.New(logger, config.Search.Endpoint, token).WithTimeout(config.Search.Timeout)
	if config.Search.UserAgent != "" {
		client.UserAgent = config.Search.UserAgent
	}

	filters, err := prepareFilters(ctx, config, logger)
	if err != nil {
		return nil, err
	}

	for _, status := range filtering.Describe(filters) {
		logger.Debug("filter configured",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}

	return session.New(client, session.Options{
		Limit:       config.Search.Limit,
		Filters:     filters,
		DeckOptions: []deck.Option{deck.WithSettleDelay(config.Deck.SettleDelay)},
		Logger:      logger,
		OnChange:    onChange,
	}), nil
}

func prepareFilters(ctx context.Context, config *Config, logger *zap.Logger) ([]filtering.Filter, error) {
	steps := []filtering.Filter{
		filtering.NewDedupe(),
		filtering.NewMinScore(config.Filters.MinScore, logger),
		filtering.NewExcludedDepartments(config.Filters.ExcludeDepartments, logger),
	}

	if !config.AI.Enabled {
		steps = append(steps, filtering.NewAISummary(nil, logger))
		filtering.DisableByName(steps, "ai_summary", "ai is disabled in config")
		return steps, nil
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: config.AI.Gemini.APIKey,
		File:  config.AI.Gemini.APIKeyFile,
		Env:   geminiKeyEnv,
	})
	if err != nil {
		return nil, err
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, config.AI.Gemini.Model)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	summarizer := gemini.NewSummarizer(generator, logger, config.AI.Gemini.MaxLogLength)
	logger.Info("ai summaries enabled", zap.String("provider", config.AI.Provider), zap.String("model", generator.Model()))

	return append(steps, filtering.NewAISummary(summarizer, logger)), nil
}
