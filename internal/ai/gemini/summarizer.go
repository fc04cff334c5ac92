package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/matchdeck/internal/logger"
	"github.com/spigell/matchdeck/internal/profiles"
	"github.com/spigell/matchdeck/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Summarizer asks Gemini for a short match narrative. Results are cached per
// query and profile content for the lifetime of the process.
type Summarizer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int

	cacheMu sync.RWMutex
	cache   map[string]string
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	// Longer replies are cut; the card shows a short narrative only.
	maxSummaryRunes = 600
)

func NewSummarizer(generator contentGenerator, log *zap.Logger, maxLogLength int) *Summarizer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Summarizer{
		generator: generator,
		logger:    logger.WithCommonFields(log, "gemini", generator.Model()),
		maxLogLen: maxLogLength,
		cache:     make(map[string]string),
	}
}

func (s *Summarizer) Summarize(ctx context.Context, query string, profile profiles.Profile) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("query is required")
	}

	payload := map[string]any{
		"name":       profile.Name,
		"title":      profile.Title,
		"department": profile.Department,
		"summary":    profile.Summary,
		"keywords":   profile.Keywords,
	}
	if profile.Scores != nil {
		payload["scores"] = profile.Scores
	}
	if profile.Activity != nil {
		payload["hiring"] = profile.Activity.Hiring
		payload["recent_publications"] = profile.Activity.RecentPublications
	}

	profileJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal profile payload: %w", err)
	}

	key := cacheKey(query, profileJSON)
	s.cacheMu.RLock()
	cached, ok := s.cache[key]
	s.cacheMu.RUnlock()
	if ok {
		return cached, nil
	}

	prompt := buildPrompt(query, string(profileJSON))

	s.logger.Debug("gemini generate content request",
		zap.String("profile_id", profile.ID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", err
	}

	s.logger.Debug("gemini generate content response",
		zap.String("profile_id", profile.ID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	summary := cleanSummary(raw)
	if summary == "" {
		return "", fmt.Errorf("gemini returned an empty summary")
	}

	s.cacheMu.Lock()
	s.cache[key] = summary
	s.cacheMu.Unlock()

	return summary, nil
}

func buildPrompt(query, profileJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Interest:\n{{QUERY}}\n\nProfile:\n{{PROFILE_JSON}}\n\nSummary:"
	}
	prompt := strings.ReplaceAll(template, "{{QUERY}}", query)
	prompt = strings.ReplaceAll(prompt, "{{PROFILE_JSON}}", profileJSON)
	return prompt
}

// cleanSummary strips code fences and wrapping quotes and flattens the reply
// into a single line.
func cleanSummary(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```text")
		raw = strings.TrimPrefix(raw, "```")
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(strings.TrimSpace(raw), "`\"")
	raw = utils.OneLine(raw)

	runes := []rune(raw)
	if len(runes) > maxSummaryRunes {
		raw = string(runes[:maxSummaryRunes])
	}
	return raw
}

func cacheKey(query string, profileJSON []byte) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(query)))
	h.Write([]byte{0})
	h.Write(profileJSON)
	return fmt.Sprintf("%x", h.Sum(nil))
}
