package profiles

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// UnknownName is shown for profiles that arrive without a name.
const UnknownName = "Unknown Professor"

type rawResult struct {
	Profile     map[string]any `mapstructure:"profile"`
	Scores      map[string]any `mapstructure:"scores"`
	SummaryText string         `mapstructure:"summary_text"`
}

type rawProfile struct {
	ProfileID  string         `mapstructure:"profile_id"`
	ID         string         `mapstructure:"id"`
	InternalID string         `mapstructure:"_id"`
	ProfileURL string         `mapstructure:"profile_url"`
	Name       string         `mapstructure:"name"`
	Title      string         `mapstructure:"title"`
	Department string         `mapstructure:"department"`
	Summary    string         `mapstructure:"summary"`
	ImageURL   string         `mapstructure:"image_url"`
	Keywords   any            `mapstructure:"keywords"`
	Activity   map[string]any `mapstructure:"activity_signals"`

	// Flattened activity fields, used when activity_signals is absent.
	RecentPublications []string `mapstructure:"recent_publications"`
	NewsMentions       []string `mapstructure:"news_mentions"`
	Hiring             bool     `mapstructure:"hiring"`
	LastUpdated        string   `mapstructure:"last_updated"`
}

type rawActivity struct {
	RecentPublications []string `mapstructure:"recent_publications"`
	NewsMentions       []string `mapstructure:"news_mentions"`
	Hiring             bool     `mapstructure:"hiring"`
	LastUpdated        string   `mapstructure:"last_updated"`
}

type rawScores struct {
	Semantic      float64 `mapstructure:"semantic"`
	Compatibility float64 `mapstructure:"compatibility"`
	Feasibility   float64 `mapstructure:"feasibility"`
	Final         float64 `mapstructure:"final_score"`
}

// NormalizeResponse turns a loosely typed search response into profiles.
// It never fails: every missing or malformed field falls back to a default.
func NormalizeResponse(raw map[string]any) *Profiles {
	items, _ := raw["results"].([]any)

	result := &Profiles{Items: make([]Profile, 0, len(items))}
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		result.Items = append(result.Items, NormalizeResult(entry))
	}

	return result
}

// NormalizeResult converts a single `{profile, scores, summary_text}` entry.
func NormalizeResult(entry map[string]any) Profile {
	var res rawResult
	weakDecode(entry, &res)

	var rp rawProfile
	weakDecode(res.Profile, &rp)

	profile := Profile{
		ID:           firstNonEmpty(rp.ProfileID, rp.ID, rp.InternalID, rp.ProfileURL),
		Name:         firstNonEmpty(rp.Name, UnknownName),
		Title:        strings.TrimSpace(rp.Title),
		Department:   strings.TrimSpace(rp.Department),
		Summary:      strings.TrimSpace(rp.Summary),
		Keywords:     normalizeKeywords(rp.Keywords),
		ImageURL:     strings.TrimSpace(rp.ImageURL),
		Activity:     normalizeActivity(&rp),
		Scores:       normalizeScores(res.Scores),
		MatchSummary: strings.TrimSpace(res.SummaryText),
	}

	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}

	return profile
}

func normalizeActivity(rp *rawProfile) *ActivitySignals {
	if len(rp.Activity) > 0 {
		var ra rawActivity
		weakDecode(rp.Activity, &ra)
		return &ActivitySignals{
			RecentPublications: cleanList(ra.RecentPublications),
			NewsMentions:       cleanList(ra.NewsMentions),
			Hiring:             ra.Hiring,
			LastUpdated:        strings.TrimSpace(ra.LastUpdated),
		}
	}

	return &ActivitySignals{
		RecentPublications: cleanList(rp.RecentPublications),
		NewsMentions:       cleanList(rp.NewsMentions),
		Hiring:             rp.Hiring,
		LastUpdated:        strings.TrimSpace(rp.LastUpdated),
	}
}

func normalizeScores(raw map[string]any) *Scores {
	if raw == nil {
		return nil
	}

	var rs rawScores
	weakDecode(raw, &rs)

	return &Scores{
		Semantic:      clampUnit(rs.Semantic),
		Compatibility: clampUnit(rs.Compatibility),
		Feasibility:   clampUnit(rs.Feasibility),
		Final:         clampUnit(rs.Final),
	}
}

// normalizeKeywords accepts a list or a comma separated string.
func normalizeKeywords(v any) []string {
	switch val := v.(type) {
	case nil:
		return []string{}
	case string:
		return cleanList(strings.Split(val, ","))
	case []string:
		return cleanList(val)
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprintf("%v", item))
		}
		return cleanList(out)
	default:
		return cleanList([]string{fmt.Sprintf("%v", val)})
	}
}

func weakDecode(input, output any) {
	if input == nil {
		return
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return
	}

	// Fields that fail to decode keep their zero value; the rest are still set.
	_ = decoder.Decode(input)
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
