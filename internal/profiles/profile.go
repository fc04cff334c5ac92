package profiles

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Profile is a normalized researcher profile. Values are treated as immutable
// once they leave the normalization boundary.
type Profile struct {
	ID           string           `json:"profile_id"`
	Name         string           `json:"name"`
	Title        string           `json:"title,omitempty"`
	Department   string           `json:"department,omitempty"`
	Summary      string           `json:"summary"`
	Keywords     []string         `json:"keywords"`
	ImageURL     string           `json:"image_url,omitempty"`
	Activity     *ActivitySignals `json:"activity_signals,omitempty"`
	Scores       *Scores          `json:"scores,omitempty"`
	MatchSummary string           `json:"match_summary,omitempty"`
}

type ActivitySignals struct {
	RecentPublications []string `json:"recent_publications"`
	NewsMentions       []string `json:"news_mentions"`
	Hiring             bool     `json:"hiring"`
	LastUpdated        string   `json:"last_updated"`
}

// Scores holds the match score breakdown, every component in [0,1].
type Scores struct {
	Semantic      float64 `json:"semantic"`
	Compatibility float64 `json:"compatibility"`
	Feasibility   float64 `json:"feasibility"`
	Final         float64 `json:"final_score"`
}

// Headline returns the text shown as the card body: the precomputed match
// narrative when there is one, the plain summary otherwise.
func (p Profile) Headline() string {
	if strings.TrimSpace(p.MatchSummary) != "" {
		return p.MatchSummary
	}
	return p.Summary
}

// WithMatchSummary returns a copy of the profile carrying the given narrative.
func (p Profile) WithMatchSummary(summary string) Profile {
	p.MatchSummary = strings.TrimSpace(summary)
	return p
}

// FinalScore returns the final score or 0 when the profile was not scored.
func (p Profile) FinalScore() float64 {
	if p.Scores == nil {
		return 0
	}
	return p.Scores.Final
}

type Profiles struct {
	Items []Profile
}

func (p *Profiles) Len() int {
	return len(p.Items)
}

func (p *Profiles) IDs() []string {
	ids := make([]string, 0, len(p.Items))
	for _, item := range p.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

func (p *Profiles) FindByID(id string) (Profile, bool) {
	for _, item := range p.Items {
		if item.ID == id {
			return item, true
		}
	}
	return Profile{}, false
}

// Exclude drops every profile matching the predicate, preserving the order of
// the rest, and returns the IDs of the dropped profiles.
func (p *Profiles) Exclude(match func(Profile) bool) []string {
	var excluded []string
	kept := p.Items[:0:0]
	for _, item := range p.Items {
		if match(item) {
			excluded = append(excluded, item.ID)
			continue
		}
		kept = append(kept, item)
	}
	p.Items = kept
	return excluded
}

// DumpToTmpFile writes the profiles as indented JSON into a new temp file and
// returns its name.
func (p *Profiles) DumpToTmpFile(pattern string) (string, error) {
	if pattern == "" {
		pattern = "profiles_*.json"
	}

	file, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p.Items); err != nil {
		return "", fmt.Errorf("encode profiles: %w", err)
	}
	return file.Name(), nil
}
