// Package card renders one profile as a card of the review stack and wires the
// gesture of the top card to the deck.
package card

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spigell/matchdeck/internal/profiles"
)

const (
	maxKeywords = 5
	// Stack styling per level of depth below the top card.
	scaleStep   = 0.05
	liftStep    = 10
	opacityStep = 0.2
)

type Breakdown struct {
	Semantic      int `json:"semantic"`
	Compatibility int `json:"compatibility"`
	Feasibility   int `json:"feasibility"`
}

// View is everything a front end needs to draw a card. Optional fields are
// left empty when the profile does not carry them.
type View struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Initial         string     `json:"initial"`
	Title           string     `json:"title,omitempty"`
	Department      string     `json:"department,omitempty"`
	ImageURL        string     `json:"image_url,omitempty"`
	Headline        string     `json:"headline"`
	HeadlineIsMatch bool       `json:"headline_is_match"`
	Keywords        []string   `json:"keywords"`
	MatchPercent    *int       `json:"match_percent,omitempty"`
	Breakdown       *Breakdown `json:"breakdown,omitempty"`
	Hiring          bool       `json:"hiring"`
	RecentWork      string     `json:"recent_work,omitempty"`

	Active  bool    `json:"active"`
	Depth   int     `json:"depth"`
	Scale   float64 `json:"scale"`
	LiftY   float64 `json:"lift_y"`
	Opacity float64 `json:"opacity"`
}

func Render(p profiles.Profile, depth int) View {
	v := View{
		ID:              p.ID,
		Name:            p.Name,
		Initial:         initial(p.Name),
		Title:           p.Title,
		Department:      p.Department,
		ImageURL:        p.ImageURL,
		Headline:        p.Headline(),
		HeadlineIsMatch: strings.TrimSpace(p.MatchSummary) != "",
		Keywords:        firstN(p.Keywords, maxKeywords),
		Active:          depth == 0,
		Depth:           depth,
		Scale:           1 - float64(depth)*scaleStep,
		LiftY:           float64(depth * liftStep),
		Opacity:         math.Max(0, 1-float64(depth)*opacityStep),
	}

	if p.Scores != nil {
		final := percent(p.Scores.Final)
		v.MatchPercent = &final
		v.Breakdown = &Breakdown{
			Semantic:      percent(p.Scores.Semantic),
			Compatibility: percent(p.Scores.Compatibility),
			Feasibility:   percent(p.Scores.Feasibility),
		}
	}

	if p.Activity != nil {
		v.Hiring = p.Activity.Hiring
		if len(p.Activity.RecentPublications) > 0 {
			v.RecentWork = p.Activity.RecentPublications[0]
		}
	}

	return v
}

// Text renders the card for a terminal.
func (v View) Text() string {
	var b strings.Builder

	header := v.Name
	if v.MatchPercent != nil {
		header = fmt.Sprintf("%s  [%d%% match]", header, *v.MatchPercent)
	}
	if v.Hiring {
		header += "  [hiring]"
	}
	b.WriteString(header)
	b.WriteString("\n")

	if v.Title != "" {
		b.WriteString(v.Title + "\n")
	}
	if v.Department != "" {
		b.WriteString(v.Department + "\n")
	}
	if v.Headline != "" {
		b.WriteString("\n" + v.Headline + "\n")
	}
	if v.Breakdown != nil {
		fmt.Fprintf(&b, "\nsemantic %d%% | compatibility %d%% | feasibility %d%%\n",
			v.Breakdown.Semantic, v.Breakdown.Compatibility, v.Breakdown.Feasibility)
	}
	if len(v.Keywords) > 0 {
		b.WriteString("\n#" + strings.Join(v.Keywords, " #") + "\n")
	}
	if v.RecentWork != "" {
		b.WriteString("\nrecent work: " + v.RecentWork + "\n")
	}

	return b.String()
}

func percent(v float64) int {
	return int(math.Round(v * 100))
}

func initial(name string) string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(name))
	if r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}

func firstN(values []string, n int) []string {
	if len(values) > n {
		values = values[:n]
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
