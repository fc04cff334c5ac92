// Package gesture maps a horizontal drag offset on the top card to live visual
// parameters and, on release, to a discrete swipe decision.
//
// Everything here is a pure function of the offset. Release velocity is
// accepted but ignored: a short fast flick below the distance threshold is a
// snap-back, the same as no gesture at all.
package gesture

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

type Direction int

const (
	None Direction = iota
	Left
	Right
)

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "none"
	}
}

// ParseDirection accepts "left" or "right" in any case. Anything else is an error.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	default:
		return None, fmt.Errorf("unknown direction %q", s)
	}
}

// Config holds the offset thresholds in pixels and the rotation bound in degrees.
type Config struct {
	CommitThreshold float64 `mapstructure:"commit-threshold" json:"commit_threshold"`
	FadeStart       float64 `mapstructure:"fade-start" json:"fade_start"`
	FadeEnd         float64 `mapstructure:"fade-end" json:"fade_end"`
	RotationSpan    float64 `mapstructure:"rotation-span" json:"rotation_span"`
	MaxRotation     float64 `mapstructure:"max-rotation" json:"max_rotation"`
}

func DefaultConfig() Config {
	return Config{
		CommitThreshold: 100,
		FadeStart:       100,
		FadeEnd:         200,
		RotationSpan:    200,
		MaxRotation:     25,
	}
}

// WithDefaults fills zero values from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.CommitThreshold <= 0 {
		c.CommitThreshold = d.CommitThreshold
	}
	if c.FadeStart <= 0 {
		c.FadeStart = d.FadeStart
	}
	if c.FadeEnd <= 0 {
		c.FadeEnd = d.FadeEnd
	}
	if c.RotationSpan <= 0 {
		c.RotationSpan = d.RotationSpan
	}
	if c.MaxRotation <= 0 {
		c.MaxRotation = d.MaxRotation
	}
	return c
}

func (c Config) Validate() error {
	if c.CommitThreshold <= 0 {
		return errors.New("commit threshold must be positive")
	}
	if c.FadeStart < 0 || c.FadeEnd <= c.FadeStart {
		return errors.New("fade end must be greater than fade start")
	}
	if c.RotationSpan <= 0 || c.MaxRotation <= 0 {
		return errors.New("rotation span and max rotation must be positive")
	}
	return nil
}

// Params are the per-frame visual parameters of the dragged card.
type Params struct {
	Offset   float64   `json:"offset"`
	Rotation float64   `json:"rotation"`
	Opacity  float64   `json:"opacity"`
	Intent   Direction `json:"-"`
	// IntentLabel mirrors Intent for JSON consumers.
	IntentLabel string `json:"intent"`
}

// Rest is the state of a card that is not being dragged.
func Rest() Params {
	return Params{Opacity: 1, IntentLabel: None.String()}
}

func (c Config) VisualParams(x float64) Params {
	intent := c.Decide(x, 0)
	return Params{
		Offset:      x,
		Rotation:    c.Rotation(x),
		Opacity:     c.Opacity(x),
		Intent:      intent,
		IntentLabel: intent.String(),
	}
}

// Rotation is linear in x, clamped to [-MaxRotation, MaxRotation] beyond the span.
func (c Config) Rotation(x float64) float64 {
	clamped := math.Max(-c.RotationSpan, math.Min(c.RotationSpan, x))
	return clamped * c.MaxRotation / c.RotationSpan
}

// Opacity is 1 up to FadeStart, 0 from FadeEnd, linear in between.
func (c Config) Opacity(x float64) float64 {
	d := math.Abs(x)
	switch {
	case d <= c.FadeStart:
		return 1
	case d >= c.FadeEnd:
		return 0
	default:
		return 1 - (d-c.FadeStart)/(c.FadeEnd-c.FadeStart)
	}
}

// Decide returns the committed direction for a release at x. Velocity is ignored.
func (c Config) Decide(x float64, _ float64) Direction {
	if math.Abs(x) <= c.CommitThreshold {
		return None
	}
	if x > 0 {
		return Right
	}
	return Left
}

func VisualParams(x float64) Params {
	return DefaultConfig().VisualParams(x)
}

func Decide(x, velocity float64) Direction {
	return DefaultConfig().Decide(x, velocity)
}
