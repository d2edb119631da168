// Package tiers ranks usage figures on fixed ladders of named tiers.
package tiers

import (
	"errors"
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

var ErrBoundsNotAscending = errors.New("tier bounds must be strictly ascending")

// Gradient is a list of color stops spread evenly across rendered text.
// A single stop is a solid color.
type Gradient []colorful.Color

// At returns the color at position t in [0,1].
func (g Gradient) At(t float64) colorful.Color {
	switch len(g) {
	case 0:
		return colorful.Color{R: 1, G: 1, B: 1}
	case 1:
		return g[0]
	}

	if t <= 0 {
		return g[0]
	}
	if t >= 1 {
		return g[len(g)-1]
	}

	segments := float64(len(g) - 1)
	i := int(t * segments)
	local := t*segments - float64(i)
	return g[i].BlendRgb(g[i+1], local).Clamped()
}

type Tier struct {
	// Bound is the inclusive upper limit of the tier. Zero for the ceiling.
	Bound    int64
	Label    string
	Gradient Gradient
	// Rank counts from 0 for the lowest tier.
	Rank int

	top bool
}

// Ceiling reports whether t is the unbounded top tier.
func (t Tier) Ceiling() bool {
	return t.top
}

// Ladder is an ascending list of bounded tiers plus a ceiling that
// catches everything above the last bound.
type Ladder struct {
	tiers   []Tier
	ceiling Tier
}

// Step is one bounded rung passed to NewLadder.
type Step struct {
	Bound    int64
	Label    string
	Gradient Gradient
}

func NewLadder(steps []Step, ceilingLabel string, ceiling Gradient) (*Ladder, error) {
	if len(steps) == 0 {
		return nil, errors.New("ladder needs at least one bounded tier")
	}

	l := &Ladder{tiers: make([]Tier, 0, len(steps))}
	for i, s := range steps {
		if i > 0 && s.Bound <= steps[i-1].Bound {
			return nil, fmt.Errorf("%w: %d after %d", ErrBoundsNotAscending, s.Bound, steps[i-1].Bound)
		}
		if s.Label == "" {
			return nil, fmt.Errorf("tier %d has no label", i)
		}
		l.tiers = append(l.tiers, Tier{Bound: s.Bound, Label: s.Label, Gradient: s.Gradient, Rank: i})
	}
	l.ceiling = Tier{Label: ceilingLabel, Gradient: ceiling, Rank: len(steps), top: true}

	return l, nil
}

func mustLadder(steps []Step, ceilingLabel string, ceiling Gradient) *Ladder {
	l, err := NewLadder(steps, ceilingLabel, ceiling)
	if err != nil {
		panic(err)
	}
	return l
}

// Classify returns the first tier whose bound is >= v, or the ceiling.
func (l *Ladder) Classify(v int64) Tier {
	for _, t := range l.tiers {
		if v <= t.Bound {
			return t
		}
	}
	return l.ceiling
}

// Tiers returns the bounded tiers followed by the ceiling.
func (l *Ladder) Tiers() []Tier {
	out := make([]Tier, 0, len(l.tiers)+1)
	out = append(out, l.tiers...)
	return append(out, l.ceiling)
}
