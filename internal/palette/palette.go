// Package palette generates random color palettes.
package palette

import (
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// Range is a closed interval sampled uniformly.
type Range struct {
	Min, Max float64
}

func (r Range) sample(rng *rand.Rand) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

type Options struct {
	// Hue is a fraction of the color wheel in [0,1).
	Hue        Range
	Saturation Range
	Lightness  Range
}

var DefaultOptions = Options{
	Hue:        Range{0, 1},
	Saturation: Range{0.4, 0.8},
	Lightness:  Range{0.3, 0.7},
}

// Generate returns n random colors drawn with DefaultOptions. A nil rng
// uses the global source.
func Generate(n int, rng *rand.Rand) []colorful.Color {
	return GenerateWith(n, rng, DefaultOptions)
}

func GenerateWith(n int, rng *rand.Rand, opts Options) []colorful.Color {
	if n <= 0 {
		return nil
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	colors := make([]colorful.Color, n)
	for i := range colors {
		h := opts.Hue.sample(rng)
		s := opts.Saturation.sample(rng)
		l := opts.Lightness.sample(rng)
		colors[i] = colorful.Hsl(h*360, s, l).Clamped()
	}
	return colors
}

// Hex renders colors as #rrggbb strings.
func Hex(colors []colorful.Color) []string {
	out := make([]string, len(colors))
	for i, c := range colors {
		out[i] = c.Hex()
	}
	return out
}

var swatch = lipgloss.NewStyle().Padding(0, 2).MarginRight(1)

// Render writes one line per color: a filled swatch then the hex code in
// that color.
func Render(w io.Writer, colors []colorful.Color) error {
	if _, err := fmt.Fprintln(w, "Here's the color palette:"); err != nil {
		return err
	}
	for _, c := range colors {
		hex := lipgloss.Color(c.Hex())
		line := lipgloss.JoinHorizontal(lipgloss.Left,
			swatch.Background(hex).Render(""),
			lipgloss.NewStyle().Foreground(hex).Render(c.Hex()),
		)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
