package stats

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/yowainwright/tenure/internal/core"
	"github.com/yowainwright/tenure/internal/tiers"
)

// Lines returns the three statistics lines without styling.
func Lines(s Snapshot, target string) []string {
	return []string{
		line("The average time spent per day", s.Average, s.AverageTier),
		line("Total time spent on "+target, s.Total, s.TotalTier),
		line("Most amount of time spent in 1 day", s.BestDay, s.BestDayTier),
	}
}

func line(caption string, seconds int64, tier tiers.Tier) string {
	return fmt.Sprintf("%s: %s (%s)", caption, core.FormatSeconds(seconds), tier.Label)
}

// Render writes each line colored along its tier's gradient.
func Render(w io.Writer, s Snapshot, target string) error {
	lines := Lines(s, target)
	gradients := []tiers.Gradient{s.AverageTier.Gradient, s.TotalTier.Gradient, s.BestDayTier.Gradient}

	var b strings.Builder
	for i, text := range lines {
		b.WriteString(Paint(text, gradients[i]))
		b.WriteByte('\n')
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Paint colors text character by character along g.
func Paint(text string, g tiers.Gradient) string {
	if len(g) == 0 {
		return text
	}
	if len(g) == 1 {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(g[0].Hex())).Render(text)
	}

	runes := []rune(text)
	if len(runes) < 2 {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(g[0].Hex())).Render(text)
	}

	var b strings.Builder
	last := float64(len(runes) - 1)
	for i, r := range runes {
		c := g.At(float64(i) / last)
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex())).Render(string(r)))
	}
	return b.String()
}
