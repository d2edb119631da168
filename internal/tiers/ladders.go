package tiers

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

type Metric string

const (
	// MetricDaily ranks a per-day figure: the daily average or today.
	MetricDaily    Metric = "daily"
	MetricLifetime Metric = "lifetime"
	MetricBestDay  Metric = "best_day"
)

var Metrics = []Metric{MetricDaily, MetricLifetime, MetricBestDay}

func rgb(r, g, b uint8) colorful.Color {
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

var (
	brown  = rgb(165, 42, 42)
	gray   = rgb(128, 128, 128)
	white  = rgb(255, 255, 255)
	yellow = rgb(255, 255, 0)
	cyan   = rgb(0, 255, 255)
	blue   = rgb(0, 0, 255)
	red    = rgb(255, 0, 0)
)

var (
	GradientBronze  = Gradient{brown}
	GradientSilver  = Gradient{gray, white}
	GradientGold    = Gradient{yellow, white}
	GradientDiamond = Gradient{cyan, white}
	GradientAzure   = Gradient{blue, white}
	GradientArchon  = Gradient{red, white}
)

// prismatic is a four-stop rainbow; each grade lifts the zero channels.
func prismatic(lift uint8) Gradient {
	return Gradient{
		rgb(255, lift, lift),
		rgb(255, 255, lift),
		rgb(lift, 255, 255),
		rgb(255, lift, 255),
	}
}

var labels = []string{
	"Bronze I", "Bronze II", "Bronze III",
	"Silver I", "Silver II", "Silver III",
	"Gold I", "Gold II", "Gold III",
	"Diamond I", "Diamond II", "Diamond III",
	"Azure I", "Azure II", "Azure III",
	"Prismatic I", "Prismatic II", "Prismatic III",
	"Astral I", "Astral II", "Astral III",
}

var gradients = []Gradient{
	GradientBronze, GradientBronze, GradientBronze,
	GradientSilver, GradientSilver, GradientSilver,
	GradientGold, GradientGold, GradientGold,
	GradientDiamond, GradientDiamond, GradientDiamond,
	GradientAzure, GradientAzure, GradientAzure,
	prismatic(0), prismatic(75), prismatic(150),
	{rgb(100, 0, 255), rgb(255, 0, 255)},
	{rgb(175, 75, 255), rgb(255, 75, 255)},
	{rgb(250, 150, 255), rgb(255, 150, 255)},
}

const CeilingLabel = "Archon"

func standardLadder(bounds ...int64) *Ladder {
	if len(bounds) != len(labels) {
		panic(fmt.Sprintf("tiers: %d bounds for %d labels", len(bounds), len(labels)))
	}

	steps := make([]Step, len(bounds))
	for i, b := range bounds {
		steps[i] = Step{Bound: b, Label: labels[i], Gradient: gradients[i]}
	}
	return mustLadder(steps, CeilingLabel, GradientArchon)
}

var (
	DailyLadder = standardLadder(
		150, 225, 300, 450, 600, 800, 1000, 1300, 1600, 2000, 2800,
		3600, 4800, 6000, 7200, 9000, 10800, 13200, 15600, 18000, 20400,
	)

	LifetimeLadder = standardLadder(
		10000, 20000, 30000, 50000, 75000, 100000, 130000, 170000, 200000, 275000, 350000,
		410000, 500000, 710000, 980000, 1200000, 1500000, 1900000, 2500000, 3750000, 5000000,
	)

	BestDayLadder = standardLadder(
		300, 450, 600, 900, 1200, 1600, 2000, 2600, 3200, 4000, 5600,
		7200, 9600, 12000, 14400, 18000, 21600, 26400, 31200, 36000, 40800,
	)
)

// LadderFor returns the built-in ladder for m.
func LadderFor(m Metric) (*Ladder, error) {
	switch m {
	case MetricDaily:
		return DailyLadder, nil
	case MetricLifetime:
		return LifetimeLadder, nil
	case MetricBestDay:
		return BestDayLadder, nil
	default:
		return nil, fmt.Errorf("unknown metric %q", m)
	}
}

// Classify ranks v on the built-in ladder for m.
func Classify(m Metric, v int64) (Tier, error) {
	l, err := LadderFor(m)
	if err != nil {
		return Tier{}, err
	}
	return l.Classify(v), nil
}
