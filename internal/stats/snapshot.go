// Package stats derives display figures from the persisted artifacts and
// keeps them fresh for the statistics view.
package stats

import (
	"sort"
	"time"

	"github.com/yowainwright/tenure/internal/core"
	"github.com/yowainwright/tenure/internal/storage"
	"github.com/yowainwright/tenure/internal/tiers"
	"github.com/yowainwright/tenure/pkg/models"
)

// Snapshot is one reload of both artifacts. All figures are seconds except
// that daily figures are tick counts, which equal seconds at the default
// poll interval.
type Snapshot struct {
	Average int64
	BestDay int64
	Total   int64
	Today   int64
	Log     core.DailyLog

	AverageTier tiers.Tier
	TotalTier   tiers.Tier
	BestDayTier tiers.Tier

	LoadedAt time.Time
}

// Load reads both artifacts and classifies them. It never writes.
func Load(store storage.Storage, now time.Time) Snapshot {
	log := store.LoadLog()
	total := store.LoadTotal()

	s := Snapshot{
		Average:  log.Average(),
		BestDay:  log.Max(),
		Total:    total,
		Today:    log.Get(core.DateKey(now)),
		Log:      log,
		LoadedAt: now,
	}
	s.AverageTier = tiers.DailyLadder.Classify(s.Average)
	s.TotalTier = tiers.LifetimeLadder.Classify(s.Total)
	s.BestDayTier = tiers.BestDayLadder.Classify(s.BestDay)

	return s
}

func (s Snapshot) Days() int {
	return len(s.Log)
}

// Report converts the snapshot for JSON output. Days are sorted by date.
func (s Snapshot) Report(target string) models.StatsReport {
	days := make([]models.DailyStats, 0, len(s.Log))
	for date, seconds := range s.Log {
		days = append(days, models.DailyStats{Date: date, Seconds: seconds})
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date < days[j].Date
	})

	return models.StatsReport{
		Target:         target,
		GeneratedAt:    s.LoadedAt,
		TotalSeconds:   s.Total,
		AverageSeconds: s.Average,
		BestDaySeconds: s.BestDay,
		TodaySeconds:   s.Today,
		Days:           days,
		Tiers: []models.TierStat{
			{Metric: string(tiers.MetricDaily), Value: s.Average, Tier: s.AverageTier.Label, Rank: s.AverageTier.Rank},
			{Metric: string(tiers.MetricLifetime), Value: s.Total, Tier: s.TotalTier.Label, Rank: s.TotalTier.Rank},
			{Metric: string(tiers.MetricBestDay), Value: s.BestDay, Tier: s.BestDayTier.Label, Rank: s.BestDayTier.Rank},
		},
	}
}
