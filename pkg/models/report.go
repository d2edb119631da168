package models

import (
	"time"
)

type TierStat struct {
	Metric string `json:"metric"`
	Value  int64  `json:"value"`
	Tier   string `json:"tier"`
	Rank   int    `json:"rank"`
}

type DailyStats struct {
	Date    string `json:"date"`
	Seconds int64  `json:"seconds"`
}

// StatsReport is the machine-readable form of the statistics view.
type StatsReport struct {
	Target         string       `json:"target"`
	GeneratedAt    time.Time    `json:"generated_at"`
	TotalSeconds   int64        `json:"total_seconds"`
	AverageSeconds int64        `json:"average_seconds"`
	BestDaySeconds int64        `json:"best_day_seconds"`
	TodaySeconds   int64        `json:"today_seconds"`
	Days           []DailyStats `json:"days"`
	Tiers          []TierStat   `json:"tiers"`
}

type DaemonStatus struct {
	Running bool   `json:"running"`
	PID     int    `json:"pid,omitempty"`
	Target  string `json:"target"`
	DataDir string `json:"data_dir"`
	Backend string `json:"backend"`
}
