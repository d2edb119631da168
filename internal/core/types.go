package core

import (
	"fmt"
	"time"
)

// TotalRecord is the on-disk shape of the lifetime total artifact.
type TotalRecord struct {
	TotalSeconds int64 `json:"total_seconds"`
}

// DailyLog maps a local calendar date (DateLayout) to the number of ticks
// the target was observed running that day.
type DailyLog map[string]int64

// Increment bumps the bucket for key and returns its new value.
func (l DailyLog) Increment(key string) int64 {
	l[key]++
	return l[key]
}

func (l DailyLog) Get(key string) int64 {
	return l[key]
}

func (l DailyLog) Sum() int64 {
	var total int64
	for _, v := range l {
		total += v
	}
	return total
}

// Max returns the largest bucket, or 0 for an empty log.
func (l DailyLog) Max() int64 {
	var best int64
	for _, v := range l {
		if v > best {
			best = v
		}
	}
	return best
}

// Average returns the integer mean of all buckets, or 0 for an empty log.
func (l DailyLog) Average() int64 {
	if len(l) == 0 {
		return 0
	}
	return l.Sum() / int64(len(l))
}

func (l DailyLog) Clone() DailyLog {
	out := make(DailyLog, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Validate reports the first key or value that does not belong in a daily log.
func (l DailyLog) Validate() error {
	for k, v := range l {
		if _, err := time.ParseInLocation(DateLayout, k, time.Local); err != nil {
			return fmt.Errorf("invalid date key %q: %w", k, err)
		}
		if v < 0 {
			return fmt.Errorf("negative count for %s: %d", k, v)
		}
	}
	return nil
}

// DateKey returns the daily log key for t in the local time zone.
func DateKey(t time.Time) string {
	return t.Local().Format(DateLayout)
}

// FormatSeconds renders seconds as HH:MM:SS. Hours are not capped at 24.
func FormatSeconds(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}
