// Package metrics exposes tracker state in Prometheus text format. Nothing
// listens on a socket; the daemon writes a textfile for node_exporter's
// textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/yowainwright/tenure/internal/tracker"
)

type Recorder struct {
	registry *prometheus.Registry

	AccumulatedSeconds prometheus.Gauge
	TodayTicks         prometheus.Gauge
	TrackingActive     prometheus.Gauge
	TicksTotal         prometheus.Counter
	SaveErrors         *prometheus.CounterVec
}

func NewRecorder(target string) *Recorder {
	labels := prometheus.Labels{"target": target}

	r := &Recorder{
		registry: prometheus.NewRegistry(),

		AccumulatedSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "tenure_accumulated_seconds",
			Help:        "Lifetime seconds the target has been observed running",
			ConstLabels: labels,
		}),
		TodayTicks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "tenure_today_ticks",
			Help:        "Ticks the target was observed running today",
			ConstLabels: labels,
		}),
		TrackingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "tenure_tracking_active",
			Help:        "1 while the target is running, 0 otherwise",
			ConstLabels: labels,
		}),
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "tenure_ticks_total",
			Help:        "Scheduler ticks processed since start",
			ConstLabels: labels,
		}),
		SaveErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "tenure_save_errors_total",
			Help:        "Failed artifact saves",
			ConstLabels: labels,
		}, []string{"artifact"}),
	}

	r.registry.MustRegister(
		r.AccumulatedSeconds,
		r.TodayTicks,
		r.TrackingActive,
		r.TicksTotal,
		r.SaveErrors,
	)

	return r
}

// Observe records the outcome of one tick.
func (r *Recorder) Observe(result tracker.Result) {
	r.TicksTotal.Inc()
	r.AccumulatedSeconds.Set(float64(result.Total))
	r.TodayTicks.Set(float64(result.Today))

	if result.State == tracker.StateActive {
		r.TrackingActive.Set(1)
	} else {
		r.TrackingActive.Set(0)
	}

	for _, artifact := range result.Failed {
		r.SaveErrors.WithLabelValues(string(artifact)).Inc()
	}
}

func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile atomically replaces path with the current metric values.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
