package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// collectors are the engine's Prometheus metrics.
type collectors struct {
	turns         *prometheus.CounterVec
	turnDuration  *prometheus.HistogramVec
	fallbacks     prometheus.Counter
	saveFailures  prometheus.Counter
	transitions   *prometheus.CounterVec
	rejectedTurns prometheus.Counter
	initialized   prometheus.Counter
}

func newCollectors(reg prometheus.Registerer) *collectors {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &collectors{
		turns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dungeon_master_turns_total",
			Help: "Turns executed, by route and result.",
		}, []string{"route", "result"}),
		turnDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dungeon_master_turn_duration_seconds",
			Help:    "Wall time of a turn, narration included.",
			Buckets: prometheus.ExponentialBuckets(0.005, 3, 9),
		}, []string{"route"}),
		fallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "dungeon_master_narration_fallbacks_total",
			Help: "Narrations replaced by the neutral default.",
		}),
		saveFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "dungeon_master_checkpoint_failures_total",
			Help: "Snapshots that could not be saved.",
		}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dungeon_master_scene_transitions_total",
			Help: "Scene transitions, by trigger type.",
		}, []string{"trigger"}),
		rejectedTurns: f.NewCounter(prometheus.CounterOpts{
			Name: "dungeon_master_turns_rejected_total",
			Help: "Turns refused because another was in flight.",
		}),
		initialized: f.NewCounter(prometheus.CounterOpts{
			Name: "dungeon_master_sessions_initialized_total",
			Help: "Sessions that ran the initialize graph.",
		}),
	}
}
