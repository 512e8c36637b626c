package observability

import (
	"context"
	"math"

	"github.com/aretw0/simgym/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Step outcomes used as label values.
const (
	OutcomeOK     = "ok"
	OutcomeDone   = "done"
	OutcomeFailed = "failed"
)

// Metrics holds every collector exported by simgym.
type Metrics struct {
	Episodes            prometheus.Counter
	Steps               *prometheus.CounterVec
	StepDuration        prometheus.Histogram
	Terminations        *prometheus.CounterVec
	StartFailures       prometheus.Counter
	LastReward          prometheus.Gauge
	BufferedExperiences prometheus.Gauge
	EpisodesSaved       prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Episodes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simgym_episodes_total",
			Help: "Total number of episodes started",
		}),
		Steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simgym_steps_total",
			Help: "Total number of step round trips by outcome",
		}, []string{"outcome"}),
		StepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simgym_step_duration_seconds",
			Help:    "Duration of step round trips to the control plane",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 11),
		}),
		Terminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simgym_terminations_total",
			Help: "Simulator terminations by mode",
		}, []string{"mode"}),
		StartFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simgym_process_start_failures_total",
			Help: "Simulator launches that failed",
		}),
		LastReward: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simgym_last_reward",
			Help: "Reward of the last successful step",
		}),
		BufferedExperiences: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simgym_recorder_buffered_experiences",
			Help: "Experiences buffered for the current episode",
		}),
		EpisodesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simgym_recorder_episodes_saved_total",
			Help: "Episodes persisted by the recorder",
		}),
	}
	reg.MustRegister(
		m.Episodes, m.Steps, m.StepDuration, m.Terminations,
		m.StartFailures, m.LastReward, m.BufferedExperiences, m.EpisodesSaved,
	)
	return m
}

// Hooks returns lifecycle hooks recording environment metrics.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnEpisodeStart: func(ctx context.Context, e *domain.EpisodeEvent) {
			m.Episodes.Inc()
		},
		OnProcessStart: func(ctx context.Context, e *domain.ProcessEvent) {
			if e.Err != nil {
				m.StartFailures.Inc()
			}
		},
		OnStep: func(ctx context.Context, e *domain.StepEvent) {
			m.StepDuration.Observe(e.Duration.Seconds())
			switch {
			case e.Result.Failed():
				m.Steps.WithLabelValues(OutcomeFailed).Inc()
			case e.Result.Done:
				m.Steps.WithLabelValues(OutcomeDone).Inc()
			default:
				m.Steps.WithLabelValues(OutcomeOK).Inc()
			}
			if !math.IsNaN(e.Result.Reward) {
				m.LastReward.Set(e.Result.Reward)
			}
		},
		OnTerminate: func(ctx context.Context, e *domain.TerminateEvent) {
			m.Terminations.WithLabelValues(string(e.Mode)).Inc()
		},
	}
}

// Buffered implements session.Observer.
func (m *Metrics) Buffered(n int) {
	m.BufferedExperiences.Set(float64(n))
}

// EpisodeSaved implements session.Observer.
func (m *Metrics) EpisodeSaved(episode, records int) {
	m.EpisodesSaved.Inc()
}
