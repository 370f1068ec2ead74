package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MissionCollector bundles Prometheus metrics for mission sequencing.
type MissionCollector struct {
	gatherer prometheus.Gatherer

	Missions            *prometheus.CounterVec
	PreflightRejections *prometheus.CounterVec
	PhaseDurations      *prometheus.HistogramVec
	Polls               *prometheus.CounterVec
}

// NewMissionCollector registers mission metrics against reg, defaulting to
// the global Prometheus registry when nil.
func NewMissionCollector(reg prometheus.Registerer) (*MissionCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	missions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flyto_missions_total",
		Help: "Missions run, labeled by outcome.",
	}, []string{"outcome"}), "flyto_missions_total")
	if err != nil {
		return nil, err
	}

	rejections, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flyto_preflight_rejections_total",
		Help: "Pre-flight rejections, labeled by reason.",
	}, []string{"reason"}), "flyto_preflight_rejections_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flyto_phase_duration_seconds",
		Help:    "Time spent in each mission phase.",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"phase", "result"}), "flyto_phase_duration_seconds")
	if err != nil {
		return nil, err
	}

	polls, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flyto_phase_polls_total",
		Help: "Vehicle state polls issued while waiting in a phase.",
	}, []string{"phase"}), "flyto_phase_polls_total")
	if err != nil {
		return nil, err
	}

	return &MissionCollector{
		gatherer:            gatherer,
		Missions:            missions,
		PreflightRejections: rejections,
		PhaseDurations:      durations,
		Polls:               polls,
	}, nil
}

func (c *MissionCollector) ObservePhase(phase string, d time.Duration, polls int, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.PhaseDurations.WithLabelValues(phase, result).Observe(d.Seconds())
	if polls > 0 {
		c.Polls.WithLabelValues(phase).Add(float64(polls))
	}
}

func (c *MissionCollector) ObserveRejection(reason string) {
	if c == nil {
		return
	}
	c.PreflightRejections.WithLabelValues(reason).Inc()
}

func (c *MissionCollector) ObserveOutcome(outcome string) {
	if c == nil {
		return
	}
	c.Missions.WithLabelValues(outcome).Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *MissionCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
