// Package metrics exposes solver step statistics to Prometheus.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	fluid "github.com/esimov/ascii-lbm/fluid-solver"
)

const namespace = "lbm"

// Observer records every solver step. It implements fluid.Observer.
type Observer struct {
	registry *prometheus.Registry
	log      logrus.FieldLogger

	steps      prometheus.Counter
	duration   prometheus.Histogram
	mass       prometheus.Gauge
	minDensity prometheus.Gauge

	mu       sync.Mutex
	unstable bool
}

var _ fluid.Observer = &Observer{}

// NewObserver registers the step collectors on a fresh registry.
func NewObserver(log logrus.FieldLogger) *Observer {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		log:      log,
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Number of solver steps.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Time spent in one collide, stream and bounce step.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		mass: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "total_mass",
			Help:      "Sum of all distributions after the last step.",
		}),
		minDensity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "min_density",
			Help:      "Smallest fluid cell density seen by the last collision.",
		}),
	}
	o.registry.MustRegister(o.steps, o.duration, o.mass, o.minDensity)
	return o
}

// ObserveStep updates the collectors. A negative density means the
// simulation went unstable; it is logged once until the density recovers.
func (o *Observer) ObserveStep(st fluid.StepStats) {
	o.steps.Inc()
	o.duration.Observe(st.Duration.Seconds())
	o.mass.Set(st.Mass)
	o.minDensity.Set(st.MinDensity)

	o.mu.Lock()
	defer o.mu.Unlock()

	switch {
	case st.MinDensity < 0 && !o.unstable:
		o.unstable = true
		o.log.WithFields(logrus.Fields{
			"step":       st.Step,
			"minDensity": st.MinDensity,
		}).Warn("negative density, the simulation is unstable; try a higher viscosity or lower speed")
	case st.MinDensity >= 0 && o.unstable:
		o.unstable = false
		o.log.WithField("step", st.Step).Info("density back to positive")
	}
}

// Registry returns the registry holding the step collectors.
func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

// Handler serves the collectors in the Prometheus text format.
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})
}
