package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MobilityCollector bundles Prometheus metrics for agenda allocation and the
// movement state machine. It satisfies core.ScenarioRecorder; every method is
// safe on a nil collector.
type MobilityCollector struct {
	gatherer prometheus.Gatherer

	Allocations       *prometheus.CounterVec
	AgendasClaimed    prometheus.Gauge
	RouteFailures     *prometheus.CounterVec
	Steps             *prometheus.CounterVec
	PlacementAttempts prometheus.Histogram
	RouteComputation  prometheus.Histogram
}

// NewMobilityCollector registers mobility metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewMobilityCollector(reg prometheus.Registerer) (*MobilityCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	allocations, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mobility_allocations_total",
		Help: "Location allocation outcomes, labeled by activity type and outcome.",
	}, []string{"activity", "outcome"}), "mobility_allocations_total")
	if err != nil {
		return nil, err
	}

	claimed, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mobility_agendas_claimed",
		Help: "Agenda rows handed out since the last generation.",
	}), "mobility_agendas_claimed")
	if err != nil {
		return nil, err
	}

	failures, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mobility_route_failures_total",
		Help: "Recovered route failures, labeled by reason.",
	}, []string{"reason"}), "mobility_route_failures_total")
	if err != nil {
		return nil, err
	}

	steps, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mobility_steps_total",
		Help: "Movement steps, labeled by the state after the step.",
	}, []string{"state"}), "mobility_steps_total")
	if err != nil {
		return nil, err
	}

	attempts, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mobility_placement_attempts",
		Help:    "Rejection-sampling draws needed to place a waypoint inside a hub.",
		Buckets: []float64{1, 2, 5, 10, 50, 100, 1000, 10000},
	}), "mobility_placement_attempts")
	if err != nil {
		return nil, err
	}

	routes, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mobility_route_computation_duration_seconds",
		Help:    "Duration of shortest-path computations on the campus graph.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	}), "mobility_route_computation_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &MobilityCollector{
		gatherer:          gatherer,
		Allocations:       allocations,
		AgendasClaimed:    claimed,
		RouteFailures:     failures,
		Steps:             steps,
		PlacementAttempts: attempts,
		RouteComputation:  routes,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *MobilityCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *MobilityCollector) Handler() http.Handler {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (c *MobilityCollector) IncAllocation(activity, outcome string) {
	if c == nil || c.Allocations == nil {
		return
	}
	c.Allocations.WithLabelValues(activity, outcome).Inc()
}

func (c *MobilityCollector) SetAgendasClaimed(n int) {
	if c == nil || c.AgendasClaimed == nil {
		return
	}
	c.AgendasClaimed.Set(float64(n))
}

func (c *MobilityCollector) IncRouteFailure(reason string) {
	if c == nil || c.RouteFailures == nil {
		return
	}
	c.RouteFailures.WithLabelValues(reason).Inc()
}

// IncStep counts one movement step.
func (c *MobilityCollector) IncStep(enRoute bool) {
	if c == nil || c.Steps == nil {
		return
	}
	state := "at_hub"
	if enRoute {
		state = "en_route"
	}
	c.Steps.WithLabelValues(state).Inc()
}

func (c *MobilityCollector) ObservePlacementAttempts(n int) {
	if c == nil || c.PlacementAttempts == nil {
		return
	}
	c.PlacementAttempts.Observe(float64(n))
}

// ObserveRouteComputation records a shortest-path computation duration.
func (c *MobilityCollector) ObserveRouteComputation(d time.Duration) {
	if c == nil || c.RouteComputation == nil {
		return
	}
	c.RouteComputation.Observe(d.Seconds())
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

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
