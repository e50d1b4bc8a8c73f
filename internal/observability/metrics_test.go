package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"github.com/signalsfoundry/campus-mobility/core"
)

var _ core.ScenarioRecorder = (*MobilityCollector)(nil)

func TestMobilityCollectorRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewMobilityCollector(reg)
	if err != nil {
		t.Fatalf("NewMobilityCollector: %v", err)
	}

	c.IncAllocation("MENSA", core.OutcomeEvicted)
	c.IncAllocation("MENSA", core.OutcomeEvicted)
	c.IncAllocation("DEFAULT", core.OutcomeAssigned)
	c.IncRouteFailure(core.RouteFailureUnreachable)
	c.IncStep(true)
	c.IncStep(false)
	c.IncStep(false)
	c.SetAgendasClaimed(7)
	c.ObservePlacementAttempts(3)
	c.ObserveRouteComputation(200 * time.Microsecond)

	if got := testutil.ToFloat64(c.Allocations.WithLabelValues("MENSA", core.OutcomeEvicted)); got != 2 {
		t.Fatalf("mensa evictions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.RouteFailures.WithLabelValues(core.RouteFailureUnreachable)); got != 1 {
		t.Fatalf("route failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Steps.WithLabelValues("at_hub")); got != 2 {
		t.Fatalf("at_hub steps = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.AgendasClaimed); got != 7 {
		t.Fatalf("agendas claimed = %v, want 7", got)
	}
	if n := histogramSampleCount(t, reg, "mobility_placement_attempts", nil); n != 1 {
		t.Fatalf("placement attempts sample_count = %d, want 1", n)
	}
	if n := histogramSampleCount(t, reg, "mobility_route_computation_duration_seconds", nil); n != 1 {
		t.Fatalf("route computation sample_count = %d, want 1", n)
	}
}

func TestMobilityCollectorReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMobilityCollector(reg)
	if err != nil {
		t.Fatalf("NewMobilityCollector: %v", err)
	}
	second, err := NewMobilityCollector(reg)
	if err != nil {
		t.Fatalf("second NewMobilityCollector: %v", err)
	}
	first.IncRouteFailure("resync")
	if got := testutil.ToFloat64(second.RouteFailures.WithLabelValues("resync")); got != 1 {
		t.Fatalf("collectors should share registered metrics, got %v", got)
	}
}

func TestNilMobilityCollectorIsSafe(t *testing.T) {
	var c *MobilityCollector
	c.IncAllocation("LECTURE", "assigned")
	c.IncRouteFailure("unreachable")
	c.IncStep(true)
	c.SetAgendasClaimed(1)
	c.ObservePlacementAttempts(1)
	c.ObserveRouteComputation(time.Millisecond)
	if c.Gatherer() != nil {
		t.Fatalf("nil collector should have no gatherer")
	}
}

func TestMetricsHandlerExposesMobilityMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewMobilityCollector(reg)
	if err != nil {
		t.Fatalf("NewMobilityCollector: %v", err)
	}
	c.IncAllocation("LECTURE", core.OutcomeAssigned)
	c.IncRouteFailure(core.RouteFailureResync)
	c.IncStep(false)
	c.SetAgendasClaimed(4)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"mobility_allocations_total",
		"mobility_agendas_claimed 4",
		"mobility_route_failures_total",
		"mobility_steps_total",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
