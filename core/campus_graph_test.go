package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/paulmach/orb"

	"github.com/signalsfoundry/campus-mobility/model"
)

func squareAt(x0, y0, size float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{x0, y0}, {x0 + size, y0}, {x0 + size, y0 + size}, {x0, y0 + size}, {x0, y0},
	}}
}

func testHubs(t *testing.T, names ...string) []*model.Hub {
	t.Helper()
	hubs := make([]*model.Hub, len(names))
	for i, n := range names {
		h, err := model.NewHub(n, squareAt(float64(i*10), 0, 10))
		if err != nil {
			t.Fatalf("NewHub(%q) error: %v", n, err)
		}
		hubs[i] = h
	}
	return hubs
}

func routeNames(route []*model.Hub) []string {
	out := make([]string, len(route))
	for i, h := range route {
		out[i] = h.Name()
	}
	return out
}

func TestShortestPath_PathGraph(t *testing.T) {
	cg, err := BuildCampusGraph(testHubs(t, "A", "B", "C"), []Edge{{"A", "B"}, {"B", "C"}})
	if err != nil {
		t.Fatalf("BuildCampusGraph error: %v", err)
	}
	route, err := cg.ShortestPath("A", "C")
	if err != nil {
		t.Fatalf("ShortestPath error: %v", err)
	}
	if got := fmt.Sprint(routeNames(route)); got != "[A B C]" {
		t.Fatalf("ShortestPath(A,C) = %s, want [A B C]", got)
	}
}

func TestShortestPath_SameEndpoint(t *testing.T) {
	cg, err := BuildCampusGraph(testHubs(t, "A", "B"), []Edge{{"A", "B"}})
	if err != nil {
		t.Fatalf("BuildCampusGraph error: %v", err)
	}
	route, err := cg.ShortestPath("B", "B")
	if err != nil {
		t.Fatalf("ShortestPath error: %v", err)
	}
	if len(route) != 1 || route[0].Name() != "B" {
		t.Fatalf("ShortestPath(B,B) = %v, want [B]", routeNames(route))
	}
}

func TestShortestPath_MinimalHopsAndStableTieBreak(t *testing.T) {
	// S reaches T via X or Y (2 hops) or via a longer chain L1-L2-L3.
	hubs := testHubs(t, "S", "X", "Y", "T", "L1", "L2", "L3")
	edges := []Edge{
		{"S", "Y"}, {"Y", "T"},
		{"S", "X"}, {"X", "T"},
		{"S", "L1"}, {"L1", "L2"}, {"L2", "L3"}, {"L3", "T"},
	}
	cg, err := BuildCampusGraph(hubs, edges)
	if err != nil {
		t.Fatalf("BuildCampusGraph error: %v", err)
	}

	first, err := cg.ShortestPath("S", "T")
	if err != nil {
		t.Fatalf("ShortestPath error: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected a 2-hop route, got %v", routeNames(first))
	}
	if first[1].Name() != "X" {
		t.Fatalf("tie should resolve to the smaller hub name X, got %v", routeNames(first))
	}

	// Reversed edge declaration order must not change the answer.
	rev := make([]Edge, len(edges))
	for i := range edges {
		rev[len(edges)-1-i] = edges[i]
	}
	cg2, err := BuildCampusGraph(testHubs(t, "L3", "T", "Y", "X", "S", "L2", "L1"), rev)
	if err != nil {
		t.Fatalf("BuildCampusGraph error: %v", err)
	}
	for range 5 {
		again, err := cg2.ShortestPath("S", "T")
		if err != nil {
			t.Fatalf("ShortestPath error: %v", err)
		}
		if fmt.Sprint(routeNames(again)) != fmt.Sprint(routeNames(first)) {
			t.Fatalf("route changed: %v vs %v", routeNames(again), routeNames(first))
		}
	}
}

func TestShortestPath_Disconnected(t *testing.T) {
	cg, err := BuildCampusGraph(testHubs(t, "A", "B", "C"), []Edge{{"A", "B"}})
	if err != nil {
		t.Fatalf("BuildCampusGraph error: %v", err)
	}
	if _, err := cg.ShortestPath("A", "C"); !errors.Is(err, ErrRouteNotFound) {
		t.Fatalf("expected ErrRouteNotFound, got %v", err)
	}
	if _, err := cg.ShortestPath("A", "nowhere"); !errors.Is(err, ErrRouteNotFound) {
		t.Fatalf("expected ErrRouteNotFound for unknown sink, got %v", err)
	}
	comps := cg.Components()
	if len(comps) != 2 || fmt.Sprint(comps[0]) != "[A B]" || fmt.Sprint(comps[1]) != "[C]" {
		t.Fatalf("Components() = %v", comps)
	}
}

func TestBuildCampusGraph_Errors(t *testing.T) {
	hubs := testHubs(t, "A", "B")
	if _, err := BuildCampusGraph(hubs, []Edge{{"A", "Z"}}); !errors.Is(err, ErrDanglingEdge) || !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected dangling edge configuration error, got %v", err)
	}
	dup := append(testHubs(t, "A"), hubs...)
	if _, err := BuildCampusGraph(dup, nil); !errors.Is(err, ErrDuplicateVertex) {
		t.Fatalf("expected ErrDuplicateVertex, got %v", err)
	}
	if _, err := BuildCampusGraph(hubs, []Edge{{"A", "A"}}); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error for self-loop, got %v", err)
	}
	cg, err := BuildCampusGraph(hubs, []Edge{{"A", "B"}, {"B", "A"}})
	if err != nil {
		t.Fatalf("repeated edges should be ignored, got %v", err)
	}
	if got := cg.Neighbors("A"); len(got) != 1 || got[0] != "B" {
		t.Fatalf("Neighbors(A) = %v, want [B]", got)
	}
}
