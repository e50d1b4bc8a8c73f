package core

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/signalsfoundry/campus-mobility/model"
)

// Edge is an undirected connection between two hubs, by name.
type Edge struct {
	First  string
	Second string
}

// CampusGraph is the read-only connectivity graph over hubs. Vertex ids are
// assigned in lexicographic hub-name order so that search results depend on
// the graph structure alone.
type CampusGraph struct {
	g      *simple.UndirectedGraph
	hubs   []*model.Hub // indexed by vertex id
	byName map[string]int64
}

// BuildCampusGraph constructs an undirected simple graph. Repeated edges are
// ignored; self-loops, duplicate hub names and edges naming unknown hubs are
// configuration errors.
func BuildCampusGraph(hubs []*model.Hub, edges []Edge) (*CampusGraph, error) {
	sorted := make([]*model.Hub, 0, len(hubs))
	for _, h := range hubs {
		if h == nil {
			return nil, fmt.Errorf("%w: nil hub", ErrConfiguration)
		}
		sorted = append(sorted, h)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name() < sorted[j].Name() })

	cg := &CampusGraph{
		g:      simple.NewUndirectedGraph(),
		hubs:   sorted,
		byName: make(map[string]int64, len(sorted)),
	}
	for i, h := range sorted {
		if _, exists := cg.byName[h.Name()]; exists {
			return nil, fmt.Errorf("%w: %w: %q", ErrConfiguration, ErrDuplicateVertex, h.Name())
		}
		cg.byName[h.Name()] = int64(i)
		cg.g.AddNode(simple.Node(int64(i)))
	}

	for _, e := range edges {
		u, ok := cg.byName[e.First]
		if !ok {
			return nil, fmt.Errorf("%w: %w: %q (edge %s-%s)", ErrConfiguration, ErrDanglingEdge, e.First, e.First, e.Second)
		}
		v, ok := cg.byName[e.Second]
		if !ok {
			return nil, fmt.Errorf("%w: %w: %q (edge %s-%s)", ErrConfiguration, ErrDanglingEdge, e.Second, e.First, e.Second)
		}
		if u == v {
			return nil, fmt.Errorf("%w: self-loop on hub %q", ErrConfiguration, e.First)
		}
		if cg.g.HasEdgeBetween(u, v) {
			continue
		}
		cg.g.SetEdge(cg.g.NewEdge(simple.Node(u), simple.Node(v)))
	}
	return cg, nil
}

// Len returns the number of hubs in the graph.
func (cg *CampusGraph) Len() int { return len(cg.hubs) }

// Hub looks up a hub by name.
func (cg *CampusGraph) Hub(name string) (*model.Hub, bool) {
	id, ok := cg.byName[name]
	if !ok {
		return nil, false
	}
	return cg.hubs[id], true
}

// Neighbors returns the names of hubs adjacent to name, sorted.
func (cg *CampusGraph) Neighbors(name string) []string {
	id, ok := cg.byName[name]
	if !ok {
		return nil
	}
	ids := cg.neighborIDs(id)
	out := make([]string, len(ids))
	for i, n := range ids {
		out[i] = cg.hubs[n].Name()
	}
	return out
}

func (cg *CampusGraph) neighborIDs(id int64) []int64 {
	nodes := graph.NodesOf(cg.g.From(id))
	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID()
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ShortestPath returns a minimal-hop route from source to sink, both
// included. Neighbours are expanded in ascending id order, so ties resolve
// towards lexicographically smaller hub names.
func (cg *CampusGraph) ShortestPath(source, sink string) ([]*model.Hub, error) {
	src, ok := cg.byName[source]
	if !ok {
		return nil, fmt.Errorf("%w: unknown source hub %q", ErrRouteNotFound, source)
	}
	dst, ok := cg.byName[sink]
	if !ok {
		return nil, fmt.Errorf("%w: unknown sink hub %q", ErrRouteNotFound, sink)
	}
	if src == dst {
		return []*model.Hub{cg.hubs[src]}, nil
	}

	parent := make([]int64, len(cg.hubs))
	for i := range parent {
		parent[i] = -1
	}
	parent[src] = src
	queue := []int64{src}
	for len(queue) > 0 && parent[dst] == -1 {
		u := queue[0]
		queue = queue[1:]
		for _, v := range cg.neighborIDs(u) {
			if parent[v] != -1 {
				continue
			}
			parent[v] = u
			queue = append(queue, v)
		}
	}
	if parent[dst] == -1 {
		return nil, fmt.Errorf("%w: %q and %q are disconnected", ErrRouteNotFound, source, sink)
	}

	var rev []int64
	for n := dst; n != src; n = parent[n] {
		rev = append(rev, n)
	}
	route := make([]*model.Hub, 0, len(rev)+1)
	route = append(route, cg.hubs[src])
	for i := len(rev) - 1; i >= 0; i-- {
		route = append(route, cg.hubs[rev[i]])
	}
	return route, nil
}

// Components returns the connected components as sorted hub-name lists,
// ordered by their first name.
func (cg *CampusGraph) Components() [][]string {
	ccs := topo.ConnectedComponents(cg.g)
	out := make([][]string, 0, len(ccs))
	for _, cc := range ccs {
		names := make([]string, len(cc))
		for i, n := range cc {
			names[i] = cg.hubs[n.ID()].Name()
		}
		sort.Strings(names)
		out = append(out, names)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// componentIndex maps each hub name to the index of its component in
// Components().
func (cg *CampusGraph) componentIndex() map[string]int {
	idx := make(map[string]int, len(cg.hubs))
	for i, names := range cg.Components() {
		for _, n := range names {
			idx[n] = i
		}
	}
	return idx
}
