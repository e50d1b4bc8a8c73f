package core

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/signalsfoundry/campus-mobility/kb"
	"github.com/signalsfoundry/campus-mobility/model"
)

const sampleCampus = `{
  "vertices": [
    {"name": "gate",    "polygon": "POLYGON((0 0, 10 0, 10 10, 0 10, 0 0))",   "locationType": "ENTRANCE", "limit": 50},
    {"name": "hall",    "polygon": "POLYGON((10 0, 20 0, 20 10, 10 10, 10 0))", "locationType": "lecture",  "limit": 30},
    {"name": "stairs",  "polygon": "POLYGON((20 0, 30 0, 30 10, 20 10, 20 0))"},
    {"name": "mensa",   "polygon": "POLYGON((30 0, 40 0, 40 10, 30 10, 30 0))", "locationType": "MENSA",    "limit": 0}
  ],
  "edges": [
    {"first": "gate", "second": "hall"},
    {"first": "hall", "second": "stairs"},
    {"first": "stairs", "second": "mensa"}
  ]
}`

func TestLoadCampus_Basic(t *testing.T) {
	k := kb.NewKnowledgeBase()
	campus, err := LoadCampus(k, strings.NewReader(sampleCampus))
	if err != nil {
		t.Fatalf("LoadCampus error: %v", err)
	}

	if got, want := campus.HubNames, []string{"gate", "hall", "stairs", "mensa"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("hub names = %v, want %v", got, want)
	}
	if got, want := campus.LocationNames, []string{"gate", "hall", "mensa"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("location names = %v, want %v", got, want)
	}
	if len(campus.Edges) != 3 {
		t.Fatalf("edges = %d, want 3", len(campus.Edges))
	}

	if k.GetLocation("stairs") != nil {
		t.Fatalf("untyped vertex must not become a location")
	}
	hall := k.GetLocation("hall")
	if hall == nil || hall.Type != model.ActivityLecture || hall.CapacityPerSlot != 30 {
		t.Fatalf("unexpected hall location %v", hall)
	}
	if m := k.GetLocation("mensa"); m == nil || m.CapacityPerSlot != 0 {
		t.Fatalf("unexpected mensa location %v", m)
	}

	cg, err := BuildCampusGraph(k.ListHubs(), campus.Edges)
	if err != nil {
		t.Fatalf("BuildCampusGraph error: %v", err)
	}
	route, err := cg.ShortestPath("gate", "mensa")
	if err != nil {
		t.Fatalf("ShortestPath error: %v", err)
	}
	if got := routeNames(route); !reflect.DeepEqual(got, []string{"gate", "hall", "stairs", "mensa"}) {
		t.Fatalf("route = %v", got)
	}
}

func TestLoadCampus_Errors(t *testing.T) {
	cases := map[string]string{
		"not json":        `{"vertices": [`,
		"schema":          `{"vertices": [{"name": "a"}], "edges": []}`,
		"negative limit":  `{"vertices": [{"name": "a", "polygon": "POLYGON((0 0, 1 0, 1 1, 0 0))", "limit": -1}], "edges": []}`,
		"bad wkt":         `{"vertices": [{"name": "a", "polygon": "POINT(1 1)"}], "edges": []}`,
		"degenerate":      `{"vertices": [{"name": "a", "polygon": "POLYGON((0 0, 1 1, 2 2, 0 0))"}], "edges": []}`,
		"unknown type":    `{"vertices": [{"name": "a", "polygon": "POLYGON((0 0, 1 0, 1 1, 0 0))", "locationType": "GYM"}], "edges": []}`,
		"dangling edge":   `{"vertices": [{"name": "a", "polygon": "POLYGON((0 0, 1 0, 1 1, 0 0))"}], "edges": [{"first": "a", "second": "b"}]}`,
		"duplicate names": `{"vertices": [{"name": "a", "polygon": "POLYGON((0 0, 1 0, 1 1, 0 0))"}, {"name": "a", "polygon": "POLYGON((0 0, 1 0, 1 1, 0 0))"}], "edges": []}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadCampus(kb.NewKnowledgeBase(), strings.NewReader(doc))
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestLoadCampus_ErrorKinds(t *testing.T) {
	dangling := `{"vertices": [{"name": "a", "polygon": "POLYGON((0 0, 1 0, 1 1, 0 0))"}], "edges": [{"first": "a", "second": "b"}]}`
	if _, err := LoadCampus(kb.NewKnowledgeBase(), strings.NewReader(dangling)); !errors.Is(err, ErrDanglingEdge) {
		t.Fatalf("expected dangling edge error, got %v", err)
	}
	dup := `{"vertices": [{"name": "a", "polygon": "POLYGON((0 0, 1 0, 1 1, 0 0))"}, {"name": "a", "polygon": "POLYGON((0 0, 1 0, 1 1, 0 0))"}], "edges": []}`
	if _, err := LoadCampus(kb.NewKnowledgeBase(), strings.NewReader(dup)); !errors.Is(err, ErrDuplicateVertex) {
		t.Fatalf("expected duplicate vertex error, got %v", err)
	}
}

func TestLoadCampus_NilKB(t *testing.T) {
	if _, err := LoadCampus(nil, strings.NewReader(sampleCampus)); err == nil {
		t.Fatalf("expected error for nil kb")
	}
}
