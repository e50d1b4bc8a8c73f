package core

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/paulmach/orb/encoding/wkt"
	"github.com/samber/lo"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/signalsfoundry/campus-mobility/kb"
	"github.com/signalsfoundry/campus-mobility/model"
)

// Campus is a summary of what was loaded from a campus document.
type Campus struct {
	HubNames      []string
	LocationNames []string
	Edges         []Edge
}

// internal JSON shapes, kept unexported so the document can evolve.
type campusJSON struct {
	Vertices []vertexJSON `json:"vertices"`
	Edges    []edgeJSON   `json:"edges"`
}

type vertexJSON struct {
	Name         string `json:"name"`
	Polygon      string `json:"polygon"`
	LocationType string `json:"locationType"`
	Limit        int    `json:"limit"`
}

type edgeJSON struct {
	First  string `json:"first"`
	Second string `json:"second"`
}

const campusSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["vertices", "edges"],
  "properties": {
    "vertices": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "polygon"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "polygon": {"type": "string", "minLength": 1},
          "locationType": {"type": "string"},
          "limit": {"type": "integer", "minimum": 0}
        }
      }
    },
    "edges": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["first", "second"],
        "properties": {
          "first": {"type": "string", "minLength": 1},
          "second": {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`

var compiledCampusSchema = jsonschema.MustCompileString("campus.schema.json", campusSchema)

// LoadCampus reads a campus document from r, validates it, registers every
// vertex as a hub in k and every typed vertex as a location, and returns the
// edge list for BuildCampusGraph. Vertices without a locationType are
// routing-only hubs.
func LoadCampus(k *kb.KnowledgeBase, r io.Reader) (*Campus, error) {
	if k == nil {
		return nil, fmt.Errorf("LoadCampus: kb is nil")
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("LoadCampus: read failed: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: LoadCampus: decode failed: %w", ErrConfiguration, err)
	}
	if err := compiledCampusSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: LoadCampus: %w", ErrConfiguration, err)
	}

	var payload campusJSON
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: LoadCampus: decode failed: %w", ErrConfiguration, err)
	}

	result := &Campus{
		HubNames: make([]string, 0, len(payload.Vertices)),
		Edges:    make([]Edge, 0, len(payload.Edges)),
	}

	// 1) Hubs and locations
	for _, v := range payload.Vertices {
		poly, err := wkt.UnmarshalPolygon(strings.TrimSpace(v.Polygon))
		if err != nil {
			return nil, fmt.Errorf("%w: LoadCampus: vertex %q: %w", ErrConfiguration, v.Name, err)
		}
		hub, err := model.NewHub(v.Name, poly)
		if err != nil {
			return nil, fmt.Errorf("%w: LoadCampus: %w", ErrConfiguration, err)
		}
		if err := k.AddHub(hub); err != nil {
			return nil, fmt.Errorf("%w: %w: %w", ErrConfiguration, ErrDuplicateVertex, err)
		}
		result.HubNames = append(result.HubNames, hub.Name())

		typ, err := model.ParseActivityType(v.LocationType)
		if err != nil {
			return nil, fmt.Errorf("%w: LoadCampus: vertex %q: %w", ErrConfiguration, v.Name, err)
		}
		if !typ.Schedulable() {
			continue
		}
		loc, err := model.NewLocation(hub, typ, v.Limit)
		if err != nil {
			return nil, fmt.Errorf("%w: LoadCampus: %w", ErrConfiguration, err)
		}
		if err := k.AddLocation(loc); err != nil {
			return nil, fmt.Errorf("%w: LoadCampus: %w", ErrConfiguration, err)
		}
		result.LocationNames = append(result.LocationNames, loc.Name())
	}

	// 2) Edges
	for _, e := range payload.Edges {
		if k.GetHub(e.First) == nil || k.GetHub(e.Second) == nil {
			missing := lo.Ternary(k.GetHub(e.First) == nil, e.First, e.Second)
			return nil, fmt.Errorf("%w: %w: %q (edge %s-%s)", ErrConfiguration, ErrDanglingEdge, missing, e.First, e.Second)
		}
		result.Edges = append(result.Edges, Edge{First: e.First, Second: e.Second})
	}

	return result, nil
}
