package model

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrEmptyHubName is returned when a hub is constructed without a name.
var ErrEmptyHubName = errors.New("hub name is required")

// Hub is a named polygonal campus region. Hubs are immutable after
// construction and are compared by name.
type Hub struct {
	name   string
	region orb.Polygon
	bound  orb.Bound
}

// NewHub validates region and returns a hub identified by name.
func NewHub(name string, region orb.Polygon) (*Hub, error) {
	if name == "" {
		return nil, ErrEmptyHubName
	}
	if err := ValidateRegion(region); err != nil {
		return nil, fmt.Errorf("hub %q: %w", name, err)
	}
	return &Hub{
		name:   name,
		region: region.Clone(),
		bound:  region.Bound(),
	}, nil
}

// Name returns the hub identity.
func (h *Hub) Name() string { return h.name }

// Region returns a copy of the hub polygon.
func (h *Hub) Region() orb.Polygon { return h.region.Clone() }

// Bound returns the axis-aligned bounding box of the region.
func (h *Hub) Bound() orb.Bound { return h.bound }

// Contains reports whether pt lies inside the hub region (holes excluded).
func (h *Hub) Contains(pt orb.Point) bool {
	if !h.bound.Contains(pt) {
		return false
	}
	return planar.PolygonContains(h.region, pt)
}

// Equal compares hubs by name.
func (h *Hub) Equal(other *Hub) bool {
	if h == nil || other == nil {
		return h == other
	}
	return h.name == other.name
}

func (h *Hub) String() string {
	return fmt.Sprintf("[Hub: name=%s, bound=%v]", h.name, h.bound)
}
