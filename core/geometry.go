package core

import (
	"fmt"
	"math/rand/v2"

	"github.com/paulmach/orb"

	"github.com/signalsfoundry/campus-mobility/model"
)

// DefaultMaxPlacementAttempts bounds rejection sampling inside a hub.
const DefaultMaxPlacementAttempts = 10000

// NewExtent returns the simulation area [0,maxX] x [0,maxY].
func NewExtent(maxX, maxY float64) (orb.Bound, error) {
	if maxX <= 0 || maxY <= 0 {
		return orb.Bound{}, fmt.Errorf("%w: world extent must be positive, got %gx%g", ErrConfiguration, maxX, maxY)
	}
	return orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{maxX, maxY}}, nil
}

// SamplePointInHub draws a point uniformly from the part of hub's region that
// lies inside extent, by rejection. Candidates are drawn from the overlap of
// extent and the hub's bounding box, which yields the same distribution as
// drawing from the whole extent. It returns the point and the number of
// draws used.
func SamplePointInHub(rng *rand.Rand, extent orb.Bound, hub *model.Hub, maxAttempts int) (orb.Point, int, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxPlacementAttempts
	}
	box, ok := intersectBounds(extent, hub.Bound())
	if !ok {
		return orb.Point{}, 0, fmt.Errorf("%w: hub %q lies outside the simulation extent", ErrInvalidHubGeometry, hub.Name())
	}

	w := box.Max.X() - box.Min.X()
	h := box.Max.Y() - box.Min.Y()
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		pt := orb.Point{
			box.Min.X() + rng.Float64()*w,
			box.Min.Y() + rng.Float64()*h,
		}
		if hub.Contains(pt) {
			return pt, attempt, nil
		}
	}
	return orb.Point{}, maxAttempts, fmt.Errorf("%w: no point inside hub %q after %d attempts", ErrInvalidHubGeometry, hub.Name(), maxAttempts)
}

func intersectBounds(a, b orb.Bound) (orb.Bound, bool) {
	minX := max(a.Min.X(), b.Min.X())
	minY := max(a.Min.Y(), b.Min.Y())
	maxX := min(a.Max.X(), b.Max.X())
	maxY := min(a.Max.Y(), b.Max.Y())
	if minX > maxX || minY > maxY {
		return orb.Bound{}, false
	}
	return orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}}, true
}
