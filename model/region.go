package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrInvalidRegion is returned when a hub region is not a usable planar
// polygon.
var ErrInvalidRegion = errors.New("invalid hub region")

// ValidateRegion checks that p is a non-empty, non-degenerate polygon: every
// ring is closed with at least four points and the outer ring encloses a
// positive area.
func ValidateRegion(p orb.Polygon) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: polygon has no rings", ErrInvalidRegion)
	}
	for i, ring := range p {
		if len(ring) < 4 {
			return fmt.Errorf("%w: ring %d has %d points, need at least 4", ErrInvalidRegion, i, len(ring))
		}
		if !ring.Closed() {
			return fmt.Errorf("%w: ring %d is not closed", ErrInvalidRegion, i)
		}
	}
	area := math.Abs(planar.Area(p[0]))
	if area == 0 || math.IsNaN(area) {
		return fmt.Errorf("%w: outer ring has zero area", ErrInvalidRegion)
	}
	return nil
}
