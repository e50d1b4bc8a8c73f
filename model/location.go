package model

import "fmt"

// Location is a hub that can be scheduled into. Capacity is tracked per
// timeslot; remaining capacity never drops below zero.
type Location struct {
	Hub             *Hub
	Type            ActivityType
	CapacityPerSlot int

	remaining []int
}

// NewLocation wraps hub as a schedulable place of the given type.
func NewLocation(hub *Hub, typ ActivityType, capacityPerSlot int) (*Location, error) {
	if hub == nil {
		return nil, fmt.Errorf("location: nil hub")
	}
	if capacityPerSlot < 0 {
		return nil, fmt.Errorf("location %q: negative capacity %d", hub.Name(), capacityPerSlot)
	}
	return &Location{Hub: hub, Type: typ, CapacityPerSlot: capacityPerSlot}, nil
}

// Name returns the name of the underlying hub.
func (l *Location) Name() string { return l.Hub.Name() }

// ResetCapacity restores the full per-slot capacity for nSlots timeslots.
func (l *Location) ResetCapacity(nSlots int) {
	if cap(l.remaining) >= nSlots {
		l.remaining = l.remaining[:nSlots]
	} else {
		l.remaining = make([]int, nSlots)
	}
	for i := range l.remaining {
		l.remaining[i] = l.CapacityPerSlot
	}
}

// Remaining returns the unreserved capacity at slot, or 0 for slots outside
// the current partition.
func (l *Location) Remaining(slot int) int {
	if slot < 0 || slot >= len(l.remaining) {
		return 0
	}
	return l.remaining[slot]
}

// TryReserve takes one place at slot. It returns false without mutating
// anything when the location is already full there.
func (l *Location) TryReserve(slot int) bool {
	if slot < 0 || slot >= len(l.remaining) || l.remaining[slot] <= 0 {
		return false
	}
	l.remaining[slot]--
	return true
}

func (l *Location) String() string {
	return fmt.Sprintf("Name: %s Location type: %s Limit: %d", l.Name(), l.Type, l.CapacityPerSlot)
}
