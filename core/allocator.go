package core

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"

	"github.com/signalsfoundry/campus-mobility/model"
)

// Allocation outcomes reported to an AllocationRecorder.
const (
	OutcomeAssigned         = "assigned"
	OutcomeEvicted          = "evicted"
	OutcomeFallback         = "fallback"
	OutcomeEntranceOverflow = "entrance_overflow"
	OutcomeExhausted        = "exhausted"
)

// AllocationRecorder receives allocation outcomes, typically a metrics
// collector.
type AllocationRecorder interface {
	IncAllocation(activity, outcome string)
}

// LocationAllocator resolves activity types into concrete locations while
// enforcing per-slot capacity. It is not safe for concurrent use.
type LocationAllocator struct {
	nSlots int
	rng    *rand.Rand

	entrances      []*model.Location
	entranceQuota  []int
	entranceCursor int

	// pools[type][slot] holds the candidates not yet found full at slot.
	pools map[model.ActivityType][][]*model.Location

	recorder AllocationRecorder
}

// AllocatorOption configures a LocationAllocator.
type AllocatorOption func(*LocationAllocator)

// WithAllocationRecorder reports every allocation outcome to r.
func WithAllocationRecorder(r AllocationRecorder) AllocatorOption {
	return func(a *LocationAllocator) { a.recorder = r }
}

// NewLocationAllocator prepares candidate pools for nSlots timeslots.
// Location capacities must already be reset for the same number of slots.
// At least one ENTRANCE location is required.
func NewLocationAllocator(locations []*model.Location, nSlots int, rng *rand.Rand, opts ...AllocatorOption) (*LocationAllocator, error) {
	if nSlots <= 0 {
		return nil, fmt.Errorf("%w: allocator needs at least one slot", ErrConfiguration)
	}
	sorted := slices.Clone(locations)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name() < sorted[j].Name() })

	a := &LocationAllocator{
		nSlots: nSlots,
		rng:    rng,
		pools:  make(map[model.ActivityType][][]*model.Location),
	}
	for _, o := range opts {
		o(a)
	}

	byType := make(map[model.ActivityType][]*model.Location)
	for _, l := range sorted {
		switch l.Type {
		case model.ActivityEntrance:
			a.entrances = append(a.entrances, l)
			a.entranceQuota = append(a.entranceQuota, l.CapacityPerSlot)
		case model.ActivityRouting:
		default:
			byType[l.Type] = append(byType[l.Type], l)
		}
	}
	if len(a.entrances) == 0 {
		return nil, fmt.Errorf("%w: no ENTRANCE location configured", ErrConfiguration)
	}
	for typ, locs := range byType {
		perSlot := make([][]*model.Location, nSlots)
		for s := range perSlot {
			perSlot[s] = slices.Clone(locs)
		}
		a.pools[typ] = perSlot
	}
	return a, nil
}

// NextEntrance hands out an entrance. Entrances are consumed in name order
// until every quota is spent, then reused round-robin; it never refuses.
func (a *LocationAllocator) NextEntrance() *model.Location {
	for i, q := range a.entranceQuota {
		if q > 0 {
			a.entranceQuota[i]--
			a.record(model.ActivityEntrance, OutcomeAssigned)
			return a.entrances[i]
		}
	}
	l := a.entrances[a.entranceCursor]
	a.entranceCursor = (a.entranceCursor + 1) % len(a.entrances)
	a.record(model.ActivityEntrance, OutcomeEntranceOverflow)
	return l
}

// Resolve picks a location of type t with free capacity at slot and reserves
// one place there. When the typed pool is exhausted it falls back once to the
// DEFAULT pool.
func (a *LocationAllocator) Resolve(t model.ActivityType, slot int) (*model.Location, error) {
	if slot < 0 || slot >= a.nSlots {
		return nil, fmt.Errorf("slot %d outside [0,%d)", slot, a.nSlots)
	}
	switch t {
	case model.ActivityEntrance:
		return a.NextEntrance(), nil
	case model.ActivityRouting, "":
		return nil, fmt.Errorf("%w: %q is not schedulable", ErrAllocationExhausted, t)
	}

	if loc, ok := a.draw(t, slot); ok {
		return loc, nil
	}
	if t != model.ActivityDefault {
		a.record(t, OutcomeFallback)
		if loc, ok := a.draw(model.ActivityDefault, slot); ok {
			return loc, nil
		}
	}
	a.record(t, OutcomeExhausted)
	return nil, fmt.Errorf("%w: no %s or DEFAULT capacity left at slot %d", ErrAllocationExhausted, t, slot)
}

// draw samples uniformly from the pool for (t, slot). A candidate is evicted
// only when its reservation fails, so each iteration shrinks the pool or
// returns.
func (a *LocationAllocator) draw(t model.ActivityType, slot int) (*model.Location, bool) {
	perSlot, ok := a.pools[t]
	if !ok {
		return nil, false
	}
	pool := perSlot[slot]
	for len(pool) > 0 {
		i := a.rng.IntN(len(pool))
		candidate := pool[i]
		if candidate.TryReserve(slot) {
			perSlot[slot] = pool
			a.record(t, OutcomeAssigned)
			return candidate, true
		}
		pool = slices.Delete(pool, i, i+1)
		a.record(t, OutcomeEvicted)
	}
	perSlot[slot] = pool
	return nil, false
}

// AllocateTable resolves every label of table into a location name. Each
// entity keeps a single entrance for all of its ENTRANCE slots.
func (a *LocationAllocator) AllocateTable(table TypeTable) ([][]string, error) {
	out := make([][]string, len(table))
	for i, row := range table {
		if len(row) != a.nSlots {
			return nil, fmt.Errorf("entity %d: row has %d slots, want %d", i, len(row), a.nSlots)
		}
		entrance := a.NextEntrance()
		names := make([]string, len(row))
		for slot, typ := range row {
			if typ == model.ActivityEntrance {
				names[slot] = entrance.Name()
				continue
			}
			loc, err := a.Resolve(typ, slot)
			if err != nil {
				return nil, fmt.Errorf("entity %d slot %d: %w", i, slot, err)
			}
			names[slot] = loc.Name()
		}
		out[i] = names
	}
	return out, nil
}

func (a *LocationAllocator) record(t model.ActivityType, outcome string) {
	if a.recorder == nil {
		return
	}
	a.recorder.IncAllocation(string(t), outcome)
}
