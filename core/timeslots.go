package core

import "math/rand/v2"

// SlotLength is the unjittered duration of one timeslot in ticks.
func SlotLength(p AgendaParams) int {
	return p.ScenarioEndTime / p.Slots()
}

// PartitionBoundaries returns, for each slot, the tick by which an entity is
// expected to have reached that slot's location. Every boundary but the last
// is offset by up to ±20% of a slot; the last closes the day exactly.
func PartitionBoundaries(p AgendaParams, rng *rand.Rand) []int {
	n := p.Slots()
	length := SlotLength(p)
	boundaries := make([]int, n)
	for i := 0; i < n-1; i++ {
		boundaries[i] = length*i + int((rng.Float64()*0.4+0.8)*float64(length))
	}
	boundaries[n-1] = n * length
	return boundaries
}
