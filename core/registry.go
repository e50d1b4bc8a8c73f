package core

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/signalsfoundry/campus-mobility/model"
)

// Agenda is one entity's resolved day: a location name per slot and the
// tick by which each slot's location should have been reached.
type Agenda struct {
	Row        int
	Locations  []string
	Boundaries []int
}

// RegistryRecorder observes how many agenda rows have been handed out.
type RegistryRecorder interface {
	SetAgendasClaimed(n int)
}

// AgendaRegistry owns the generated type and location tables and hands rows
// out to motion models. It replaces process-wide counters with an explicit
// object; it is not safe for concurrent use and Reset must not overlap with
// ticks.
type AgendaRegistry struct {
	params    AgendaParams
	locations []*model.Location

	allocRecorder AllocationRecorder
	recorder      RegistryRecorder

	types      TypeTable
	table      [][]string
	boundaries []int
	claimed    int
	ready      bool
}

// RegistryOption configures an AgendaRegistry.
type RegistryOption func(*AgendaRegistry)

// WithRegistryRecorders wires metrics for allocation outcomes and claims.
// Either may be nil.
func WithRegistryRecorders(alloc AllocationRecorder, claims RegistryRecorder) RegistryOption {
	return func(r *AgendaRegistry) {
		r.allocRecorder = alloc
		r.recorder = claims
	}
}

// NewAgendaRegistry validates params. Call Reset before claiming rows.
func NewAgendaRegistry(params AgendaParams, locations []*model.Location, opts ...RegistryOption) (*AgendaRegistry, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	r := &AgendaRegistry{
		params:    params,
		locations: slices.Clone(locations),
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Reset runs a full generation cycle: capacities are restored, a new type
// table is drawn and allocated, slot boundaries are re-jittered and the
// claim counter returns to zero. On error the registry holds no rows.
func (r *AgendaRegistry) Reset(rng *rand.Rand) error {
	r.ready = false
	r.types, r.table, r.boundaries = nil, nil, nil
	r.claimed = 0
	r.recordClaims()

	n := r.params.Slots()
	for _, l := range r.locations {
		l.ResetCapacity(n)
	}
	types, err := GenerateTypeTable(r.params, rng)
	if err != nil {
		return err
	}
	alloc, err := NewLocationAllocator(r.locations, n, rng, WithAllocationRecorder(r.allocRecorder))
	if err != nil {
		return err
	}
	table, err := alloc.AllocateTable(types)
	if err != nil {
		return fmt.Errorf("allocate agendas: %w", err)
	}

	r.types = types
	r.table = table
	r.boundaries = PartitionBoundaries(r.params, rng)
	r.ready = true
	return nil
}

// Claim hands out the next unused agenda row.
func (r *AgendaRegistry) Claim() (Agenda, error) {
	if !r.ready {
		return Agenda{}, fmt.Errorf("%w: registry has not been generated", ErrAgendaPoolExhausted)
	}
	if r.claimed >= len(r.table) {
		return Agenda{}, fmt.Errorf("%w: all %d rows claimed", ErrAgendaPoolExhausted, len(r.table))
	}
	row := r.claimed
	r.claimed++
	r.recordClaims()
	return Agenda{
		Row:        row,
		Locations:  slices.Clone(r.table[row]),
		Boundaries: slices.Clone(r.boundaries),
	}, nil
}

// Params returns the generation parameters.
func (r *AgendaRegistry) Params() AgendaParams { return r.params }

// Claimed returns the number of rows handed out since the last Reset.
func (r *AgendaRegistry) Claimed() int { return r.claimed }

// TypeTable returns the activity types of the current generation.
func (r *AgendaRegistry) TypeTable() TypeTable { return r.types }

// LocationTable returns the resolved location names of the current
// generation.
func (r *AgendaRegistry) LocationTable() [][]string { return r.table }

// Boundaries returns the slot boundaries shared by every agenda.
func (r *AgendaRegistry) Boundaries() []int { return slices.Clone(r.boundaries) }

func (r *AgendaRegistry) recordClaims() {
	if r.recorder != nil {
		r.recorder.SetAgendasClaimed(r.claimed)
	}
}
