package core

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/signalsfoundry/campus-mobility/internal/logging"
)

// Segment is the path an entity produced on one tick.
type Segment struct {
	Entity int
	Path   Path
}

// TickListener observes the segments produced on one tick.
type TickListener func(simTime float64, segments []Segment)

// SimulationEngine steps a fixed set of motion models once per tick. An
// entity whose model returns an error is stopped; the others keep going.
type SimulationEngine struct {
	models        []MotionModel
	stopped       []bool
	started       bool
	log           logging.Logger
	tickListeners []TickListener
}

func NewSimulationEngine(models []MotionModel, log logging.Logger) *SimulationEngine {
	if log == nil {
		log = logging.Noop()
	}
	return &SimulationEngine{
		models:        models,
		stopped:       make([]bool, len(models)),
		log:           log,
		tickListeners: []TickListener{},
	}
}

func (se *SimulationEngine) RegisterTickListener(fn TickListener) {
	se.tickListeners = append(se.tickListeners, fn)
}

// Start places every entity. It must be called once before Step.
func (se *SimulationEngine) Start() ([]orb.Point, error) {
	if se.started {
		return nil, fmt.Errorf("simulation engine already started")
	}
	positions := make([]orb.Point, len(se.models))
	for i, m := range se.models {
		pt, err := m.InitialPosition()
		if err != nil {
			return nil, fmt.Errorf("entity %d: initial position: %w", i, err)
		}
		positions[i] = pt
	}
	se.started = true
	return positions, nil
}

// Step asks every running entity for its next path at simTime and notifies
// listeners.
func (se *SimulationEngine) Step(ctx context.Context, simTime float64) []Segment {
	segments := make([]Segment, 0, len(se.models))
	for i, m := range se.models {
		if se.stopped[i] {
			continue
		}
		p, err := m.NextPath(simTime)
		if err != nil {
			se.stopped[i] = true
			se.log.Error(ctx, "entity stopped",
				logging.Int("entity", i),
				logging.Any("sim_time", simTime),
				logging.String("error", err.Error()),
			)
			continue
		}
		segments = append(segments, Segment{Entity: i, Path: p})
	}

	for _, fn := range se.tickListeners {
		fn(simTime, segments)
	}
	return segments
}

// Run starts the engine if needed and steps it ticks times, tickSeconds
// apart, beginning at tickSeconds.
func (se *SimulationEngine) Run(ctx context.Context, ticks int, tickSeconds float64) error {
	if !se.started {
		if _, err := se.Start(); err != nil {
			return err
		}
	}
	for tick := 1; tick <= ticks; tick++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		se.Step(ctx, float64(tick)*tickSeconds)
	}
	return nil
}

// Stopped returns the number of entities that hit a terminal error.
func (se *SimulationEngine) Stopped() int {
	n := 0
	for _, s := range se.stopped {
		if s {
			n++
		}
	}
	return n
}
