package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/paulmach/orb"

	"github.com/signalsfoundry/campus-mobility/internal/logging"
	"github.com/signalsfoundry/campus-mobility/model"
)

// Path is one movement segment handed to the host: from the previous
// waypoint to a fresh point inside the current hub.
type Path struct {
	Waypoints []orb.Point
	Speed     float64
}

// MotionModel is driven once per tick by the host simulator.
type MotionModel interface {
	InitialPosition() (orb.Point, error)
	NextPath(simTime float64) (Path, error)
	Replicate() (MotionModel, error)
}

// SpeedSampler draws a movement speed for a path segment.
type SpeedSampler interface {
	Sample(rng *rand.Rand) float64
}

// UniformSpeed draws speeds uniformly from [Min, Max].
type UniformSpeed struct {
	Min float64
	Max float64
}

// Sample implements SpeedSampler.
func (u UniformSpeed) Sample(rng *rand.Rand) float64 {
	if u.Max <= u.Min {
		return u.Min
	}
	return u.Min + rng.Float64()*(u.Max-u.Min)
}

// Route failure reasons reported to a MotionRecorder.
const (
	RouteFailureUnreachable = "unreachable"
	RouteFailureResync      = "resync"
)

// MotionRecorder observes the movement state machine.
type MotionRecorder interface {
	IncRouteFailure(reason string)
	ObservePlacementAttempts(n int)
	ObserveRouteComputation(d time.Duration)
	IncStep(enRoute bool)
}

// MotionConfig is shared by a motion model and all of its replicas.
type MotionConfig struct {
	Graph                *CampusGraph
	Registry             *AgendaRegistry
	Extent               orb.Bound
	Speed                SpeedSampler
	MaxPlacementAttempts int
	Logger               logging.Logger
	Recorder             MotionRecorder
}

// MotionState is a snapshot of one entity's movement state.
type MotionState struct {
	Row          int
	Current      string
	Goal         string
	Route        []string
	RouteIndex   int
	AgendaIndex  int
	EnRoute      bool
	LastWaypoint orb.Point
}

// AgendaMotionModel moves one entity between hubs according to its agenda
// row. It is AT_HUB while no route is pending and EN_ROUTE otherwise.
type AgendaMotionModel struct {
	cfg *MotionConfig
	rng *rand.Rand
	log logging.Logger

	agenda Agenda
	hubs   []*model.Hub

	current     *model.Hub
	goal        *model.Hub
	route       []*model.Hub
	routeIndex  int
	agendaIndex int

	lastWaypoint orb.Point
	placed       bool
}

// NewAgendaMotionModel claims the next agenda row from cfg.Registry.
func NewAgendaMotionModel(cfg MotionConfig, rng *rand.Rand) (*AgendaMotionModel, error) {
	if cfg.Graph == nil || cfg.Registry == nil {
		return nil, fmt.Errorf("%w: motion model needs a graph and a registry", ErrConfiguration)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: motion model needs a random source", ErrConfiguration)
	}
	if cfg.Speed == nil {
		return nil, fmt.Errorf("%w: motion model needs a speed sampler", ErrConfiguration)
	}
	if cfg.Extent.IsEmpty() || cfg.Extent.IsZero() {
		return nil, fmt.Errorf("%w: world extent is empty", ErrConfiguration)
	}
	if cfg.MaxPlacementAttempts <= 0 {
		cfg.MaxPlacementAttempts = DefaultMaxPlacementAttempts
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Noop()
	}
	return newAgendaMotionModel(&cfg, rng)
}

func newAgendaMotionModel(cfg *MotionConfig, rng *rand.Rand) (*AgendaMotionModel, error) {
	agenda, err := cfg.Registry.Claim()
	if err != nil {
		return nil, err
	}
	if len(agenda.Locations) == 0 {
		return nil, fmt.Errorf("%w: agenda row %d is empty", ErrConfiguration, agenda.Row)
	}
	hubs := make([]*model.Hub, len(agenda.Locations))
	for i, name := range agenda.Locations {
		h, ok := cfg.Graph.Hub(name)
		if !ok {
			return nil, fmt.Errorf("%w: agenda location %q is not a graph vertex", ErrConfiguration, name)
		}
		hubs[i] = h
	}
	return &AgendaMotionModel{
		cfg:     cfg,
		rng:     rng,
		log:     cfg.Logger.With(logging.Int("agenda_row", agenda.Row)),
		agenda:  agenda,
		hubs:    hubs,
		current: hubs[0],
		goal:    hubs[0],
	}, nil
}

// Replicate creates a new entity with the next unused agenda row. The
// replica's random stream is seeded from this model's stream.
func (m *AgendaMotionModel) Replicate() (MotionModel, error) {
	child := rand.New(rand.NewPCG(m.rng.Uint64(), m.rng.Uint64()))
	return newAgendaMotionModel(m.cfg, child)
}

// InitialPosition places the entity inside the hub of its first slot.
func (m *AgendaMotionModel) InitialPosition() (orb.Point, error) {
	pt, err := m.samplePoint(m.current)
	if err != nil {
		return orb.Point{}, err
	}
	m.lastWaypoint = pt
	m.placed = true
	return pt, nil
}

// NextPath advances the state machine to simTime and returns the next
// segment. An unreachable goal is not an error: the entity stays in its
// hub and retries at the next boundary crossing.
func (m *AgendaMotionModel) NextPath(simTime float64) (Path, error) {
	if !m.placed {
		if _, err := m.InitialPosition(); err != nil {
			return Path{}, err
		}
	}

	if err := m.crossBoundaries(simTime); err != nil {
		m.recoverRoute(err)
	}
	if err := m.advance(); err != nil {
		m.recoverRoute(err)
	}
	if m.cfg.Recorder != nil {
		m.cfg.Recorder.IncStep(m.route != nil)
	}

	pt, err := m.samplePoint(m.current)
	if err != nil {
		return Path{}, err
	}
	p := Path{
		Waypoints: []orb.Point{m.lastWaypoint, pt},
		Speed:     m.cfg.Speed.Sample(m.rng),
	}
	m.lastWaypoint = pt
	return p, nil
}

func (m *AgendaMotionModel) crossBoundaries(simTime float64) error {
	bounds := m.agenda.Boundaries
	last := min(len(m.hubs), len(bounds)) - 1
	var routeErr error
	for m.agendaIndex < last && simTime > float64(bounds[m.agendaIndex]) {
		m.current = m.hubs[m.agendaIndex]
		m.agendaIndex++
		m.goal = m.hubs[m.agendaIndex]

		start := time.Now()
		route, err := m.cfg.Graph.ShortestPath(m.current.Name(), m.goal.Name())
		if m.cfg.Recorder != nil {
			m.cfg.Recorder.ObserveRouteComputation(time.Since(start))
		}
		m.routeIndex = 0
		if err != nil {
			m.route = nil
			routeErr = err
			continue
		}
		m.route = route
		routeErr = nil
	}
	return routeErr
}

func (m *AgendaMotionModel) advance() error {
	if m.route == nil {
		return nil
	}
	if m.routeIndex >= len(m.route) {
		idx := slices.Index(m.route, m.current)
		if idx < 0 {
			return fmt.Errorf("%w: %s is not on the pending route to %s", errResync, m.current.Name(), m.goal.Name())
		}
		m.routeIndex = idx
	}
	m.current = m.route[m.routeIndex]
	m.routeIndex++
	if m.current == m.goal {
		m.route = nil
		m.routeIndex = 0
	}
	return nil
}

var errResync = fmt.Errorf("%w: route resynchronisation failed", ErrRouteNotFound)

func (m *AgendaMotionModel) recoverRoute(err error) {
	m.route = nil
	m.routeIndex = 0
	reason := RouteFailureUnreachable
	if errors.Is(err, errResync) {
		reason = RouteFailureResync
	}
	m.log.Warn(context.Background(), "route not found, staying in hub",
		logging.String("current", m.current.Name()),
		logging.String("goal", m.goal.Name()),
		logging.String("reason", reason),
		logging.Any("error", err),
	)
	if m.cfg.Recorder != nil {
		m.cfg.Recorder.IncRouteFailure(reason)
	}
}

func (m *AgendaMotionModel) samplePoint(h *model.Hub) (orb.Point, error) {
	pt, attempts, err := SamplePointInHub(m.rng, m.cfg.Extent, h, m.cfg.MaxPlacementAttempts)
	if m.cfg.Recorder != nil {
		m.cfg.Recorder.ObservePlacementAttempts(attempts)
	}
	return pt, err
}

// State returns a snapshot of the movement state.
func (m *AgendaMotionModel) State() MotionState {
	route := make([]string, 0, len(m.route))
	for _, h := range m.route {
		route = append(route, h.Name())
	}
	return MotionState{
		Row:          m.agenda.Row,
		Current:      m.current.Name(),
		Goal:         m.goal.Name(),
		Route:        route,
		RouteIndex:   m.routeIndex,
		AgendaIndex:  m.agendaIndex,
		EnRoute:      m.route != nil,
		LastWaypoint: m.lastWaypoint,
	}
}

// Agenda returns the claimed agenda.
func (m *AgendaMotionModel) Agenda() Agenda { return m.agenda }
