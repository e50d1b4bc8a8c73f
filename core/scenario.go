package core

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/paulmach/orb"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/campus-mobility/internal/logging"
	"github.com/signalsfoundry/campus-mobility/kb"
)

const tracerName = "github.com/signalsfoundry/campus-mobility/core"

// ScenarioRecorder receives every metric the preprocessing and movement
// phases produce.
type ScenarioRecorder interface {
	AllocationRecorder
	RegistryRecorder
	MotionRecorder
}

// Options configures NewScenario.
type Options struct {
	KB     *kb.KnowledgeBase
	Edges  []Edge
	Params AgendaParams

	Extent               orb.Bound
	Speed                SpeedSampler
	MaxPlacementAttempts int

	// Rand drives agenda generation, allocation and timeslot jitter.
	Rand *rand.Rand

	Logger   logging.Logger
	Recorder ScenarioRecorder
}

// UnreachablePair is a pair of consecutive agenda hubs that lie in
// different graph components.
type UnreachablePair struct {
	From string
	To   string
	Rows int
}

// Scenario is the result of preprocessing: the campus graph and a generated
// agenda registry. Motion models are created from it only after
// preprocessing has completed.
type Scenario struct {
	Graph    *CampusGraph
	Registry *AgendaRegistry

	motion MotionConfig
	rng    *rand.Rand
	log    logging.Logger

	unreachable []UnreachablePair
}

// NewScenario runs the preprocessing phase: build the campus graph,
// generate and allocate agendas, then check that consecutive agenda entries
// are connected. Disconnected pairs are logged, not rejected.
func NewScenario(ctx context.Context, opts Options) (*Scenario, error) {
	if opts.KB == nil {
		return nil, fmt.Errorf("%w: scenario needs a knowledge base", ErrConfiguration)
	}
	if opts.Rand == nil {
		return nil, fmt.Errorf("%w: scenario needs a random source", ErrConfiguration)
	}
	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}
	tracer := otel.Tracer(tracerName)

	ctx, span := tracer.Start(ctx, "scenario.preprocess")
	defer span.End()

	graph, err := withSpan(ctx, tracer, "scenario.build_graph", func(span trace.Span) (*CampusGraph, error) {
		g, err := BuildCampusGraph(opts.KB.ListHubs(), opts.Edges)
		if err == nil {
			span.SetAttributes(attribute.Int("campus.hubs", g.Len()), attribute.Int("campus.edges", len(opts.Edges)))
		}
		return g, err
	})
	if err != nil {
		return nil, recordSpanError(span, err)
	}

	s := &Scenario{
		Graph: graph,
		rng:   opts.Rand,
		log:   log,
	}

	var allocRec AllocationRecorder
	var claimRec RegistryRecorder
	var motionRec MotionRecorder
	if opts.Recorder != nil {
		allocRec, claimRec, motionRec = opts.Recorder, opts.Recorder, opts.Recorder
	}
	registry, err := NewAgendaRegistry(opts.Params, opts.KB.ListLocations(), WithRegistryRecorders(allocRec, claimRec))
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	s.Registry = registry

	if err := s.generate(ctx, tracer); err != nil {
		return nil, recordSpanError(span, err)
	}

	maxAttempts := opts.MaxPlacementAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxPlacementAttempts
	}
	s.motion = MotionConfig{
		Graph:                graph,
		Registry:             registry,
		Extent:               opts.Extent,
		Speed:                opts.Speed,
		MaxPlacementAttempts: maxAttempts,
		Logger:               log,
		Recorder:             motionRec,
	}

	log.Info(ctx, "scenario preprocessed",
		logging.Int("hubs", graph.Len()),
		logging.Int("locations", len(opts.KB.ListLocations())),
		logging.Int("entities", opts.Params.EntityCount),
		logging.Int("slots", opts.Params.Slots()),
		logging.Int("unreachable_pairs", len(s.unreachable)),
	)
	return s, nil
}

// Reset regenerates every agenda and restores all capacities. It must not
// run while motion models are being stepped.
func (s *Scenario) Reset(ctx context.Context) error {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "scenario.reset")
	defer span.End()
	if err := s.generate(ctx, tracer); err != nil {
		return recordSpanError(span, err)
	}
	return nil
}

// NewMotionModel creates the entity owning the next unclaimed agenda row.
func (s *Scenario) NewMotionModel(rng *rand.Rand) (*AgendaMotionModel, error) {
	return NewAgendaMotionModel(s.motion, rng)
}

// Unreachable returns the consecutive agenda pairs found in different graph
// components during the last generation.
func (s *Scenario) Unreachable() []UnreachablePair { return s.unreachable }

func (s *Scenario) generate(ctx context.Context, tracer trace.Tracer) error {
	_, err := withSpan(ctx, tracer, "scenario.generate_agendas", func(span trace.Span) (struct{}, error) {
		params := s.Registry.Params()
		span.SetAttributes(
			attribute.Int("agenda.entities", params.EntityCount),
			attribute.Int("agenda.slots", params.Slots()),
		)
		return struct{}{}, s.Registry.Reset(s.rng)
	})
	if err != nil {
		return err
	}

	pairs, _ := withSpan(ctx, tracer, "scenario.preflight", func(span trace.Span) ([]UnreachablePair, error) {
		pairs := s.preflight()
		span.SetAttributes(attribute.Int("preflight.unreachable_pairs", len(pairs)))
		return pairs, nil
	})
	s.unreachable = pairs
	for _, p := range pairs {
		s.log.Warn(ctx, "agenda moves between disconnected hubs",
			logging.String("from", p.From),
			logging.String("to", p.To),
			logging.Int("rows", p.Rows),
		)
	}
	return nil
}

func (s *Scenario) preflight() []UnreachablePair {
	component := s.Graph.componentIndex()
	index := make(map[[2]string]int)
	var pairs []UnreachablePair
	for _, row := range s.Registry.LocationTable() {
		for i := 1; i < len(row); i++ {
			from, to := row[i-1], row[i]
			if from == to || component[from] == component[to] {
				continue
			}
			key := [2]string{from, to}
			if at, ok := index[key]; ok {
				pairs[at].Rows++
				continue
			}
			index[key] = len(pairs)
			pairs = append(pairs, UnreachablePair{From: from, To: to, Rows: 1})
		}
	}
	return pairs
}

func withSpan[T any](ctx context.Context, tracer trace.Tracer, name string, fn func(trace.Span) (T, error)) (T, error) {
	_, span := tracer.Start(ctx, name)
	defer span.End()
	v, err := fn(span)
	if err != nil {
		recordSpanError(span, err)
	}
	return v, err
}

func recordSpanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
