package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/signalsfoundry/campus-mobility/core"
	"github.com/signalsfoundry/campus-mobility/internal/config"
	"github.com/signalsfoundry/campus-mobility/internal/logging"
	"github.com/signalsfoundry/campus-mobility/internal/observability"
	"github.com/signalsfoundry/campus-mobility/internal/waypointlog"
	"github.com/signalsfoundry/campus-mobility/kb"
	"github.com/signalsfoundry/campus-mobility/timectrl"
)

// runOptions are the resolved command-line inputs of one run.
type runOptions struct {
	SettingsPath string
	CampusPath   string
	Seed         int64 // negative keeps the settings seed
	Ticks        int   // zero runs until scenarioEndTime
	TraceOut     string
	Realtime     bool
}

// runSummary describes what a run did.
type runSummary struct {
	Entities    int
	Ticks       int
	Segments    int
	Stopped     int
	Unreachable int
}

func main() {
	settingsPath := flag.String("settings", "configs/settings.yaml", "Path to the scenario settings YAML file")
	campusPath := flag.String("campus", "configs/campus.json", "Path to the campus document (hubs and edges)")
	seed := flag.Int64("seed", -1, "Random seed; negative uses the settings file seed")
	ticks := flag.Int("ticks", 0, "Number of ticks to run; 0 runs until scenarioEndTime")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics; empty disables")
	traceOut := flag.String("trace-out", "", "Write a zstd-compressed JSONL waypoint trace to this path")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error); defaults to LOG_LEVEL")
	realtime := flag.Bool("realtime", false, "Pace ticks against the wall clock")
	flag.Parse()

	ctx, log := logging.WithRunLogger(context.Background(), logging.NewFromEnv(*logLevel))

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewMobilityCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}
	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	summary, err := run(runCtx, runOptions{
		SettingsPath: *settingsPath,
		CampusPath:   *campusPath,
		Seed:         *seed,
		Ticks:        *ticks,
		TraceOut:     *traceOut,
		Realtime:     *realtime,
	}, collector, log)
	if err != nil {
		log.Error(ctx, "simulation failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info(ctx, "simulation complete",
		logging.Int("entities", summary.Entities),
		logging.Int("ticks", summary.Ticks),
		logging.Int("segments", summary.Segments),
		logging.Int("stopped", summary.Stopped),
	)

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

// run loads the inputs, preprocesses the scenario, creates one motion model
// per agenda row and steps them all on every tick.
func run(ctx context.Context, opts runOptions, recorder core.ScenarioRecorder, log logging.Logger) (runSummary, error) {
	var summary runSummary

	settings, err := config.Load(opts.SettingsPath)
	if err != nil {
		return summary, fmt.Errorf("load settings: %w", err)
	}
	if opts.Seed >= 0 {
		settings.Seed = uint64(opts.Seed)
	}
	extent, err := settings.Extent()
	if err != nil {
		return summary, err
	}

	store := kb.NewKnowledgeBase()
	f, err := os.Open(opts.CampusPath)
	if err != nil {
		return summary, fmt.Errorf("open campus document %q: %w", opts.CampusPath, err)
	}
	campus, err := core.LoadCampus(store, f)
	_ = f.Close()
	if err != nil {
		return summary, fmt.Errorf("load campus document: %w", err)
	}
	log.Info(ctx, "loaded campus",
		logging.Int("hubs", len(campus.HubNames)),
		logging.Int("locations", len(campus.LocationNames)),
		logging.Int("edges", len(campus.Edges)),
	)

	rng := rand.New(rand.NewPCG(settings.Seed, settings.Seed^0x9e3779b97f4a7c15))
	scenario, err := core.NewScenario(ctx, core.Options{
		KB:                   store,
		Edges:                campus.Edges,
		Params:               settings.AgendaParams(),
		Extent:               extent,
		Speed:                settings.SpeedSampler(),
		MaxPlacementAttempts: settings.MaxPlacementAttempts,
		Rand:                 rng,
		Logger:               log,
		Recorder:             recorder,
	})
	if err != nil {
		return summary, err
	}
	summary.Unreachable = len(scenario.Unreachable())

	prototype, err := scenario.NewMotionModel(rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64())))
	if err != nil {
		return summary, err
	}
	models := []core.MotionModel{prototype}
	for len(models) < settings.EntityCount {
		m, err := prototype.Replicate()
		if err != nil {
			return summary, err
		}
		models = append(models, m)
	}
	summary.Entities = len(models)

	engine := core.NewSimulationEngine(models, log)
	if opts.TraceOut != "" {
		trace, err := waypointlog.Create(opts.TraceOut)
		if err != nil {
			return summary, fmt.Errorf("create waypoint trace: %w", err)
		}
		defer func() {
			if err := trace.Close(); err != nil {
				log.Warn(ctx, "closing waypoint trace failed", logging.String("error", err.Error()))
			}
		}()
		engine.RegisterTickListener(trace.Listener(log))
	}
	engine.RegisterTickListener(func(_ float64, segments []core.Segment) {
		summary.Ticks++
		summary.Segments += len(segments)
	})

	if _, err := engine.Start(); err != nil {
		return summary, err
	}

	ticks := opts.Ticks
	if ticks <= 0 {
		ticks = int(float64(settings.ScenarioEndTime) / settings.TickSeconds)
	}
	tick := time.Duration(settings.TickSeconds * float64(time.Second))
	mode := timectrl.Accelerated
	if opts.Realtime {
		mode = timectrl.RealTime
	}
	start := time.Time{}
	tc := timectrl.NewTimeController(start, tick, mode)
	tc.AddListener(func(now time.Time) {
		engine.Step(ctx, now.Sub(start).Seconds())
	})

	log.Info(ctx, "starting simulation",
		logging.Int("entities", summary.Entities),
		logging.Int("ticks", ticks),
		logging.Float("tick_seconds", settings.TickSeconds),
	)
	if err := tc.Run(ctx, time.Duration(ticks)*tick); err != nil {
		return summary, err
	}
	summary.Stopped = engine.Stopped()
	return summary, nil
}

func serveMetrics(addr string, collector *observability.MobilityCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
