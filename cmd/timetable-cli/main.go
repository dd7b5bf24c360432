package main

import (
	"context"
	"flag"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-engine/internal/importer"
	"github.com/noah-isme/timetable-engine/internal/service"
	"github.com/noah-isme/timetable-engine/pkg/config"
	"github.com/noah-isme/timetable-engine/pkg/logger"
)

const exitInfeasible = 2

var errIncomplete = errors.New("timetable is incomplete")

type options struct {
	paths           importer.Paths
	out             string
	seed            int64
	skipOptimize    bool
	requireComplete bool
}

func main() {
	var opts options
	flag.StringVar(&opts.paths.Courses, "courses", "courses.csv", "course sessions CSV")
	flag.StringVar(&opts.paths.Rooms, "rooms", "rooms.csv", "rooms CSV")
	flag.StringVar(&opts.paths.Availability, "availability", "", "faculty availability CSV (optional)")
	flag.StringVar(&opts.paths.Fixed, "fixed", "", "already committed assignments CSV (optional)")
	flag.StringVar(&opts.paths.Rules, "rules", "", "rules YAML (optional)")
	flag.StringVar(&opts.out, "out", "-", "output CSV path, - for stdout")
	flag.Int64Var(&opts.seed, "seed", 0, "random seed; overrides the rules file and SCHEDULER_SEED")
	flag.BoolVar(&opts.skipOptimize, "skip-optimization", false, "stop after the base schedule")
	flag.BoolVar(&opts.requireComplete, "require-complete", true, "skip optimization when any session is unplaced")
	flag.Parse()

	if err := run(opts); err != nil {
		if errors.Is(err, errIncomplete) {
			os.Exit(exitInfeasible)
		}
		log.Fatalf("timetable-cli: %v", err)
	}
}

func run(opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Log.Format = "console"
	logr, err := logger.New(cfg, "timetable-cli")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	problem, rules, err := importer.LoadProblem(opts.paths)
	if err != nil {
		logr.Error("failed to load problem", zap.Error(err))
		return err
	}

	runOpts := service.RunOptions{
		Seed:             firstSeed(opts.seed, rules.Seed, cfg.Scheduler.Seed),
		SkipOptimization: opts.skipOptimize || problem.SkipOptimization,
		RequireComplete:  opts.requireComplete,
	}
	runner := service.NewTimetableRunner(service.OptimizerSettings(cfg.Scheduler), nil, logr)
	result, err := runner.Run(ctx, problem, runOpts, nil)
	if err != nil {
		logr.Error("run failed", zap.Error(err))
		return err
	}

	logr.Info("run finished",
		zap.Int("placed", len(result.Schedule)),
		zap.Int("unplaced", len(result.Unplaced)),
		zap.Float64("fitness", result.Fitness.Score),
		zap.Int("generations", result.Generations),
		zap.Int64("seed", result.Seed),
		zap.Duration("generation", result.GenerationTime),
		zap.Duration("optimization", result.OptimizationTime),
	)
	for _, u := range result.Unplaced {
		logr.Warn("session unplaced", zap.String("session", u.SessionID), zap.String("reason", u.Reason()))
	}

	if err := writeOutput(opts.out, importer.AssignmentRows(result.Problem, result.Schedule)); err != nil {
		logr.Error("failed to write timetable", zap.Error(err))
		return err
	}
	if !result.Complete() {
		return errIncomplete
	}
	return nil
}

// writeOutput writes rows to path, or stdout for "-". A failed close is
// reported since it may be the final flush.
func writeOutput(path string, rows []importer.AssignmentRow) (err error) {
	if path == "-" {
		return importer.WriteAssignments(os.Stdout, rows)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return importer.WriteAssignments(f, rows)
}

func firstSeed(seeds ...int64) int64 {
	for _, s := range seeds {
		if s != 0 {
			return s
		}
	}
	return 0
}
