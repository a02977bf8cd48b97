// Command oxy-anim plays skeletal animation clips from a glTF, GLB or YAML rig on a headless
// tick loop and optionally dumps the resulting bone matrices.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine"
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/config"
	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/posestore"
	"github.com/Carmen-Shannon/oxy-anim/engine/telemetry"
)

const serviceName = "oxy-anim"

// options are the command-line settings layered over config.Config.
type options struct {
	rig       string
	clips     []string
	repeat    string
	duration  time.Duration
	tickRate  float64
	pooled    bool
	instances int
	poseSave  string
	poseLoad  string
	dump      string
}

func main() {
	log.SetPrefix("oxy-anim: ")
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts); err != nil {
		log.Fatal(err)
	}
}

func parseFlags(args []string) (options, error) {
	var (
		opts  options
		clips string
	)
	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	fs.StringVar(&opts.rig, "rig", "", "rig file to play (.gltf, .glb, .yaml or .yml)")
	fs.StringVar(&clips, "clip", "", "comma-separated clip names; empty plays the first clip")
	fs.StringVar(&opts.repeat, "repeat", "", "repeat mode: loop, once or hold (default from OXY_ANIM_REPEAT_MODE)")
	fs.DurationVar(&opts.duration, "duration", 5*time.Second, "how long to run; 0 runs until interrupted")
	fs.Float64Var(&opts.tickRate, "tick-rate", 0, "ticks per second (default from OXY_ANIM_TICK_RATE)")
	fs.BoolVar(&opts.pooled, "pooled", false, "evaluate updaters on the worker pool")
	fs.IntVar(&opts.instances, "instances", 1, "number of independent copies of the rig to animate")
	fs.StringVar(&opts.poseSave, "pose-save", "", "save each updater's manual pose overlay under this name on exit")
	fs.StringVar(&opts.poseLoad, "pose-load", "", "apply manual pose overlays saved under this name after playback, before -pose-save and -dump")
	fs.StringVar(&opts.dump, "dump", "", "write the final bone matrices as YAML to this path, or - for stdout")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if opts.rig == "" {
		return options{}, errors.New("-rig is required")
	}
	if opts.instances < 1 {
		return options{}, fmt.Errorf("-instances must be at least 1, got %d", opts.instances)
	}
	if opts.duration < 0 {
		return options{}, fmt.Errorf("-duration must not be negative, got %v", opts.duration)
	}
	for _, c := range strings.Split(clips, ",") {
		if c = strings.TrimSpace(c); c != "" {
			opts.clips = append(opts.clips, c)
		}
	}
	return opts, nil
}

// run loads the rig, drives its clips for opts.duration and reports the result.
func run(ctx context.Context, cfg config.Config, opts options) error {
	shutdown, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := shutdown(sctx); serr != nil {
			log.Printf("telemetry shutdown: %v", serr)
		}
	}()

	updaterOpts := cfg.UpdaterOptions()
	if opts.repeat != "" {
		mode, err := animation.ParseRepeatMode(opts.repeat)
		if err != nil {
			return err
		}
		updaterOpts = append(updaterOpts, animation.WithRepeatMode(mode))
	}

	backend := animator.BackendTypeSequential
	if opts.pooled {
		backend = animator.BackendTypePooled
	}
	anim := animator.NewAnimator(backend,
		animator.WithWorkers(cfg.Workers),
		animator.WithQueueSize(cfg.WorkerQueue),
	)
	defer anim.Stop()

	models, err := loadInstances(opts.rig, opts.instances)
	if err != nil {
		return err
	}
	for i, m := range models {
		if err := addUpdaters(anim, m, i, opts.clips, updaterOpts); err != nil {
			return err
		}
	}

	var store *posestore.Store
	if opts.poseSave != "" || opts.poseLoad != "" {
		store, err = posestore.Open(cfg.PoseAppName)
		if err != nil {
			log.Printf("pose store unavailable, poses are kept in memory: %v", err)
			store = posestore.NewStore(nil)
		}
	}
	// Updaters read seconds as timeStamp / frequency, so the clock reports elapsed time at the
	// configured frequency.
	start := time.Now()
	freq := cfg.TimestampFrequency
	tickRate := cfg.TickRate
	if opts.tickRate > 0 {
		tickRate = opts.tickRate
	}
	eng := engine.NewEngine(
		engine.WithAnimator(anim),
		engine.WithTickRate(tickRate),
		engine.WithProfiling(cfg.Profile),
		engine.WithFrequency(freq),
		engine.WithClock(func() int64 {
			return int64(time.Since(start).Seconds() * float64(freq))
		}),
	)

	runCtx := ctx
	if opts.duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}
	if err := eng.Run(runCtx); err != nil {
		return err
	}

	elapsed := time.Since(start)
	log.Printf("played %d updaters over %d instance(s) for %v: %d ticks (%.1f/s), %s backend",
		anim.Len(), len(models), elapsed.Round(time.Millisecond), eng.Ticks(),
		float64(eng.Ticks())/elapsed.Seconds(), anim.BackendType())
	if cfg.Profile {
		s := eng.Profiler().Stats()
		log.Printf("last profile interval: %.1f UPS, %.0f updaters/s, heap %.2f MB", s.UPS, s.UpdatersPerS, s.HeapMB)
	}

	// Playback rewrites every animated node each tick, so a restored overlay is applied once
	// the engine has stopped.
	if opts.poseLoad != "" {
		for _, u := range anim.Updaters() {
			if _, err := store.Load(poseKey(opts.poseLoad, u), u); err != nil {
				return err
			}
		}
	}

	if opts.poseSave != "" {
		for _, u := range anim.Updaters() {
			if err := store.Save(poseKey(opts.poseSave, u), u); err != nil {
				return err
			}
		}
	}

	if opts.dump != "" {
		return writeDump(opts.dump, models)
	}
	return nil
}

// loadInstances loads n independent copies of the rig at path.
// Each copy comes from its own Loader so no graph is shared between instances.
func loadInstances(path string, n int) ([]model.Model, error) {
	models := make([]model.Model, n)
	for i := range models {
		m, err := loader.NewLoader().Load(path)
		if err != nil {
			return nil, err
		}
		models[i] = m
	}
	return models, nil
}

// addUpdaters registers one updater per clip of m with the animator. An empty clip list plays
// the model's first clip.
func addUpdaters(anim animator.Animator, m model.Model, instance int, clips []string, updaterOpts []animation.UpdaterBuilderOption) error {
	if len(clips) == 0 {
		names := m.ClipNames()
		if len(names) == 0 {
			return fmt.Errorf("model %q has no animation clips", m.Name())
		}
		clips = names[:1]
	}

	for _, clip := range clips {
		name := fmt.Sprintf("%s-%d", clip, instance)
		u, err := m.NewUpdater(clip, append(updaterOpts, animation.WithName(name))...)
		if err != nil {
			return fmt.Errorf("model %q: %w", m.Name(), err)
		}
		if _, err := anim.Add(u); err != nil {
			return err
		}
	}
	return nil
}

// poseKey is the pose store entry for updater u under the user-chosen name.
// Store keys double as file names, so anything outside [A-Za-z0-9_] becomes an underscore.
func poseKey(name string, u animation.Updater) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name+"_"+u.Name())
}
