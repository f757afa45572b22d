package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/ironsheep/exposure-control/internal/camera"
	"github.com/ironsheep/exposure-control/internal/config"
	"github.com/ironsheep/exposure-control/internal/exposure"
	"github.com/ironsheep/exposure-control/internal/imaging"
	"github.com/ironsheep/exposure-control/internal/loop"
	"github.com/ironsheep/exposure-control/internal/server"
)

// LoopFlags are shared by the commands that drive a control loop. Zero values
// keep the configured setting.
type LoopFlags struct {
	StartEV           string `name:"start-ev" placeholder:"EV" help:"Initial exposure value."`
	MaxCycles         int    `name:"max-cycles" help:"Give up after this many cycles."`
	ConvergenceCycles int    `name:"convergence-cycles" help:"Identical EVs in a row that end the run."`
	Region            string `placeholder:"REGION" help:"Metering region: full, center, top-half, ..., bottom-right."`
	JSON              bool   `name:"json" help:"Print each cycle as a JSON object instead of the bare EV."`
}

// apply copies the flags that were set over cfg and revalidates it.
func (f *LoopFlags) apply(cfg *config.Config) error {
	if f.StartEV != "" {
		ev, err := strconv.ParseFloat(f.StartEV, 64)
		if err != nil {
			return fmt.Errorf("invalid --start-ev %q: %w", f.StartEV, err)
		}
		cfg.Dataset.StartEV = ev
	}
	if f.MaxCycles != 0 {
		cfg.MaxCycles = f.MaxCycles
	}
	if f.ConvergenceCycles != 0 {
		cfg.ConvergenceCycles = f.ConvergenceCycles
	}
	if f.Region != "" {
		cfg.Region = f.Region
	}
	return cfg.Validate()
}

// run drives src from the configured start EV and prints the EV trace.
//
// Plain output lists the EV commanded before each capture: the start EV, then
// the output of every cycle but the last, whose EV only repeats the one
// before it when the loop converges. JSON output reports every cycle.
func (f *LoopFlags) run(rc *runContext, src camera.Source) (loop.Result, error) {
	cfg := rc.cfg
	ctrl, err := exposure.NewController(cfg.Dataset.StartEV, cfg.Controller)
	if err != nil {
		return loop.Result{}, err
	}

	enc := json.NewEncoder(rc.stdout)
	printEV := func(ev float64) {
		fmt.Fprintln(rc.stdout, strconv.FormatFloat(ev, 'f', -1, 64))
	}

	var pending *loop.Cycle
	emit := func(c loop.Cycle) {
		if f.JSON {
			_ = enc.Encode(c)
			return
		}
		// A cycle's EV is printed once the next cycle shows it was captured.
		if pending != nil {
			printEV(pending.EV)
		}
		pending = &c
	}

	if f.JSON {
		emit(loop.Cycle{EV: ctrl.EV()})
	} else {
		printEV(ctrl.EV())
	}

	ctx, cancel := signalContext()
	defer cancel()

	return loop.Run(ctx, src, ctrl, loop.Options{
		ConvergenceCycles: cfg.ConvergenceCycles,
		MaxCycles:         cfg.MaxCycles,
		Region:            cfg.MeteringRegion(),
		OnCycle:           emit,
		Logger:            rc.logger,
	})
}

type simulateCmd struct {
	LoopFlags

	Dataset    string `placeholder:"GLOB" help:"Glob matching the dataset frames, e.g. 'images/144550/*.jpg'."`
	MissPolicy string `name:"miss-policy" placeholder:"POLICY" help:"EV outside the dataset: fail or nearest."`
}

func (c *simulateCmd) Run(rc *runContext) error {
	cfg := rc.cfg
	if c.Dataset != "" {
		cfg.Dataset.Pattern = c.Dataset
	}
	if c.MissPolicy != "" {
		cfg.Dataset.MissPolicy = c.MissPolicy
	}
	if err := c.apply(cfg); err != nil {
		return err
	}
	if cfg.Dataset.Pattern == "" {
		return fmt.Errorf("no dataset: pass --dataset or set dataset.pattern")
	}

	ds, err := camera.LoadDataset(cfg.Dataset.Pattern,
		append(cfg.DatasetOptions(), camera.WithLogger(rc.logger))...)
	if err != nil {
		return err
	}

	res, err := c.run(rc, ds)
	if err != nil {
		return err
	}
	rc.logger.Info("simulation finished",
		zap.Int("cycles", res.Cycles), zap.Float64("final_ev", res.FinalEV))
	return nil
}

type liveCmd struct {
	LoopFlags

	Device int `default:"0" help:"Camera device index."`
}

func (c *liveCmd) Run(rc *runContext) error {
	if err := c.apply(rc.cfg); err != nil {
		return err
	}

	cam, err := camera.OpenLive(c.Device, rc.logger)
	if err != nil {
		return err
	}
	defer cam.Close()

	res, err := c.run(rc, cam)
	if err != nil {
		return err
	}
	rc.logger.Info("live exposure settled",
		zap.Int("cycles", res.Cycles), zap.Float64("final_ev", res.FinalEV))
	return nil
}

type measureCmd struct {
	Paths  []string `arg:"" type:"path" help:"Image files to measure."`
	Region string   `placeholder:"REGION" help:"Metering region."`
	JSON   bool     `name:"json" help:"Print one JSON object per image."`
}

type measurement struct {
	imaging.FrameInfo
	Histogram exposure.Histogram `json:"histogram"`
	MSV       float64            `json:"msv"`
}

func (c *measureCmd) Run(rc *runContext) error {
	name := c.Region
	if name == "" {
		name = rc.cfg.Region
	}
	region, err := imaging.ParseRegion(name)
	if err != nil {
		return err
	}

	cache := imaging.NewImageCache()
	enc := json.NewEncoder(rc.stdout)
	for _, path := range c.Paths {
		info, err := imaging.LoadFrame(cache, path, region)
		if err != nil {
			return err
		}
		hist, err := exposure.ComputeHistogram(info.Frame)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		cache.Evict(path)

		if c.JSON {
			if err := enc.Encode(measurement{FrameInfo: *info, Histogram: hist, MSV: hist.MSV()}); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(rc.stdout, "%s\t%v\t%.4f\n", path, hist, hist.MSV())
	}
	return nil
}

type serveCmd struct{}

func (c *serveCmd) Run(rc *runContext) error {
	server.Version = Version
	rc.logger.Info("MCP server starting", zap.String("version", Version))
	return server.New(rc.cfg, rc.logger).Run()
}
