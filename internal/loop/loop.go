// Package loop drives a closed exposure control loop: capture a frame,
// measure its MSV, step the controller and apply the new EV, until the EV
// settles.
package loop

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ironsheep/exposure-control/internal/camera"
	"github.com/ironsheep/exposure-control/internal/exposure"
	"github.com/ironsheep/exposure-control/internal/imaging"
)

// ErrMaxCycles is returned when the loop hits Options.MaxCycles without
// converging.
var ErrMaxCycles = errors.New("exposure did not converge")

// Options configures Run.
type Options struct {
	// ConvergenceCycles is the number of identical EVs that ends the loop.
	// Zero means exposure.DefaultConvergenceCycles.
	ConvergenceCycles int

	// MaxCycles bounds the number of cycles. Zero runs until convergence or
	// cancellation.
	MaxCycles int

	// Region is the metering region. Empty means the whole frame.
	Region imaging.Region

	// OnCycle, if set, is called after every cycle.
	OnCycle func(Cycle)

	Logger *zap.Logger
}

// Cycle reports one pass through the loop.
type Cycle struct {
	Index         int     `json:"index"`
	MSV           float64 `json:"msv"`
	EV            float64 `json:"ev"`
	IntegralError float64 `json:"integral_error"`
	Changed       bool    `json:"changed"`
}

// Result summarizes a finished loop.
type Result struct {
	Cycles    int     `json:"cycles"`
	Converged bool    `json:"converged"`
	FinalEV   float64 `json:"final_ev"`
}

// Run drives src with ctrl until the EV converges.
//
// The source is first set to the controller's EV. Each cycle then captures a
// frame, meters it, steps the controller and sets the returned EV on the
// source. The context is checked between cycles. Any error from the source,
// the sampler or the controller stops the loop and is returned with the
// partial result.
func Run(ctx context.Context, src camera.Source, ctrl *exposure.Controller, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cycles := opts.ConvergenceCycles
	if cycles == 0 {
		cycles = exposure.DefaultConvergenceCycles
	}

	res := Result{FinalEV: ctrl.EV()}
	if err := src.Set(ctrl.EV()); err != nil {
		return res, fmt.Errorf("failed to set start EV: %w", err)
	}

	conv := exposure.NewConvergence(cycles, ctrl.EV())
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if opts.MaxCycles > 0 && res.Cycles >= opts.MaxCycles {
			return res, fmt.Errorf("%w after %d cycles", ErrMaxCycles, res.Cycles)
		}

		frame, err := src.Capture(ctx)
		if err != nil {
			return res, fmt.Errorf("failed to capture frame: %w", err)
		}
		frame, err = imaging.MeterFrame(frame, opts.Region)
		if err != nil {
			return res, fmt.Errorf("failed to meter frame: %w", err)
		}
		msv, err := exposure.ComputeMSV(frame)
		if err != nil {
			return res, fmt.Errorf("failed to compute MSV: %w", err)
		}

		prev := ctrl.EV()
		ev, err := ctrl.Step(msv)
		if err != nil {
			return res, fmt.Errorf("failed to step controller: %w", err)
		}
		if err := src.Set(ev); err != nil {
			return res, fmt.Errorf("failed to set EV: %w", err)
		}

		res.Cycles++
		res.FinalEV = ev

		cycle := Cycle{
			Index:         res.Cycles,
			MSV:           msv,
			EV:            ev,
			IntegralError: ctrl.State().IntegralError,
			Changed:       ev != prev,
		}
		logger.Debug("exposure cycle",
			zap.Int("cycle", cycle.Index),
			zap.Float64("msv", cycle.MSV),
			zap.Float64("ev", cycle.EV),
			zap.Float64("integral_error", cycle.IntegralError))
		if opts.OnCycle != nil {
			opts.OnCycle(cycle)
		}

		if conv.Observe(ev) {
			res.Converged = true
			logger.Info("exposure converged",
				zap.Int("cycles", res.Cycles), zap.Float64("ev", ev))
			return res, nil
		}
	}
}
