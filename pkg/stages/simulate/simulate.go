// Package simulate implements the stage that runs every scenario.
package simulate

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/user/loadsim/pkg/pipeline"
	"github.com/user/loadsim/pkg/ports"
	"github.com/user/loadsim/pkg/simulator"
)

// Stage runs each (variant, preset) pair through the simulator.
type Stage struct {
	sim    *simulator.Simulator
	logger ports.Logger
}

// New creates a new simulate stage. The cache, when not nil, is shared by all
// runs of the stage.
func New(logger ports.Logger, cache *simulator.Cache, opts ...simulator.Option) *Stage {
	if cache != nil {
		opts = append(opts, simulator.WithCache(cache))
	}
	return &Stage{
		sim:    simulator.New(logger, opts...),
		logger: logger.WithComponent("simulate"),
	}
}

// Execute runs the scenarios concurrently. A run that fails is reported as a
// failed estimate; only cancellation of ctx fails the stage.
func (s *Stage) Execute(ctx context.Context, input pipeline.SimulateInput) (pipeline.SimulateResult, error) {
	if len(input.Presets) == 0 {
		return pipeline.SimulateResult{}, fmt.Errorf("no throttling presets")
	}
	workers := input.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	estimates := make([]pipeline.Estimate, len(input.Variants)*len(input.Presets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	s.logger.Debug("Running %d scenarios with %d workers", len(estimates), workers)
	for i, variant := range input.Variants {
		for j, preset := range input.Presets {
			idx := i*len(input.Presets) + j
			variant, preset := variant, preset
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				est := pipeline.Estimate{
					Scenario: variant.Name(),
					Kind:     variant.Kind,
					Preset:   preset.Name,
					Settings: preset.Settings,
				}
				res, err := s.sim.Simulate(variant.Graph, preset.Settings)
				if err != nil {
					s.logger.Warn("Scenario %s could not be estimated: %s", est.Key(), err)
					est.Failed = true
					est.Error = err.Error()
				} else {
					est.TotalMs = res.TotalMs
					est.Result = res
				}
				estimates[idx] = est
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return pipeline.SimulateResult{}, err
	}
	return pipeline.SimulateResult{Estimates: estimates}, nil
}
