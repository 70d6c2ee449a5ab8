// Package derive implements the scenario derivation stage.
package derive

import (
	"context"

	"github.com/user/loadsim/pkg/pipeline"
	"github.com/user/loadsim/pkg/ports"
	"github.com/user/loadsim/pkg/scenario"
)

// Stage derives the optimistic and pessimistic variants of a graph.
type Stage struct {
	selector *scenario.Selector
}

// New creates a new derive stage.
func New(logger ports.Logger) *Stage {
	return &Stage{selector: scenario.NewSelector(logger)}
}

// Execute derives the variants.
func (s *Stage) Execute(ctx context.Context, input pipeline.DeriveInput) (pipeline.DeriveResult, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.DeriveResult{}, err
	}
	variants, err := s.selector.Derive(input.Graph, input.PointOfInterestUs, input.Metric)
	if err != nil {
		return pipeline.DeriveResult{}, err
	}
	return pipeline.DeriveResult{Variants: variants}, nil
}
