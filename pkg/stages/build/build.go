// Package build implements the dependency graph construction stage.
package build

import (
	"context"

	"github.com/user/loadsim/pkg/depgraph"
	"github.com/user/loadsim/pkg/pipeline"
	"github.com/user/loadsim/pkg/ports"
)

// Stage builds the dependency graph of a recorded load.
type Stage struct {
	logger ports.Logger
	opts   []depgraph.Option
}

// New creates a new build stage.
func New(logger ports.Logger, opts ...depgraph.Option) *Stage {
	return &Stage{
		logger: logger,
		opts:   opts,
	}
}

// Execute builds the graph. A fresh builder is used per call so the stage can
// be shared.
func (s *Stage) Execute(ctx context.Context, input pipeline.BuildInput) (pipeline.BuildResult, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.BuildResult{}, err
	}
	b := depgraph.NewBuilder(s.logger, s.opts...)
	g, err := b.Build(input.Name, input.Records, input.Tasks)
	if err != nil {
		return pipeline.BuildResult{}, err
	}
	return pipeline.BuildResult{
		Graph:       g,
		Diagnostics: b.Diagnostics(),
	}, nil
}
