package ports

import (
	"image"
)

// DebugSink receives intermediate artifacts of an estimate run.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool
	// SaveGraphJSON saves a dependency graph (or a derived variant) as JSON.
	SaveGraphJSON(name string, data []byte) error
	// SaveTimingJSON saves the timing table of one scenario run as JSON.
	SaveTimingJSON(scenario string, data []byte) error
	// SaveWaterfall saves the rendered waterfall of one scenario run.
	SaveWaterfall(scenario string, img image.Image) error
}
