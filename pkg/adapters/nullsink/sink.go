// Package nullsink provides a no-op debug sink implementation.
package nullsink

import (
	"image"

	"github.com/user/loadsim/pkg/ports"
)

// Sink is a no-op implementation of ports.DebugSink.
// It discards all debug output.
type Sink struct{}

// New creates a new NullSink.
func New() *Sink {
	return &Sink{}
}

// Enabled returns false as this sink discards all output.
func (s *Sink) Enabled() bool {
	return false
}

// SaveGraphJSON does nothing.
func (s *Sink) SaveGraphJSON(name string, data []byte) error {
	return nil
}

// SaveTimingJSON does nothing.
func (s *Sink) SaveTimingJSON(scenario string, data []byte) error {
	return nil
}

// SaveWaterfall does nothing.
func (s *Sink) SaveWaterfall(scenario string, img image.Image) error {
	return nil
}

// Ensure Sink implements ports.DebugSink
var _ ports.DebugSink = (*Sink)(nil)
