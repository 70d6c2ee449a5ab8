package mocks

import (
	"image"
	"sync"

	"github.com/user/loadsim/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	Graphs     map[string][]byte
	Timings    map[string][]byte
	Waterfalls map[string]image.Image
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled:    enabled,
		Graphs:     make(map[string][]byte),
		Timings:    make(map[string][]byte),
		Waterfalls: make(map[string]image.Image),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveGraphJSON(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Graphs[name] = data
	return nil
}

func (m *DebugSink) SaveTimingJSON(scenario string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Timings[scenario] = data
	return nil
}

func (m *DebugSink) SaveWaterfall(scenario string, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Waterfalls[scenario] = img
	return nil
}

var _ ports.DebugSink = (*DebugSink)(nil)

// NullSink is a no-op implementation of ports.DebugSink.
type NullSink struct{}

func (m *NullSink) Enabled() bool                                       { return false }
func (m *NullSink) SaveGraphJSON(name string, data []byte) error        { return nil }
func (m *NullSink) SaveTimingJSON(scenario string, data []byte) error   { return nil }
func (m *NullSink) SaveWaterfall(scenario string, img image.Image) error { return nil }

var _ ports.DebugSink = (*NullSink)(nil)
