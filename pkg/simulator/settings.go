package simulator

import (
	"errors"
	"fmt"
	"math"
)

// DefaultMaxConnectionsPerOrigin is the HTTP/1.1 per-origin socket limit
// browsers use when Settings leaves it unset.
const DefaultMaxConnectionsPerOrigin = 6

// ConnectionlessCostMs is the fixed processing cost of a request that needs
// no socket: cache hits and non-network schemes.
const ConnectionlessCostMs = 2

// ErrInvalidSettings is returned for throttling parameters that cannot be simulated.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings are the throttling parameters of one simulation.
type Settings struct {
	RTTMs          float64 `json:"rttMs" yaml:"rtt_ms"`
	ThroughputKbps float64 `json:"throughputKbps" yaml:"throughput_kbps"`
	// CPUSlowdownMultiplier scales every main-thread task; 1 is no slowdown.
	CPUSlowdownMultiplier   float64 `json:"cpuSlowdownMultiplier" yaml:"cpu_slowdown_multiplier"`
	MaxConnectionsPerOrigin int     `json:"maxConnectionsPerOrigin" yaml:"max_connections_per_origin"`
}

// Validate reports settings the simulator cannot run with.
func (s Settings) Validate() error {
	if math.IsNaN(s.RTTMs) || math.IsInf(s.RTTMs, 0) || s.RTTMs < 0 {
		return fmt.Errorf("%w: rtt %v ms", ErrInvalidSettings, s.RTTMs)
	}
	if math.IsNaN(s.ThroughputKbps) {
		return fmt.Errorf("%w: throughput %v kbps", ErrInvalidSettings, s.ThroughputKbps)
	}
	if math.IsNaN(s.CPUSlowdownMultiplier) || math.IsInf(s.CPUSlowdownMultiplier, 0) || s.CPUSlowdownMultiplier < 1 {
		return fmt.Errorf("%w: cpu slowdown %v, must be at least 1", ErrInvalidSettings, s.CPUSlowdownMultiplier)
	}
	if s.MaxConnectionsPerOrigin < 0 {
		return fmt.Errorf("%w: max connections %d", ErrInvalidSettings, s.MaxConnectionsPerOrigin)
	}
	return nil
}

// String renders the settings compactly for logs and file names.
func (s Settings) String() string {
	return fmt.Sprintf("rtt=%gms throughput=%gkbps cpu=%gx connections=%d",
		s.RTTMs, s.ThroughputKbps, s.CPUSlowdownMultiplier, s.connections())
}

func (s Settings) connections() int {
	if s.MaxConnectionsPerOrigin == 0 {
		return DefaultMaxConnectionsPerOrigin
	}
	return s.MaxConnectionsPerOrigin
}

// bytesPerMs converts the throughput to bytes per millisecond; +Inf when
// unthrottled. One kilobit per second is one eighth of a byte per millisecond.
func (s Settings) bytesPerMs() float64 {
	if s.ThroughputKbps <= 0 || math.IsInf(s.ThroughputKbps, 1) {
		return math.Inf(1)
	}
	return s.ThroughputKbps / 8
}
