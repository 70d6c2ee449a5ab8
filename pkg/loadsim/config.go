// Package loadsim provides a high-level API for estimating page load timings.
package loadsim

import (
	"fmt"
	"sort"

	"github.com/user/loadsim/pkg/orchestrator"
	"github.com/user/loadsim/pkg/pipeline"
	"github.com/user/loadsim/pkg/ports"
	"github.com/user/loadsim/pkg/scenario"
	"github.com/user/loadsim/pkg/simulator"
)

// Preset names a throttling profile.
type Preset string

const (
	PresetMobileSlow4G    Preset = "mobileSlow4G"
	PresetMobileRegular3G Preset = "mobileRegular3G"
	PresetDesktopDense4G  Preset = "desktopDense4G"
	PresetNone            Preset = "none"
)

// CustomPresetName is the name under which settings assembled with WithRTT and
// friends are reported.
const CustomPresetName = "custom"

var presets = map[Preset]simulator.Settings{
	PresetMobileSlow4G: {
		RTTMs:                   150,
		ThroughputKbps:          1.6 * 1024,
		CPUSlowdownMultiplier:   4,
		MaxConnectionsPerOrigin: simulator.DefaultMaxConnectionsPerOrigin,
	},
	PresetMobileRegular3G: {
		RTTMs:                   300,
		ThroughputKbps:          700,
		CPUSlowdownMultiplier:   4,
		MaxConnectionsPerOrigin: simulator.DefaultMaxConnectionsPerOrigin,
	},
	PresetDesktopDense4G: {
		RTTMs:                   40,
		ThroughputKbps:          10 * 1024,
		CPUSlowdownMultiplier:   1,
		MaxConnectionsPerOrigin: simulator.DefaultMaxConnectionsPerOrigin,
	},
	PresetNone: {
		CPUSlowdownMultiplier:   1,
		MaxConnectionsPerOrigin: simulator.DefaultMaxConnectionsPerOrigin,
	},
}

// GetPresetSettings returns the simulator settings of a named preset.
func GetPresetSettings(name Preset) (simulator.Settings, bool) {
	s, ok := presets[name]
	return s, ok
}

// PresetNames returns the known preset names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}

// Config represents the configuration of an estimate run.
type Config struct {
	// Estimation
	Metric            string  // fcp, lcp or interactive
	PointOfInterestUs float64 // When the metric was observed, microseconds since navigation start
	Presets           []Preset
	Custom            *simulator.Settings // Extra preset assembled from With* overrides
	Workers           int                 // Concurrent scenario runs (0 = one per CPU)

	// Capture network throttling
	LatencyMs     int // Round-trip latency in milliseconds
	DownloadSpeed int // Download speed in bytes/sec (0 = unlimited)
	UploadSpeed   int // Upload speed in bytes/sec (0 = unlimited)

	// Capture CPU throttling
	CPUThrottling float64 // CPU slowdown factor (1.0 = no throttling, 4.0 = 4x slower)

	// Browser options
	IgnoreHTTPSErrors bool   // Ignore HTTPS certificate errors
	ProxyServer       string // HTTP proxy server (e.g., "http://proxy:8080")

	// Capture stop conditions
	TimeoutSec    int // Recording timeout in seconds (default: 30)
	QuietWindowMs int // Network idle time that ends a capture (default: 500)
}

// ConfigBuilder provides a fluent interface for building Config.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder creates a new ConfigBuilder with mobile preset defaults.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: mobileDefaults(),
	}
}

// NewDesktopConfigBuilder creates a new ConfigBuilder with desktop preset
// defaults.
func NewDesktopConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: desktopDefaults(),
	}
}

// mobileDefaults returns the mobile preset configuration.
func mobileDefaults() Config {
	return Config{
		Metric:  "interactive",
		Presets: []Preset{PresetMobileSlow4G},

		// Capture unthrottled; throttling is simulated afterwards
		CPUThrottling: 1.0,

		TimeoutSec:    30,
		QuietWindowMs: 500,
	}
}

// desktopDefaults returns the desktop preset configuration.
func desktopDefaults() Config {
	cfg := mobileDefaults()
	cfg.Metric = "largest-contentful-paint"
	cfg.Presets = []Preset{PresetDesktopDense4G}
	return cfg
}

// Build returns the final Config, applying validation and constraints.
func (b *ConfigBuilder) Build() Config {
	cfg := b.config
	cfg.Presets = append([]Preset(nil), b.config.Presets...)
	if b.config.Custom != nil {
		custom := *b.config.Custom
		cfg.Custom = &custom
	}

	if cfg.PointOfInterestUs < 0 {
		cfg.PointOfInterestUs = 0
	}
	if cfg.CPUThrottling < 1 {
		cfg.CPUThrottling = 1
	}
	if cfg.TimeoutSec < 1 {
		cfg.TimeoutSec = 1
	}
	if cfg.Workers < 0 {
		cfg.Workers = 0
	}
	return cfg
}

// WithMetric sets the metric to estimate (fcp, lcp, tti or a full name).
func (b *ConfigBuilder) WithMetric(metric string) *ConfigBuilder {
	b.config.Metric = metric
	return b
}

// WithPointOfInterestUs sets when the metric was observed in the recording.
func (b *ConfigBuilder) WithPointOfInterestUs(us float64) *ConfigBuilder {
	b.config.PointOfInterestUs = us
	return b
}

// WithPresets replaces the named throttling presets.
func (b *ConfigBuilder) WithPresets(names ...Preset) *ConfigBuilder {
	b.config.Presets = names
	return b
}

// custom returns the custom settings, starting from the first named preset.
func (b *ConfigBuilder) custom() *simulator.Settings {
	if b.config.Custom == nil {
		base := presets[PresetNone]
		if len(b.config.Presets) > 0 {
			if s, ok := presets[b.config.Presets[0]]; ok {
				base = s
			}
		}
		b.config.Custom = &base
	}
	return b.config.Custom
}

// WithRTT sets the round-trip time of the custom preset.
func (b *ConfigBuilder) WithRTT(ms float64) *ConfigBuilder {
	b.custom().RTTMs = ms
	return b
}

// WithThroughputKbps sets the throughput of the custom preset.
// Use 0 for unthrottled.
func (b *ConfigBuilder) WithThroughputKbps(kbps float64) *ConfigBuilder {
	b.custom().ThroughputKbps = kbps
	return b
}

// WithCPUSlowdown sets the CPU slowdown multiplier of the custom preset.
func (b *ConfigBuilder) WithCPUSlowdown(multiplier float64) *ConfigBuilder {
	b.custom().CPUSlowdownMultiplier = multiplier
	return b
}

// WithMaxConnections sets the per-origin connection limit of the custom preset.
func (b *ConfigBuilder) WithMaxConnections(n int) *ConfigBuilder {
	b.custom().MaxConnectionsPerOrigin = n
	return b
}

// WithWorkers sets the number of concurrent scenario runs.
func (b *ConfigBuilder) WithWorkers(n int) *ConfigBuilder {
	b.config.Workers = n
	return b
}

// WithLatency sets the capture round-trip latency in milliseconds.
func (b *ConfigBuilder) WithLatency(ms int) *ConfigBuilder {
	b.config.LatencyMs = ms
	return b
}

// WithDownloadSpeed sets the capture download speed limit in bytes/sec.
// Use 0 for unlimited.
func (b *ConfigBuilder) WithDownloadSpeed(bytesPerSec int) *ConfigBuilder {
	b.config.DownloadSpeed = bytesPerSec
	return b
}

// WithUploadSpeed sets the capture upload speed limit in bytes/sec.
// Use 0 for unlimited.
func (b *ConfigBuilder) WithUploadSpeed(bytesPerSec int) *ConfigBuilder {
	b.config.UploadSpeed = bytesPerSec
	return b
}

// WithCPUThrottling sets the capture CPU slowdown factor.
// 1.0 = no throttling, 4.0 = 4x slower.
func (b *ConfigBuilder) WithCPUThrottling(factor float64) *ConfigBuilder {
	b.config.CPUThrottling = factor
	return b
}

// WithIgnoreHTTPSErrors enables ignoring HTTPS certificate errors.
func (b *ConfigBuilder) WithIgnoreHTTPSErrors(ignore bool) *ConfigBuilder {
	b.config.IgnoreHTTPSErrors = ignore
	return b
}

// WithProxyServer sets the HTTP proxy server.
func (b *ConfigBuilder) WithProxyServer(proxy string) *ConfigBuilder {
	b.config.ProxyServer = proxy
	return b
}

// WithTimeoutSec sets the recording timeout in seconds.
func (b *ConfigBuilder) WithTimeoutSec(sec int) *ConfigBuilder {
	b.config.TimeoutSec = sec
	return b
}

// WithQuietWindowMs sets how long the network must stay idle to end a capture.
func (b *ConfigBuilder) WithQuietWindowMs(ms int) *ConfigBuilder {
	b.config.QuietWindowMs = ms
	return b
}

// MbpsToBytes converts megabits per second to bytes per second.
// Uses 1024 as the base (1 Mbps = 1024 * 1024 / 8 bytes/sec).
// Accepts float64 for fractional Mbps values (e.g., 1.5 Mbps).
func MbpsToBytes(mbps float64) int {
	return int(mbps * 1024 * 1024 / 8)
}

// MbpsToKbps converts megabits per second to the simulator's kilobits per
// second, with the same 1024 base as MbpsToBytes.
func MbpsToKbps(mbps float64) float64 {
	return mbps * 1024
}

// ResolvePresets returns the named presets followed by the custom one.
func (c Config) ResolvePresets() ([]pipeline.Preset, error) {
	out := make([]pipeline.Preset, 0, len(c.Presets)+1)
	for _, name := range c.Presets {
		s, ok := presets[name]
		if !ok {
			return nil, fmt.Errorf("unknown preset %q (known: %v)", name, PresetNames())
		}
		out = append(out, pipeline.Preset{Name: string(name), Settings: s})
	}
	if c.Custom != nil {
		if err := c.Custom.Validate(); err != nil {
			return nil, fmt.Errorf("custom preset: %w", err)
		}
		out = append(out, pipeline.Preset{Name: CustomPresetName, Settings: *c.Custom})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no throttling presets")
	}
	return out, nil
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
func (c Config) ToOrchestratorConfig(name, recordsPath, tasksPath, outputPath string) (orchestrator.Config, error) {
	metric, err := scenario.ParseMetric(c.Metric)
	if err != nil {
		return orchestrator.Config{}, err
	}
	resolved, err := c.ResolvePresets()
	if err != nil {
		return orchestrator.Config{}, err
	}

	cfg := orchestrator.DefaultConfig()
	cfg.Name = name
	cfg.RecordsPath = recordsPath
	cfg.TasksPath = tasksPath
	cfg.OutputPath = outputPath

	cfg.PointOfInterestUs = c.PointOfInterestUs
	cfg.Metric = metric
	cfg.Presets = resolved
	cfg.Workers = c.Workers

	cfg.Capture = orchestrator.CaptureConfig{
		TimeoutMs:     c.TimeoutSec * 1000,
		QuietWindowMs: c.QuietWindowMs,
		NetworkConditions: ports.NetworkConditions{
			LatencyMs:     c.LatencyMs,
			DownloadSpeed: c.DownloadSpeed,
			UploadSpeed:   c.UploadSpeed,
		},
		CPUThrottling:     c.CPUThrottling,
		IgnoreHTTPSErrors: c.IgnoreHTTPSErrors,
		ProxyServer:       c.ProxyServer,
	}
	return cfg, nil
}
